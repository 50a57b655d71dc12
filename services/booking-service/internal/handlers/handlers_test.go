package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	libauth "github.com/slotline/slotline/libs/auth"
	"github.com/slotline/slotline/libs/runtime"
	"github.com/slotline/slotline/services/booking-service/internal/booking"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

const testSecret = "test-secret"

type stubService struct {
	bookErr   error
	blockErr  error
	statusErr error
	swapErr   error
	slots     []string
	slotsErr  error

	lastBook booking.BookRequest
}

func (s *stubService) Book(ctx context.Context, req booking.BookRequest) (model.Appointment, error) {
	s.lastBook = req
	if s.bookErr != nil {
		return model.Appointment{}, s.bookErr
	}
	return model.Appointment{
		ID:           "appt-1",
		WorkerID:     req.WorkerID,
		ServiceName:  "Haircut",
		ServicePrice: decimal.NewFromInt(30),
		Day:          req.Day,
		StartMinute:  9 * 60,
		EndMinute:    9*60 + 40,
		Status:       model.StatusPending,
	}, nil
}

func (s *stubService) Slots(ctx context.Context, locationID, workerID, serviceID, day string) ([]string, error) {
	if s.slotsErr != nil {
		return nil, s.slotsErr
	}
	return s.slots, nil
}

func (s *stubService) Block(ctx context.Context, req booking.BlockRequest) (string, error) {
	if s.blockErr != nil {
		return "", s.blockErr
	}
	return "block-1", nil
}

func (s *stubService) UpdateBlock(ctx context.Context, req booking.UpdateBlockRequest) error {
	return s.blockErr
}

func (s *stubService) DeleteBlock(ctx context.Context, locationID, blockID string) error {
	return s.blockErr
}

func (s *stubService) SetStatus(ctx context.Context, locationID, appointmentID string, next model.AppointmentStatus, actor, reason string) (model.Appointment, error) {
	if s.statusErr != nil {
		return model.Appointment{}, s.statusErr
	}
	return model.Appointment{ID: appointmentID, Status: next}, nil
}

func (s *stubService) SwapShifts(ctx context.Context, locationID, workerA, workerB, day string) error {
	return s.swapErr
}

func (s *stubService) CancelDay(ctx context.Context, locationID, workerID, day, actor, reason string) (int, error) {
	return 2, nil
}

func (s *stubService) PlanWeek(ctx context.Context, locationID, workerID string, tpl schedule.WeeklyTemplate, from, until string) (int, error) {
	return 7, nil
}

func (s *stubService) DaySchedule(ctx context.Context, locationID, workerID, day string) ([]model.Appointment, []model.CalendarBlock, error) {
	return nil, nil, nil
}

type stubAdmin struct{}

func (stubAdmin) CreateLocation(ctx context.Context, name string, maxActiveWorkers int) (string, error) {
	return "loc-1", nil
}
func (stubAdmin) ListWorkers(ctx context.Context, locationID string) ([]model.Worker, error) {
	return []model.Worker{{ID: "w-1", Name: "Sam"}}, nil
}
func (stubAdmin) CreateWorker(ctx context.Context, locationID, name string) (string, error) {
	return "w-2", nil
}
func (stubAdmin) ActivateWorker(ctx context.Context, locationID, workerID string) error { return nil }
func (stubAdmin) CreateService(ctx context.Context, locationID, name string) (string, error) {
	return "svc-1", nil
}
func (stubAdmin) UpsertWorkerService(ctx context.Context, ws model.WorkerService) (string, error) {
	return "ws-1", nil
}
func (stubAdmin) GetShiftSettings(ctx context.Context, locationID string) (*model.ShiftSettings, error) {
	return nil, nil
}
func (stubAdmin) UpsertShiftSettings(ctx context.Context, s model.ShiftSettings) error { return nil }

type stubStaff struct {
	user *model.StaffUser
}

func (s stubStaff) GetByEmail(ctx context.Context, email string) (*model.StaffUser, error) {
	return s.user, nil
}

func (s stubStaff) Create(ctx context.Context, u *model.StaffUser) (string, error) {
	return "staff-2", nil
}

func newTestRouter(t *testing.T, svc *stubService, staff StaffStore) http.Handler {
	t.Helper()
	logger := runtime.NewLogger("test")
	h := NewHandler(svc, stubAdmin{}, staff, logger, testSecret)
	return NewRouter(h, RouterConfig{AllowedOrigins: []string{"*"}})
}

func staffToken(t *testing.T, locationID, role string) string {
	t.Helper()
	now := time.Now()
	token, err := libauth.SignHS256(libauth.Claims{
		Sub:        "staff-1",
		LocationID: locationID,
		Role:       role,
		Iat:        now.Unix(),
		Exp:        now.Add(time.Hour).Unix(),
	}, testSecret)
	require.NoError(t, err)
	return token
}

func TestBookCreated(t *testing.T) {
	svc := &stubService{}
	router := newTestRouter(t, svc, stubStaff{})

	body := `{"service_id":"svc-1","day":"2026-03-02","start":"09:00","client_name":"Ada","client_email":"ada@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/locations/loc-1/workers/w-1/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "loc-1", svc.lastBook.LocationID)
	require.Equal(t, "w-1", svc.lastBook.WorkerID)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "appt-1", resp["appointment_id"])
	require.Equal(t, "09:00", resp["start"])
	require.Equal(t, "30.00", resp["price"])
}

func TestBookConflictIs409(t *testing.T) {
	svc := &stubService{bookErr: booking.ErrSlotTaken}
	router := newTestRouter(t, svc, stubStaff{})

	body := `{"service_id":"svc-1","day":"2026-03-02","start":"09:00","client_name":"Ada"}`
	req := httptest.NewRequest(http.MethodPost, "/api/locations/loc-1/workers/w-1/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookValidationIs422(t *testing.T) {
	svc := &stubService{bookErr: &booking.ValidationError{Field: "day", Reason: "worker is off that day"}}
	router := newTestRouter(t, svc, stubStaff{})

	body := `{"service_id":"svc-1","day":"2026-03-02","start":"09:00","client_name":"Ada"}`
	req := httptest.NewRequest(http.MethodPost, "/api/locations/loc-1/workers/w-1/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "day", resp["field"])
}

func TestBookRejectsMissingFields(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubStaff{})

	req := httptest.NewRequest(http.MethodPost, "/api/locations/loc-1/workers/w-1/appointments", strings.NewReader(`{"day":"2026-03-02"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestBookRejectsBadJSON(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubStaff{})

	req := httptest.NewRequest(http.MethodPost, "/api/locations/loc-1/workers/w-1/appointments", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlots(t *testing.T) {
	svc := &stubService{slots: []string{"09:00", "09:20"}}
	router := newTestRouter(t, svc, stubStaff{})

	req := httptest.NewRequest(http.MethodGet, "/api/locations/loc-1/workers/w-1/slots?service_id=svc-1&day=2026-03-02", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Day   string   `json:"day"`
		Slots []string `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, []string{"09:00", "09:20"}, resp.Slots)
}

func TestSlotsRequiresQueryParams(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubStaff{})

	req := httptest.NewRequest(http.MethodGet, "/api/locations/loc-1/workers/w-1/slots", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	hash, err := libauth.HashPassword("hunter2-long")
	require.NoError(t, err)
	staff := stubStaff{user: &model.StaffUser{
		ID:           "staff-1",
		LocationID:   "loc-1",
		Email:        "owner@example.com",
		PasswordHash: hash,
		Role:         "owner",
		IsActive:     true,
	}}
	router := newTestRouter(t, &stubService{}, staff)

	t.Run("success", func(t *testing.T) {
		body := `{"email":"owner@example.com","password":"hunter2-long"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp loginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		claims, err := libauth.ParseAndVerifyHS256(resp.Token, testSecret)
		require.NoError(t, err)
		require.Equal(t, "loc-1", claims.LocationID)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := `{"email":"owner@example.com","password":"nope-nope"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		router := newTestRouter(t, &stubService{}, stubStaff{})
		body := `{"email":"ghost@example.com","password":"whatever"}`
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestStaffRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubStaff{})

	req := httptest.NewRequest(http.MethodPost, "/api/staff/locations/loc-1/shifts/swap", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaffTokenScopedToLocation(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubStaff{})

	body := `{"worker_a":"w-1","worker_b":"w-2","day":"2026-03-02"}`
	req := httptest.NewRequest(http.MethodPost, "/api/staff/locations/other-loc/shifts/swap", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "loc-1", "staff"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSwapBlockedIs409(t *testing.T) {
	svc := &stubService{swapErr: booking.ErrSwapBlocked}
	router := newTestRouter(t, svc, stubStaff{})

	body := `{"worker_a":"w-1","worker_b":"w-2","day":"2026-03-02"}`
	req := httptest.NewRequest(http.MethodPost, "/api/staff/locations/loc-1/shifts/swap", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "loc-1", "staff"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestOwnerOnlyRoutes(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubStaff{})

	body := `{"name":"New Worker"}`
	req := httptest.NewRequest(http.MethodPost, "/api/staff/locations/loc-1/workers/", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "loc-1", "staff"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/staff/locations/loc-1/workers/", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "loc-1", "owner"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateStaffOwnerOnly(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubStaff{})

	body := `{"email":"new@example.com","password":"longenoughpw","role":"staff"}`
	req := httptest.NewRequest(http.MethodPost, "/api/staff/locations/loc-1/staff", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "loc-1", "staff"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/staff/locations/loc-1/staff", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "loc-1", "owner"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateStaffRejectsUnknownRole(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubStaff{})

	body := `{"email":"new@example.com","password":"longenoughpw","role":"superadmin"}`
	req := httptest.NewRequest(http.MethodPost, "/api/staff/locations/loc-1/staff", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "loc-1", "owner"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteBlockNotFoundIs404(t *testing.T) {
	svc := &stubService{blockErr: booking.ErrNotFound}
	router := newTestRouter(t, svc, stubStaff{})

	req := httptest.NewRequest(http.MethodDelete, "/api/staff/locations/loc-1/workers/w-1/blocks/missing", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "loc-1", "staff"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUncancelConflictIs409(t *testing.T) {
	svc := &stubService{statusErr: booking.ErrSlotTaken}
	router := newTestRouter(t, svc, stubStaff{})

	body := `{"status":"confirmed"}`
	req := httptest.NewRequest(http.MethodPost, "/api/staff/locations/loc-1/appointments/appt-1/status", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "loc-1", "staff"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestPutShiftSettingsValidatesOrdering(t *testing.T) {
	router := newTestRouter(t, &stubService{}, stubStaff{})

	// Morning runs into the afternoon window.
	body := `{"work_start":"08:00","work_end":"20:00","morning_start":"09:00","morning_end":"15:00","afternoon_start":"14:00","afternoon_end":"18:00"}`
	req := httptest.NewRequest(http.MethodPut, "/api/staff/locations/loc-1/shift-settings", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "loc-1", "owner"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
