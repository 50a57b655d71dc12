// Package handlers is the HTTP surface of the booking service. Handlers
// decode, validate and translate; all calendar decisions live in the booking
// package.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/slotline/slotline/libs/httpx"
	"github.com/slotline/slotline/services/booking-service/internal/booking"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

// BookingService is the slice of the booking service the handlers call.
type BookingService interface {
	Book(ctx context.Context, req booking.BookRequest) (model.Appointment, error)
	Slots(ctx context.Context, locationID, workerID, serviceID, day string) ([]string, error)
	Block(ctx context.Context, req booking.BlockRequest) (string, error)
	UpdateBlock(ctx context.Context, req booking.UpdateBlockRequest) error
	DeleteBlock(ctx context.Context, locationID, blockID string) error
	SetStatus(ctx context.Context, locationID, appointmentID string, next model.AppointmentStatus, actor, reason string) (model.Appointment, error)
	SwapShifts(ctx context.Context, locationID, workerA, workerB, day string) error
	CancelDay(ctx context.Context, locationID, workerID, day, actor, reason string) (int, error)
	PlanWeek(ctx context.Context, locationID, workerID string, tpl schedule.WeeklyTemplate, from, until string) (int, error)
	DaySchedule(ctx context.Context, locationID, workerID, day string) ([]model.Appointment, []model.CalendarBlock, error)
}

// AdminStore covers the configuration writes that bypass the booking engine.
type AdminStore interface {
	CreateLocation(ctx context.Context, name string, maxActiveWorkers int) (string, error)
	ListWorkers(ctx context.Context, locationID string) ([]model.Worker, error)
	CreateWorker(ctx context.Context, locationID, name string) (string, error)
	ActivateWorker(ctx context.Context, locationID, workerID string) error
	CreateService(ctx context.Context, locationID, name string) (string, error)
	UpsertWorkerService(ctx context.Context, ws model.WorkerService) (string, error)
	GetShiftSettings(ctx context.Context, locationID string) (*model.ShiftSettings, error)
	UpsertShiftSettings(ctx context.Context, s model.ShiftSettings) error
}

type Handler struct {
	svc      BookingService
	admin    AdminStore
	staff    StaffStore
	logger   *slog.Logger
	validate *validator.Validate
	secret   string
}

func NewHandler(svc BookingService, admin AdminStore, staff StaffStore, logger *slog.Logger, secret string) *Handler {
	return &Handler{
		svc:      svc,
		admin:    admin,
		staff:    staff,
		logger:   logger,
		validate: validator.New(),
		secret:   secret,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			httpx.WriteFieldError(w, http.StatusUnprocessableEntity, verrs[0].Field(), "failed validation "+verrs[0].Tag())
			return false
		}
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid request")
		return false
	}
	return true
}

// writeBookingError maps the booking error taxonomy onto HTTP statuses:
// caller mistakes 422, contention 409, missing 404, the rest 500.
func (h *Handler) writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteFieldError(w, http.StatusUnprocessableEntity, verr.Field, verr.Reason)
	case errors.Is(err, booking.ErrSlotTaken):
		httpx.WriteError(w, http.StatusConflict, "time slot already taken")
	case errors.Is(err, booking.ErrSwapBlocked):
		httpx.WriteError(w, http.StatusConflict, "shift swap blocked by existing appointments")
	case errors.Is(err, booking.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not found")
	default:
		h.logger.Error("request failed",
			"err", err,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
