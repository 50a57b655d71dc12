package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/slotline/slotline/libs/httpx"
	"github.com/slotline/slotline/services/booking-service/internal/booking"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
	"github.com/slotline/slotline/services/booking-service/internal/storage"
)

// locationScope returns the location the token is allowed to act on, refusing
// requests whose URL names somebody else's location.
func (h *Handler) locationScope(w http.ResponseWriter, r *http.Request) (string, bool) {
	locationID := chi.URLParam(r, "locationID")
	claims := staffClaims(r.Context())
	if claims == nil || claims.LocationID != locationID {
		httpx.WriteError(w, http.StatusForbidden, "token is scoped to another location")
		return "", false
	}
	return locationID, true
}

type blockView struct {
	BlockID string `json:"block_id"`
	Day     string `json:"day"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Note    string `json:"note,omitempty"`
}

type createBlockRequest struct {
	Day   string `json:"day" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
	Note  string `json:"note" validate:"max=500"`
}

// CreateBlock handles POST /api/staff/locations/{locationID}/workers/{workerID}/blocks.
func (h *Handler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	var req createBlockRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.svc.Block(r.Context(), booking.BlockRequest{
		LocationID: locationID,
		WorkerID:   chi.URLParam(r, "workerID"),
		Day:        req.Day,
		Start:      req.Start,
		End:        req.End,
		Note:       req.Note,
	})
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, blockView{
		BlockID: id,
		Day:     req.Day,
		Start:   req.Start,
		End:     req.End,
		Note:    req.Note,
	})
}

// UpdateBlock handles PUT /api/staff/locations/{locationID}/workers/{workerID}/blocks/{blockID}.
func (h *Handler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	var req createBlockRequest
	if !h.decode(w, r, &req) {
		return
	}

	blockID := chi.URLParam(r, "blockID")
	err := h.svc.UpdateBlock(r.Context(), booking.UpdateBlockRequest{
		LocationID: locationID,
		WorkerID:   chi.URLParam(r, "workerID"),
		BlockID:    blockID,
		Day:        req.Day,
		Start:      req.Start,
		End:        req.End,
		Note:       req.Note,
	})
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, blockView{
		BlockID: blockID,
		Day:     req.Day,
		Start:   req.Start,
		End:     req.End,
		Note:    req.Note,
	})
}

// DeleteBlock handles DELETE /api/staff/locations/{locationID}/workers/{workerID}/blocks/{blockID}.
func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteBlock(r.Context(), locationID, chi.URLParam(r, "blockID")); err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// SetStatus handles POST /api/staff/locations/{locationID}/appointments/{appointmentID}/status.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	var req setStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	actor := staffClaims(r.Context()).Sub
	updated, err := h.svc.SetStatus(r.Context(), locationID, chi.URLParam(r, "appointmentID"),
		model.AppointmentStatus(req.Status), actor, req.Reason)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewAppointment(updated))
}

type swapShiftsRequest struct {
	WorkerA string `json:"worker_a" validate:"required"`
	WorkerB string `json:"worker_b" validate:"required"`
	Day     string `json:"day" validate:"required"`
}

// SwapShifts handles POST /api/staff/locations/{locationID}/shifts/swap.
func (h *Handler) SwapShifts(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	var req swapShiftsRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.SwapShifts(r.Context(), locationID, req.WorkerA, req.WorkerB, req.Day); err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "swapped"})
}

type cancelDayRequest struct {
	Day    string `json:"day" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

// CancelDay handles POST /api/staff/locations/{locationID}/workers/{workerID}/cancel-day.
func (h *Handler) CancelDay(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	var req cancelDayRequest
	if !h.decode(w, r, &req) {
		return
	}

	actor := staffClaims(r.Context()).Sub
	n, err := h.svc.CancelDay(r.Context(), locationID, chi.URLParam(r, "workerID"), req.Day, actor, req.Reason)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"cancelled": n})
}

type planWeekRequest struct {
	From     string            `json:"from" validate:"required"`
	Until    string            `json:"until" validate:"required"`
	Template map[string]string `json:"template" validate:"required"`
}

var weekdayNames = map[string]int{
	"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
	"thursday": 4, "friday": 5, "saturday": 6,
}

// PlanWeek handles POST /api/staff/locations/{locationID}/workers/{workerID}/plan.
// The template maps weekday names to shift types; days it omits become off.
func (h *Handler) PlanWeek(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	var req planWeekRequest
	if !h.decode(w, r, &req) {
		return
	}

	tpl := schedule.WeeklyTemplate{}
	for name, shiftType := range req.Template {
		wd, ok := weekdayNames[name]
		if !ok {
			httpx.WriteFieldError(w, http.StatusUnprocessableEntity, "template", "unknown weekday "+name)
			return
		}
		st := model.ShiftType(shiftType)
		if !st.Valid() {
			httpx.WriteFieldError(w, http.StatusUnprocessableEntity, "template", "unknown shift type "+shiftType)
			return
		}
		tpl[time.Weekday(wd)] = st
	}

	n, err := h.svc.PlanWeek(r.Context(), locationID, chi.URLParam(r, "workerID"), tpl, req.From, req.Until)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"days_planned": n})
}

// DaySchedule handles GET /api/staff/locations/{locationID}/workers/{workerID}/day?day=...
func (h *Handler) DaySchedule(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	day := r.URL.Query().Get("day")
	if day == "" {
		httpx.WriteError(w, http.StatusBadRequest, "day query param required")
		return
	}

	appts, blocks, err := h.svc.DaySchedule(r.Context(), locationID, chi.URLParam(r, "workerID"), day)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	apptViews := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		apptViews = append(apptViews, viewAppointment(a))
	}
	blockViews := make([]blockView, 0, len(blocks))
	for _, b := range blocks {
		blockViews = append(blockViews, blockView{
			BlockID: b.ID,
			Day:     b.Day,
			Start:   schedule.FormatClock(b.StartMinute),
			End:     schedule.FormatClock(b.EndMinute),
			Note:    b.Note,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"day":          day,
		"appointments": apptViews,
		"blocks":       blockViews,
	})
}

type createLocationRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	MaxActiveWorkers int    `json:"max_active_workers" validate:"required,min=1,max=500"`
}

// CreateLocation handles POST /api/staff/locations. It is not scoped to the
// caller's location: owners use it to bootstrap additional locations.
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.admin.CreateLocation(r.Context(), req.Name, req.MaxActiveWorkers)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"location_id": id})
}

type createWorkerRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// ListWorkers handles GET /api/staff/locations/{locationID}/workers.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	workers, err := h.admin.ListWorkers(r.Context(), locationID)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"workers": workers})
}

// CreateWorker handles POST /api/staff/locations/{locationID}/workers.
// New workers start inactive; activation is the capacity-checked step.
func (h *Handler) CreateWorker(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	var req createWorkerRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.admin.CreateWorker(r.Context(), locationID, req.Name)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"worker_id": id})
}

// ActivateWorker handles POST /api/staff/locations/{locationID}/workers/{workerID}/activate.
func (h *Handler) ActivateWorker(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	err := h.admin.ActivateWorker(r.Context(), locationID, chi.URLParam(r, "workerID"))
	if err != nil {
		if errors.Is(err, storage.ErrCapacityReached) {
			httpx.WriteError(w, http.StatusConflict, "location worker capacity reached")
			return
		}
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

type createServiceRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// CreateService handles POST /api/staff/locations/{locationID}/services.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	var req createServiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.admin.CreateService(r.Context(), locationID, req.Name)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"service_id": id})
}

type upsertWorkerServiceRequest struct {
	ServiceID       string `json:"service_id" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1,max=720"`
	Price           string `json:"price" validate:"required"`
	IsActive        *bool  `json:"is_active"`
}

// UpsertWorkerService handles PUT /api/staff/locations/{locationID}/workers/{workerID}/services.
func (h *Handler) UpsertWorkerService(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.locationScope(w, r); !ok {
		return
	}
	var req upsertWorkerServiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		httpx.WriteFieldError(w, http.StatusUnprocessableEntity, "price", "must be a non-negative decimal")
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	id, err := h.admin.UpsertWorkerService(r.Context(), model.WorkerService{
		WorkerID:        chi.URLParam(r, "workerID"),
		ServiceID:       req.ServiceID,
		DurationMinutes: req.DurationMinutes,
		Price:           price,
		IsActive:        active,
	})
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"worker_service_id": id})
}

type shiftSettingsRequest struct {
	WorkStart      string `json:"work_start" validate:"required"`
	WorkEnd        string `json:"work_end" validate:"required"`
	MorningStart   string `json:"morning_start" validate:"required"`
	MorningEnd     string `json:"morning_end" validate:"required"`
	AfternoonStart string `json:"afternoon_start" validate:"required"`
	AfternoonEnd   string `json:"afternoon_end" validate:"required"`
}

type shiftSettingsView struct {
	WorkStart      string `json:"work_start"`
	WorkEnd        string `json:"work_end"`
	MorningStart   string `json:"morning_start"`
	MorningEnd     string `json:"morning_end"`
	AfternoonStart string `json:"afternoon_start"`
	AfternoonEnd   string `json:"afternoon_end"`
}

// GetShiftSettings handles GET /api/staff/locations/{locationID}/shift-settings.
func (h *Handler) GetShiftSettings(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	s, err := h.admin.GetShiftSettings(r.Context(), locationID)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	if s == nil {
		httpx.WriteError(w, http.StatusNotFound, "shift settings not configured")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, shiftSettingsView{
		WorkStart:      schedule.FormatClock(s.WorkStart),
		WorkEnd:        schedule.FormatClock(s.WorkEnd),
		MorningStart:   schedule.FormatClock(s.MorningStart),
		MorningEnd:     schedule.FormatClock(s.MorningEnd),
		AfternoonStart: schedule.FormatClock(s.AfternoonStart),
		AfternoonEnd:   schedule.FormatClock(s.AfternoonEnd),
	})
}

// PutShiftSettings handles PUT /api/staff/locations/{locationID}/shift-settings.
func (h *Handler) PutShiftSettings(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	var req shiftSettingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	settings := model.ShiftSettings{LocationID: locationID}
	type clockField struct {
		name string
		raw  string
		dst  *int
	}
	for _, f := range []clockField{
		{"work_start", req.WorkStart, &settings.WorkStart},
		{"work_end", req.WorkEnd, &settings.WorkEnd},
		{"morning_start", req.MorningStart, &settings.MorningStart},
		{"morning_end", req.MorningEnd, &settings.MorningEnd},
		{"afternoon_start", req.AfternoonStart, &settings.AfternoonStart},
		{"afternoon_end", req.AfternoonEnd, &settings.AfternoonEnd},
	} {
		mins, ok := schedule.ParseClock(f.raw)
		if !ok {
			httpx.WriteFieldError(w, http.StatusUnprocessableEntity, f.name, "must be HH:mm")
			return
		}
		*f.dst = mins
	}

	if err := schedule.ValidateSettings(settings); err != nil {
		httpx.WriteFieldError(w, http.StatusUnprocessableEntity, "shift_settings", err.Error())
		return
	}
	if err := h.admin.UpsertShiftSettings(r.Context(), settings); err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
