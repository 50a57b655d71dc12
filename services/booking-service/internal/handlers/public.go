package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slotline/slotline/libs/httpx"
	"github.com/slotline/slotline/services/booking-service/internal/booking"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

type appointmentView struct {
	AppointmentID string `json:"appointment_id"`
	WorkerID      string `json:"worker_id"`
	ServiceName   string `json:"service_name"`
	Price         string `json:"price"`
	Day           string `json:"day"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Status        string `json:"status"`
	CancelledBy   string `json:"cancelled_by,omitempty"`
	CancelReason  string `json:"cancel_reason,omitempty"`
}

func viewAppointment(a model.Appointment) appointmentView {
	return appointmentView{
		AppointmentID: a.ID,
		WorkerID:      a.WorkerID,
		ServiceName:   a.ServiceName,
		Price:         a.ServicePrice.StringFixed(2),
		Day:           a.Day,
		Start:         schedule.FormatClock(a.StartMinute),
		End:           schedule.FormatClock(a.EndMinute),
		Status:        string(a.Status),
		CancelledBy:   a.CancelledBy,
		CancelReason:  a.CancelReason,
	}
}

// Slots handles GET /api/locations/{locationID}/workers/{workerID}/slots.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")
	workerID := chi.URLParam(r, "workerID")
	serviceID := r.URL.Query().Get("service_id")
	day := r.URL.Query().Get("day")
	if serviceID == "" || day == "" {
		httpx.WriteError(w, http.StatusBadRequest, "service_id and day query params required")
		return
	}

	starts, err := h.svc.Slots(r.Context(), locationID, workerID, serviceID, day)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"day":   day,
		"slots": starts,
	})
}

type bookRequest struct {
	ServiceID   string `json:"service_id" validate:"required"`
	Day         string `json:"day" validate:"required"`
	Start       string `json:"start" validate:"required"`
	ClientName  string `json:"client_name" validate:"required"`
	ClientEmail string `json:"client_email" validate:"omitempty,email"`
	ClientPhone string `json:"client_phone" validate:"omitempty,min=5,max=32"`
}

// Book handles POST /api/locations/{locationID}/workers/{workerID}/appointments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.svc.Book(r.Context(), booking.BookRequest{
		LocationID:  chi.URLParam(r, "locationID"),
		WorkerID:    chi.URLParam(r, "workerID"),
		ServiceID:   req.ServiceID,
		Day:         req.Day,
		Start:       req.Start,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
	})
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, viewAppointment(created))
}
