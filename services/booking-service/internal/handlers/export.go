package handlers

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/slotline/slotline/libs/httpx"
	"github.com/slotline/slotline/services/booking-service/internal/report"
)

// ExportDay handles GET /api/staff/locations/{locationID}/workers/{workerID}/day.xlsx?day=...
// The sheet is built in memory first so an excelize failure never leaks a
// half-written 200 response.
func (h *Handler) ExportDay(w http.ResponseWriter, r *http.Request) {
	locationID, ok := h.locationScope(w, r)
	if !ok {
		return
	}
	workerID := chi.URLParam(r, "workerID")
	day := r.URL.Query().Get("day")
	if day == "" {
		httpx.WriteError(w, http.StatusBadRequest, "day query param required")
		return
	}

	appts, blocks, err := h.svc.DaySchedule(r.Context(), locationID, workerID, day)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteDaySchedule(&buf, workerID, day, appts, blocks); err != nil {
		h.writeBookingError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule-`+day+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
