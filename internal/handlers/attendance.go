package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evn/attendance_backendl/internal/attendance"
	"github.com/evn/attendance_backendl/internal/middleware"
	"github.com/evn/attendance_backendl/internal/pkg/response"
)

type AttendanceHandler struct {
	ledger *attendance.Ledger
}

func NewAttendanceHandler(ledger *attendance.Ledger) *AttendanceHandler {
	return &AttendanceHandler{ledger: ledger}
}

type markRequest struct {
	Code string `json:"code"`
	Kind string `json:"kind"`
}

// Mark is the staff clock-in/out endpoint. The QR code and the policy gate
// both run inside the ledger.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.StaffID(r.Context())
	if staffID == "" {
		response.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var req markRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	kind := attendance.MarkKind(req.Kind)
	switch kind {
	case attendance.MarkIn, attendance.MarkOut, attendance.MarkOvertimeIn, attendance.MarkOvertimeOut:
	default:
		response.RespondWithError(w, http.StatusBadRequest, "Unknown mark kind")
		return
	}

	rec, err := h.ledger.Mark(r.Context(), staffID, req.Code, kind)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, rec)
}

// Today returns the caller's own ledger row for the current date.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.StaffID(r.Context())
	if staffID == "" {
		response.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	rec, err := h.ledger.Today(r.Context(), staffID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, rec)
}

// ByDate lists every ledger row on a date, admin only.
func (h *AttendanceHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}
	recs, err := h.ledger.ByDate(r.Context(), date)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, recs)
}

// ByStaff lists one staff member's rows over a range, admin only.
func (h *AttendanceHandler) ByStaff(w http.ResponseWriter, r *http.Request) {
	staffID := chi.URLParam(r, "staffID")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if _, err := time.Parse("2006-01-02", from); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid from date")
		return
	}
	if _, err := time.Parse("2006-01-02", to); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid to date")
		return
	}
	recs, err := h.ledger.ByStaff(r.Context(), staffID, from, to)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, recs)
}

// ForceClose runs the end-of-day forced close on demand, without waiting
// for the scheduled trigger.
func (h *AttendanceHandler) ForceClose(w http.ResponseWriter, r *http.Request) {
	closed, err := h.ledger.ForceCloseOpenToday(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]any{"closed": closed})
}

type updateTimesRequest struct {
	TimeIn  *time.Time `json:"time_in"`
	TimeOut *time.Time `json:"time_out"`
}

// UpdateTimes is the administrative correction endpoint.
func (h *AttendanceHandler) UpdateTimes(w http.ResponseWriter, r *http.Request) {
	staffID := chi.URLParam(r, "staffID")
	date := chi.URLParam(r, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}
	var req updateTimesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rec, err := h.ledger.UpdateTimes(r.Context(), staffID, date, req.TimeIn, req.TimeOut, middleware.StaffID(r.Context()))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, rec)
}
