package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evn/attendance_backendl/internal/leave"
	"github.com/evn/attendance_backendl/internal/middleware"
	"github.com/evn/attendance_backendl/internal/pkg/response"
)

type LeaveHandler struct {
	registry *leave.Registry
}

func NewLeaveHandler(registry *leave.Registry) *LeaveHandler {
	return &LeaveHandler{registry: registry}
}

type leaveRequestBody struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

func (h *LeaveHandler) Request(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.StaffID(r.Context())
	if staffID == "" {
		response.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var body leaveRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := time.Parse("2006-01-02", body.StartDate); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid start date")
		return
	}
	if _, err := time.Parse("2006-01-02", body.EndDate); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid end date")
		return
	}
	req, err := h.registry.Request(r.Context(), staffID, body.StartDate, body.EndDate, body.Reason)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	response.RespondWithJSON(w, http.StatusCreated, req)
}

func (h *LeaveHandler) List(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.registry.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, reqs)
}

func (h *LeaveHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Approve(r.Context(), chi.URLParam(r, "requestID")); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *LeaveHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Reject(r.Context(), chi.URLParam(r, "requestID")); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *LeaveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), chi.URLParam(r, "requestID")); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
