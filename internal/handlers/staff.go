package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/pkg/response"
	"github.com/evn/attendance_backendl/internal/repositories"
	"github.com/evn/attendance_backendl/internal/sessions"
)

type StaffHandler struct {
	staff    *repositories.StaffRepository
	sessions *sessions.Store
}

func NewStaffHandler(staff *repositories.StaffRepository, sessionStore *sessions.Store) *StaffHandler {
	return &StaffHandler{staff: staff, sessions: sessionStore}
}

func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	staff, err := h.staff.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, staff)
}

func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.staff.ByID(r.Context(), chi.URLParam(r, "staffID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if s == nil {
		response.RespondWithError(w, http.StatusNotFound, "Staff member not found")
		return
	}
	response.RespondWithJSON(w, http.StatusOK, s)
}

type createStaffRequest struct {
	Username         string `json:"username"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	LeaveEntitlement int    `json:"leave_entitlement"`
}

func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = "staff"
	}
	if req.LeaveEntitlement <= 0 {
		req.LeaveEntitlement = 15
	}
	s := &models.Staff{
		ID:               uuid.NewString(),
		Username:         req.Username,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Role:             req.Role,
		LeaveBalance:     req.LeaveEntitlement,
		LeaveEntitlement: req.LeaveEntitlement,
		CreatedAt:        time.Now().UTC(),
	}
	if err := h.staff.Create(r.Context(), s); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusCreated, s)
}

type blockRequest struct {
	Blocked bool `json:"blocked"`
}

// SetBlocked blocks or unblocks the account. Blocking also revokes any live
// login session immediately.
func (h *StaffHandler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	staffID := chi.URLParam(r, "staffID")
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.staff.SetBlocked(r.Context(), staffID, req.Blocked); err != nil {
		respondDomainError(w, err)
		return
	}
	if req.Blocked {
		if err := h.sessions.Revoke(r.Context(), staffID); err != nil {
			respondDomainError(w, err)
			return
		}
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]any{"blocked": req.Blocked})
}
