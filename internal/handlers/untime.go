package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evn/attendance_backendl/internal/middleware"
	"github.com/evn/attendance_backendl/internal/pkg/response"
	"github.com/evn/attendance_backendl/internal/repositories"
	"github.com/evn/attendance_backendl/internal/untime"
)

type UnTimeHandler struct {
	engine *untime.Engine
	staff  *repositories.StaffRepository
}

func NewUnTimeHandler(engine *untime.Engine, staff *repositories.StaffRepository) *UnTimeHandler {
	return &UnTimeHandler{engine: engine, staff: staff}
}

// Status evaluates the caller's own authorization state without marking.
func (h *UnTimeHandler) Status(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.StaffID(r.Context())
	if staffID == "" {
		response.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	d, err := h.engine.Evaluate(r.Context(), staffID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, d)
}

// List returns every staff member with an active exception, admin only.
func (h *UnTimeHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.staff.ActiveExceptionStaff(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		s, err := h.staff.ByID(r.Context(), id)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		if s != nil {
			out = append(out, s)
		}
	}
	response.RespondWithJSON(w, http.StatusOK, out)
}

func (h *UnTimeHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Approve(r.Context(), chi.URLParam(r, "staffID")); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *UnTimeHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reject(r.Context(), chi.URLParam(r, "staffID")); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

type extendRequest struct {
	Minutes int `json:"minutes"`
}

func (h *UnTimeHandler) Extend(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.engine.ExtendDuration(r.Context(), chi.URLParam(r, "staffID"), req.Minutes); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "extended"})
}

// EndSelf lets staff close their own approved exception early.
func (h *UnTimeHandler) EndSelf(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.StaffID(r.Context())
	if staffID == "" {
		response.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err := h.engine.EndSelf(r.Context(), staffID); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

type bulkStatusRequest struct {
	Approve bool `json:"approve"`
}

// BulkStatus approves or rejects every active exception in one call.
func (h *UnTimeHandler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	changed, err := h.engine.SetStatusBulk(r.Context(), req.Approve)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]any{"changed": changed})
}
