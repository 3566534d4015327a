package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/evn/attendance_backendl/internal/auth"
	"github.com/evn/attendance_backendl/internal/middleware"
	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/pkg/response"
	"github.com/evn/attendance_backendl/internal/untime"
)

// StaffDirectory resolves the login username to an account.
type StaffDirectory interface {
	ByUsername(ctx context.Context, username string) (*models.Staff, error)
}

// SessionRegistry records which staff are currently logged in.
type SessionRegistry interface {
	MarkLoggedIn(ctx context.Context, staffID string) error
	Revoke(ctx context.Context, staffIDs ...string) error
}

// PolicyEvaluator runs the shift-authorization check for a staff member.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, staffID string) (untime.Decision, error)
}

// AuthHandler exchanges a username for a bearer token and registers the
// login session so the enforcement jobs can revoke it. Credential
// verification is delegated to the identity provider in front of this
// service.
type AuthHandler struct {
	staff    StaffDirectory
	jwt      *auth.JWTService
	sessions SessionRegistry
	policy   PolicyEvaluator
}

func NewAuthHandler(staff StaffDirectory, jwt *auth.JWTService, sessionStore SessionRegistry, policy PolicyEvaluator) *AuthHandler {
	return &AuthHandler{staff: staff, jwt: jwt, sessions: sessionStore, policy: policy}
}

type loginRequest struct {
	Username string `json:"username"`
}

// Login authenticates and evaluates policy in the same breath: logging in
// off-schedule opens an exception just like an attendance mark would, and a
// blocked account never gets a token. A blocking decision alone is not fatal;
// the client still logs in and is shown the exception state.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	staff, err := h.staff.ByUsername(r.Context(), req.Username)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if staff == nil {
		response.RespondWithError(w, http.StatusUnauthorized, "Unknown staff member")
		return
	}
	if staff.IsBlocked {
		respondDomainError(w, untime.ErrStaffBlocked)
		return
	}
	decision, err := h.policy.Evaluate(r.Context(), staff.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	token, err := h.jwt.GenerateToken(staff.ID, staff.Username, staff.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.sessions.MarkLoggedIn(r.Context(), staff.ID); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"staff":    staff,
		"decision": decision,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.StaffID(r.Context())
	if staffID == "" {
		response.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err := h.sessions.Revoke(r.Context(), staffID); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
