package handlers

import (
	"net/http"
	"time"

	"github.com/evn/attendance_backendl/internal/middleware"
	"github.com/evn/attendance_backendl/internal/pkg/response"
	"github.com/evn/attendance_backendl/internal/qr"
)

type QRHandler struct {
	manager *qr.Manager
	signer  *qr.LinkSigner
}

func NewQRHandler(manager *qr.Manager, signer *qr.LinkSigner) *QRHandler {
	return &QRHandler{manager: manager, signer: signer}
}

// Rotate issues a fresh kiosk session, deactivating the previous one.
func (h *QRHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Rotate(r.Context(), middleware.StaffID(r.Context()), 0)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	link, err := h.signer.Sign(session)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"link":    link,
	})
}

// Current returns the active session with its signed link, or 404 when none
// is active. The kiosk polls this endpoint.
func (h *QRHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Current(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if session == nil {
		response.RespondWithError(w, http.StatusNotFound, "No active QR session")
		return
	}
	link, err := h.signer.Sign(session)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]any{
		"session":    session,
		"link":       link,
		"expires_in": int(time.Until(session.ExpiresAt).Seconds()),
	})
}

// Resolve verifies a signed kiosk link and returns the embedded code, so a
// scanned deep link turns into a code the mark endpoint accepts.
func (h *QRHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.RespondWithError(w, http.StatusBadRequest, "Missing token")
		return
	}
	code, err := h.signer.Verify(token)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if _, err := h.manager.Redeem(r.Context(), code); err != nil {
		respondDomainError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"code": code})
}
