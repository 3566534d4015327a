// Package handlers is the HTTP boundary: request decoding, error mapping,
// and JSON responses. All domain rules live below it.
package handlers

import (
	"errors"
	"net/http"

	"github.com/evn/attendance_backendl/internal/attendance"
	"github.com/evn/attendance_backendl/internal/leave"
	"github.com/evn/attendance_backendl/internal/pkg/response"
	"github.com/evn/attendance_backendl/internal/qr"
	"github.com/evn/attendance_backendl/internal/schedule"
	"github.com/evn/attendance_backendl/internal/untime"
)

// respondDomainError maps a domain error onto a status and JSON body. A
// policy block carries its reason so clients can show the right message.
func respondDomainError(w http.ResponseWriter, err error) {
	var blocked *untime.BlockedError
	if errors.As(err, &blocked) {
		response.RespondWithJSON(w, http.StatusForbidden, map[string]string{
			"error":  "blocked",
			"reason": string(blocked.Reason),
		})
		return
	}
	var outside *schedule.OutsideGlobalError
	if errors.As(err, &outside) {
		response.RespondWithError(w, http.StatusBadRequest, outside.Error())
		return
	}

	switch {
	case errors.Is(err, qr.ErrSessionInvalid):
		response.RespondWithError(w, http.StatusUnauthorized, "QR session invalid")
	case errors.Is(err, qr.ErrSessionExpired):
		response.RespondWithError(w, http.StatusUnauthorized, "QR session expired")
	case errors.Is(err, attendance.ErrAlreadyIn):
		response.RespondWithError(w, http.StatusConflict, "Already clocked in")
	case errors.Is(err, attendance.ErrAlreadyOut):
		response.RespondWithError(w, http.StatusConflict, "Already clocked out")
	case errors.Is(err, attendance.ErrNoOpenSession):
		response.RespondWithError(w, http.StatusConflict, "No open attendance session")
	case errors.Is(err, attendance.ErrInvalidTimes):
		response.RespondWithError(w, http.StatusBadRequest, "Time out must be after time in")
	case errors.Is(err, untime.ErrNoActiveException):
		response.RespondWithError(w, http.StatusNotFound, "No active untime exception")
	case errors.Is(err, untime.ErrInvalidDuration):
		response.RespondWithError(w, http.StatusBadRequest, "Invalid untime duration")
	case errors.Is(err, untime.ErrNotApproved):
		response.RespondWithError(w, http.StatusForbidden, "Untime exception is not approved")
	case errors.Is(err, untime.ErrStaffBlocked):
		response.RespondWithError(w, http.StatusForbidden, "Staff account is blocked")
	case errors.Is(err, leave.ErrNotFound):
		response.RespondWithError(w, http.StatusNotFound, "Leave request not found")
	case errors.Is(err, leave.ErrBalanceExceeded):
		response.RespondWithError(w, http.StatusBadRequest, "Leave balance exceeded")
	case errors.Is(err, leave.ErrNotPending):
		response.RespondWithError(w, http.StatusConflict, "Leave request is not pending")
	default:
		response.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
