package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/evn/attendance_backendl/internal/pkg/response"
)

type contextKey string

const staffIDKey contextKey = "staff_id"

// StaffID extracts the authenticated staff id from the request context, set
// by AddStaffToContext. Empty when the request is unauthenticated.
func StaffID(ctx context.Context) string {
	id, _ := ctx.Value(staffIDKey).(string)
	return id
}

// AddStaffToContext copies the staff_id claim from a verified JWT into the
// request context. Requests without a token pass through untouched; the
// authenticator decides whether that is acceptable.
func AddStaffToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				next.ServeHTTP(w, r)
				return
			}
			claims := token.PrivateClaims()
			if id, ok := claims["staff_id"].(string); ok && id != "" {
				r = r.WithContext(context.WithValue(r.Context(), staffIDKey, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly gates administrative routes on the role claim.
func AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				response.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			claims := token.PrivateClaims()
			if role, _ := claims["role"].(string); role != "admin" {
				response.RespondWithError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
