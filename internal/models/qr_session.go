package models

import "time"

// QRSession is one rotating check-in code. At most one session is active at
// any time; rows are retained after deactivation for audit.
type QRSession struct {
	ID        string    `json:"id"`
	Code      string    `json:"session_code"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
}

// Usable reports whether the session can still be redeemed at the instant.
func (s *QRSession) Usable(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}
