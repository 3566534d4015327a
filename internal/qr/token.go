package qr

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evn/attendance_backendl/internal/clockutil"
	"github.com/evn/attendance_backendl/internal/models"
)

// LinkSigner mints short-lived signed tokens wrapping a session code, so the
// kiosk deep link cannot be forged or replayed past the session expiry.
type LinkSigner struct {
	secret []byte
	clock  *clockutil.Clock
}

func NewLinkSigner(secret string, clock *clockutil.Clock) *LinkSigner {
	return &LinkSigner{secret: []byte(secret), clock: clock}
}

func (s *LinkSigner) Sign(session *models.QRSession) (string, error) {
	claims := jwt.MapClaims{
		"code": session.Code,
		"exp":  session.ExpiresAt.Unix(),
		"iat":  s.clock.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign qr link: %w", err)
	}
	return signed, nil
}

// Verify returns the embedded session code, or ErrSessionInvalid when the
// token does not check out. Expiry of the session itself is still decided by
// the store on redemption.
func (s *LinkSigner) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.clock.Now() }))
	if err != nil || !token.Valid {
		return "", ErrSessionInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrSessionInvalid
	}
	code, ok := claims["code"].(string)
	if !ok || code == "" {
		return "", ErrSessionInvalid
	}
	return code, nil
}
