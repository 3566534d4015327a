// Package qr manages the rotating check-in codes used as liveness proof for
// clock-in/out. At most one session is active at any time.
package qr

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/evn/attendance_backendl/internal/clockutil"
	"github.com/evn/attendance_backendl/internal/models"
)

var (
	ErrSessionInvalid = errors.New("qr session invalid")
	ErrSessionExpired = errors.New("qr session expired")
)

// DefaultTTL matches the kiosk rotation period.
const DefaultTTL = 3 * time.Minute

type Store interface {
	DeactivateActive(ctx context.Context) error
	DeactivateExpired(ctx context.Context, now time.Time) error
	Deactivate(ctx context.Context, id string) error
	Insert(ctx context.Context, s *models.QRSession) error
	Active(ctx context.Context) (*models.QRSession, error)
	ByCode(ctx context.Context, code string) (*models.QRSession, error)
}

type Manager struct {
	store Store
	clock *clockutil.Clock
}

func NewManager(store Store, clock *clockutil.Clock) *Manager {
	return &Manager{store: store, clock: clock}
}

// Rotate deactivates any currently active session and issues a fresh one.
func (m *Manager) Rotate(ctx context.Context, createdBy string, ttl time.Duration) (*models.QRSession, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := m.store.DeactivateActive(ctx); err != nil {
		return nil, err
	}
	now := m.clock.Now()
	s := &models.QRSession{
		ID:        uuid.NewString(),
		Code:      uuid.NewString(),
		CreatedBy: createdBy,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Active:    true,
	}
	if err := m.store.Insert(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Current lazily expires stale sessions and returns the active one, or nil.
func (m *Manager) Current(ctx context.Context) (*models.QRSession, error) {
	if err := m.store.DeactivateExpired(ctx, m.clock.Now()); err != nil {
		return nil, err
	}
	return m.store.Active(ctx)
}

// Redeem validates a presented code. Redemption does not consume the
// session; expired matches are deactivated as a side effect.
func (m *Manager) Redeem(ctx context.Context, code string) (*models.QRSession, error) {
	s, err := m.store.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionInvalid
	}
	if !s.Usable(m.clock.Now()) {
		if err := m.store.Deactivate(ctx, s.ID); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}
	return s, nil
}
