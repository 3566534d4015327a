// Package untime is the shift-authorization engine. Every attendance action
// and every enforcement tick funnels through Evaluate, which reconciles the
// day's ledger, approved leave and the resolved shift window into a single
// Decision, and keeps the per-staff off-schedule exception in step with it.
package untime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/evn/attendance_backendl/internal/clockutil"
	"github.com/evn/attendance_backendl/internal/models"
)

var (
	ErrNoActiveException = errors.New("no active untime exception")
	ErrInvalidDuration   = errors.New("invalid untime duration")
	ErrNotApproved       = errors.New("untime exception is not approved")
	ErrStaffBlocked      = errors.New("staff account is blocked")
)

// BlockedError is the user-facing "policy denied this action" outcome.
type BlockedError struct {
	Reason models.UnTimeReason
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("attendance action blocked: %s", e.Reason)
}

const (
	// DefaultDurationMinutes is the grace period a freshly created exception
	// grants before the enforcer times it out.
	DefaultDurationMinutes = 10
	// MaxDurationMinutes caps manual extensions.
	MaxDurationMinutes = 60
)

// Decision is the outcome of one policy evaluation. The precedence of the
// blocking reasons is a contract: ended, then on-leave, then outside-window.
type Decision struct {
	Allowed     bool
	Reason      models.UnTimeReason
	WindowStart time.Time
	WindowEnd   time.Time
}

// Tx is one staff member's authorization row, held under an exclusive lock
// for the duration of an engine operation.
type Tx interface {
	Exception() (*models.UnTimeException, error)
	SaveException(e *models.UnTimeException) error
	ClearException() error
	Blocked() (bool, error)
	SetBlocked(blocked bool) error
	ShiftEndedToday(date string) (bool, error)
	AppendSession(date string, s models.UnTimeSession) error
}

type Store interface {
	// RunLocked serializes all transitions for one staff member; concurrent
	// calls for different staff proceed independently.
	RunLocked(ctx context.Context, staffID string, fn func(tx Tx) error) error
	// ActiveExceptionStaff lists staff ids with an active exception.
	ActiveExceptionStaff(ctx context.Context) ([]string, error)
}

type WindowResolver interface {
	Resolve(ctx context.Context, staffID string, date time.Time) (*models.ShiftWindow, error)
}

type LeaveChecker interface {
	OnLeave(ctx context.Context, staffID, date string) (bool, error)
}

type Engine struct {
	store   Store
	windows WindowResolver
	leaves  LeaveChecker
	clock   *clockutil.Clock
}

func NewEngine(store Store, windows WindowResolver, leaves LeaveChecker, clock *clockutil.Clock) *Engine {
	return &Engine{store: store, windows: windows, leaves: leaves, clock: clock}
}

// Evaluate decides whether the staff member may act right now. Blocked
// accounts fail with ErrStaffBlocked before any policy branch runs. On a
// blocking reason an exception is opened if none is active (idempotent
// otherwise), except that an already-approved exception authorizes the
// action while staying active. On an in-window decision any active exception
// is folded into the day's ledger and cleared. Every call re-reads the
// store; nothing is cached.
func (e *Engine) Evaluate(ctx context.Context, staffID string) (Decision, error) {
	var d Decision
	err := e.store.RunLocked(ctx, staffID, func(tx Tx) error {
		now := e.clock.Now()
		today := e.clock.DateOf(now)

		blocked, err := tx.Blocked()
		if err != nil {
			return err
		}
		if blocked {
			return ErrStaffBlocked
		}

		exc, err := tx.Exception()
		if err != nil {
			return err
		}

		reason, ws, we, err := e.blockingReason(ctx, tx, staffID, now, today)
		if err != nil {
			return err
		}

		if reason == "" {
			// Inside the window. Fold any lingering exception back into
			// the ledger, approved or not.
			d = Decision{Allowed: true, WindowStart: ws, WindowEnd: we}
			if exc != nil {
				if err := e.foldException(tx, exc, now); err != nil {
					return err
				}
				return tx.ClearException()
			}
			return nil
		}

		// An approved exception authorizes off-schedule work; it stays
		// active until it expires, is ended, or is rejected.
		if exc != nil && exc.Approved {
			d = Decision{Allowed: true, Reason: reason, WindowStart: ws, WindowEnd: we}
			return nil
		}

		d = Decision{Reason: reason, WindowStart: ws, WindowEnd: we}
		if exc != nil {
			return nil
		}
		return tx.SaveException(&models.UnTimeException{
			Reason:          reason,
			Start:           now,
			DurationMinutes: DefaultDurationMinutes,
			Approved:        false,
		})
	})
	if err != nil {
		return Decision{}, err
	}
	return d, nil
}

// blockingReason walks the ordered policy branches and returns the first
// blocking reason, or "" when the staff member is inside their window.
func (e *Engine) blockingReason(ctx context.Context, tx Tx, staffID string, now time.Time, today string) (models.UnTimeReason, time.Time, time.Time, error) {
	var zero time.Time

	// 1. Shift already ended today.
	ended, err := tx.ShiftEndedToday(today)
	if err != nil {
		return "", zero, zero, err
	}
	if ended {
		return models.ReasonEnded, zero, zero, nil
	}

	// 2. On approved leave today.
	onLeave, err := e.leaves.OnLeave(ctx, staffID, today)
	if err != nil {
		return "", zero, zero, err
	}
	if onLeave {
		return models.ReasonOnLeave, zero, zero, nil
	}

	// 3. No shift today, or outside the margin window.
	win, err := e.windows.Resolve(ctx, staffID, now)
	if err != nil {
		return "", zero, zero, err
	}
	if win == nil {
		return models.ReasonOutsideWindow, zero, zero, nil
	}
	ws, we := e.clock.Window(now, models.DayShift{Start: win.Start, End: win.End}, win.MarginMinutes)
	if !clockutil.Contains(now, ws, we) {
		return models.ReasonOutsideWindow, ws, we, nil
	}
	return "", ws, we, nil
}

// foldException appends the exception as a closed session onto the ledger
// row of the day the exception started.
func (e *Engine) foldException(tx Tx, exc *models.UnTimeException, end time.Time) error {
	if end.Before(exc.Start) {
		end = exc.Start
	}
	return tx.AppendSession(e.clock.DateOf(exc.Start), models.UnTimeSession{
		Start:  exc.Start,
		End:    end,
		Reason: exc.Reason,
	})
}

// Approve authorizes the active exception without clearing it: the staff
// member stays in exception state but may keep working off-schedule.
func (e *Engine) Approve(ctx context.Context, staffID string) error {
	return e.store.RunLocked(ctx, staffID, func(tx Tx) error {
		exc, err := tx.Exception()
		if err != nil {
			return err
		}
		if exc == nil {
			return ErrNoActiveException
		}
		exc.Approved = true
		return tx.SaveException(exc)
	})
}

// Reject folds the exception as a session ending now, clears it, and blocks
// the account until an administrator lifts the block.
func (e *Engine) Reject(ctx context.Context, staffID string) error {
	return e.store.RunLocked(ctx, staffID, func(tx Tx) error {
		exc, err := tx.Exception()
		if err != nil {
			return err
		}
		if exc == nil {
			return ErrNoActiveException
		}
		if err := e.foldException(tx, exc, e.clock.Now()); err != nil {
			return err
		}
		if err := tx.ClearException(); err != nil {
			return err
		}
		return tx.SetBlocked(true)
	})
}

// ExtendDuration accepts only a strictly larger duration within the
// 1..MaxDurationMinutes bound and auto-approves; shrinking an
// already-communicated grace period is never allowed.
func (e *Engine) ExtendDuration(ctx context.Context, staffID string, minutes int) error {
	if minutes < 1 || minutes > MaxDurationMinutes {
		return ErrInvalidDuration
	}
	return e.store.RunLocked(ctx, staffID, func(tx Tx) error {
		exc, err := tx.Exception()
		if err != nil {
			return err
		}
		if exc == nil {
			return ErrNoActiveException
		}
		if minutes <= exc.DurationMinutes {
			return ErrInvalidDuration
		}
		exc.DurationMinutes = minutes
		exc.Approved = true
		exc.Reason = models.ReasonManualExtend
		return tx.SaveException(exc)
	})
}

// EndSelf lets staff close their own, already-approved exception early.
func (e *Engine) EndSelf(ctx context.Context, staffID string) error {
	return e.store.RunLocked(ctx, staffID, func(tx Tx) error {
		exc, err := tx.Exception()
		if err != nil {
			return err
		}
		if exc == nil {
			return ErrNoActiveException
		}
		if !exc.Approved {
			return ErrNotApproved
		}
		if err := e.foldException(tx, exc, e.clock.Now()); err != nil {
			return err
		}
		return tx.ClearException()
	})
}

// SetStatusBulk applies approve or reject semantics to every staff member
// currently flagged. A single failure is logged and skipped, never aborting
// the rest. Returns the ids that changed.
func (e *Engine) SetStatusBulk(ctx context.Context, approve bool) ([]string, error) {
	ids, err := e.store.ActiveExceptionStaff(ctx)
	if err != nil {
		return nil, err
	}
	var changed []string
	for _, id := range ids {
		var opErr error
		if approve {
			opErr = e.Approve(ctx, id)
		} else {
			opErr = e.Reject(ctx, id)
		}
		if opErr != nil {
			log.Printf("[untime] bulk status for staff %s failed: %v", id, opErr)
			continue
		}
		changed = append(changed, id)
	}
	return changed, nil
}

// EnforceExpirations closes every exception that has outlived its duration,
// exactly like Reject but without the administrative block flag: this is an
// automatic timeout, not a rejection. Returns the staff ids timed out.
func (e *Engine) EnforceExpirations(ctx context.Context) ([]string, error) {
	ids, err := e.store.ActiveExceptionStaff(ctx)
	if err != nil {
		return nil, err
	}
	var expired []string
	for _, id := range ids {
		timedOut := false
		err := e.store.RunLocked(ctx, id, func(tx Tx) error {
			exc, err := tx.Exception()
			if err != nil {
				return err
			}
			if exc == nil || !exc.ExpiredAt(e.clock.Now()) {
				return nil
			}
			if err := e.foldException(tx, exc, e.clock.Now()); err != nil {
				return err
			}
			if err := tx.ClearException(); err != nil {
				return err
			}
			timedOut = true
			return nil
		})
		if err != nil {
			log.Printf("[untime-enforcer] staff %s: %v", id, err)
			continue
		}
		if timedOut {
			expired = append(expired, id)
		}
	}
	return expired, nil
}
