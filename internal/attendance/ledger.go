// Package attendance keeps the one-row-per-staff-per-day ledger and the
// clock-in/out transitions over it. Every staff-initiated mark is gated by a
// redeemed QR code and a policy decision before it touches the ledger.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/evn/attendance_backendl/internal/clockutil"
	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/untime"
)

var (
	ErrAlreadyIn     = errors.New("already clocked in")
	ErrAlreadyOut    = errors.New("already clocked out")
	ErrNoOpenSession = errors.New("no open attendance session")
	ErrInvalidTimes  = errors.New("time out must be after time in")
)

// GraceMinutes is the snap window around nominal shift bounds: a clock-in up
// to this many minutes after shift start records the nominal start, and a
// clock-out up to this many minutes before shift end records the nominal end.
const GraceMinutes = 5

// MarkKind selects which of the four ledger timestamps a mark sets.
type MarkKind string

const (
	MarkIn          MarkKind = "in"
	MarkOut         MarkKind = "out"
	MarkOvertimeIn  MarkKind = "overtime-in"
	MarkOvertimeOut MarkKind = "overtime-out"
)

// Tx is one staff member's ledger row for one date, held under a row lock.
type Tx interface {
	Record() (*models.AttendanceRecord, error)
	Save(rec *models.AttendanceRecord) error
}

type Store interface {
	// RunLocked serializes all ledger writes for one staff member and date.
	RunLocked(ctx context.Context, staffID, date string, fn func(tx Tx) error) error
	// OpenOn lists records on the date with a time_in and no time_out.
	OpenOn(ctx context.Context, date string) ([]models.AttendanceRecord, error)
	ByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
	ByStaff(ctx context.Context, staffID, fromDate, toDate string) ([]models.AttendanceRecord, error)
}

// Authorizer is the policy gate every staff-initiated mark passes through.
type Authorizer interface {
	Evaluate(ctx context.Context, staffID string) (untime.Decision, error)
}

// Redeemer validates a presented QR code.
type Redeemer interface {
	Redeem(ctx context.Context, code string) (*models.QRSession, error)
}

type WindowResolver interface {
	Resolve(ctx context.Context, staffID string, date time.Time) (*models.ShiftWindow, error)
}

type Ledger struct {
	store   Store
	auth    Authorizer
	codes   Redeemer
	windows WindowResolver
	clock   *clockutil.Clock
}

func NewLedger(store Store, auth Authorizer, codes Redeemer, windows WindowResolver, clock *clockutil.Clock) *Ledger {
	return &Ledger{store: store, auth: auth, codes: codes, windows: windows, clock: clock}
}

// Mark redeems the code, evaluates policy, and applies the transition.
// A blocking policy decision surfaces as *untime.BlockedError; the ledger is
// never written in that case (the policy side effects still happen inside
// Evaluate).
func (l *Ledger) Mark(ctx context.Context, staffID, code string, kind MarkKind) (*models.AttendanceRecord, error) {
	if _, err := l.codes.Redeem(ctx, code); err != nil {
		return nil, err
	}
	decision, err := l.auth.Evaluate(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &untime.BlockedError{Reason: decision.Reason}
	}
	return l.apply(ctx, staffID, kind)
}

func (l *Ledger) apply(ctx context.Context, staffID string, kind MarkKind) (*models.AttendanceRecord, error) {
	now := l.clock.Now()
	today := l.clock.DateOf(now)

	var out *models.AttendanceRecord
	err := l.store.RunLocked(ctx, staffID, today, func(tx Tx) error {
		rec, err := tx.Record()
		if err != nil {
			return err
		}
		switch kind {
		case MarkIn:
			if rec != nil && rec.TimeIn != nil {
				return ErrAlreadyIn
			}
			if rec == nil {
				rec = &models.AttendanceRecord{
					ID:        uuid.NewString(),
					StaffID:   staffID,
					Date:      today,
					CreatedAt: now,
				}
			}
			in := l.snapIn(ctx, staffID, now)
			rec.TimeIn = &in
		case MarkOut:
			if rec == nil || rec.TimeIn == nil {
				return ErrNoOpenSession
			}
			if rec.TimeOut != nil {
				return ErrAlreadyOut
			}
			outAt := l.snapOut(ctx, staffID, now)
			rec.TimeOut = &outAt
		case MarkOvertimeIn:
			if rec == nil || rec.TimeOut == nil {
				return ErrNoOpenSession
			}
			if rec.OvertimeIn != nil {
				return ErrAlreadyIn
			}
			t := now
			rec.OvertimeIn = &t
		case MarkOvertimeOut:
			if rec == nil || rec.OvertimeIn == nil {
				return ErrNoOpenSession
			}
			if rec.OvertimeOut != nil {
				return ErrAlreadyOut
			}
			t := now
			rec.OvertimeOut = &t
		default:
			return fmt.Errorf("unknown mark kind %q", kind)
		}
		if err := tx.Save(rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// snapIn records the nominal shift start when the staff member is at most
// GraceMinutes late.
func (l *Ledger) snapIn(ctx context.Context, staffID string, now time.Time) time.Time {
	win, err := l.windows.Resolve(ctx, staffID, now)
	if err != nil || win == nil {
		return now
	}
	start := l.clock.At(now, win.Start)
	if now.After(start) && !now.After(start.Add(GraceMinutes*time.Minute)) {
		return start
	}
	return now
}

// snapOut records the nominal shift end when the staff member leaves at most
// GraceMinutes early.
func (l *Ledger) snapOut(ctx context.Context, staffID string, now time.Time) time.Time {
	win, err := l.windows.Resolve(ctx, staffID, now)
	if err != nil || win == nil {
		return now
	}
	end := l.clock.At(now, win.End)
	if end.Before(l.clock.At(now, win.Start)) {
		end = end.AddDate(0, 0, 1)
	}
	if now.Before(end) && !now.Before(end.Add(-GraceMinutes*time.Minute)) {
		return end
	}
	return now
}

// ForceCloseOpenToday stamps every still-open row for today with the staff
// member's nominal shift end and marks it forced. Rows whose schedule cannot
// be resolved close at the current instant. Returns the staff ids closed.
func (l *Ledger) ForceCloseOpenToday(ctx context.Context) ([]string, error) {
	now := l.clock.Now()
	today := l.clock.DateOf(now)
	open, err := l.store.OpenOn(ctx, today)
	if err != nil {
		return nil, err
	}
	var closed []string
	for _, rec := range open {
		staffID := rec.StaffID
		err := l.store.RunLocked(ctx, staffID, today, func(tx Tx) error {
			cur, err := tx.Record()
			if err != nil {
				return err
			}
			if !cur.Open() {
				return nil
			}
			outAt := now
			if win, err := l.windows.Resolve(ctx, staffID, now); err == nil && win != nil {
				outAt = l.clock.At(now, win.End)
				if outAt.Before(*cur.TimeIn) {
					outAt = now
				}
			}
			cur.TimeOut = &outAt
			cur.IsForcedOut = true
			if err := tx.Save(cur); err != nil {
				return err
			}
			closed = append(closed, staffID)
			return nil
		})
		if err != nil {
			log.Printf("[shift-logout] staff %s: %v", staffID, err)
		}
	}
	return closed, nil
}

// UpdateTimes is the administrative edit path: it overwrites the in/out pair
// on an existing row and stamps the editor. Nil pointers clear the field; a
// pair with time_out at or before time_in is rejected.
func (l *Ledger) UpdateTimes(ctx context.Context, staffID, date string, timeIn, timeOut *time.Time, updatedBy string) (*models.AttendanceRecord, error) {
	if timeIn != nil && timeOut != nil && !timeOut.After(*timeIn) {
		return nil, ErrInvalidTimes
	}
	var out *models.AttendanceRecord
	err := l.store.RunLocked(ctx, staffID, date, func(tx Tx) error {
		rec, err := tx.Record()
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrNoOpenSession
		}
		now := l.clock.Now()
		rec.TimeIn = timeIn
		rec.TimeOut = timeOut
		rec.UpdatedBy = updatedBy
		rec.UpdatedAt = &now
		if err := tx.Save(rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Today returns the staff member's row for the current date, or nil.
func (l *Ledger) Today(ctx context.Context, staffID string) (*models.AttendanceRecord, error) {
	var rec *models.AttendanceRecord
	err := l.store.RunLocked(ctx, staffID, l.clock.Today(), func(tx Tx) error {
		var err error
		rec, err = tx.Record()
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// OpenToday lists today's rows that are clocked in without a clock-out.
func (l *Ledger) OpenToday(ctx context.Context) ([]models.AttendanceRecord, error) {
	return l.store.OpenOn(ctx, l.clock.Today())
}

func (l *Ledger) ByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	return l.store.ByDate(ctx, date)
}

func (l *Ledger) ByStaff(ctx context.Context, staffID, fromDate, toDate string) ([]models.AttendanceRecord, error) {
	return l.store.ByStaff(ctx, staffID, fromDate, toDate)
}
