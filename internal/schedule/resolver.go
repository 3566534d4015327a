// Package schedule resolves the applicable shift window for a staff member
// on a given day, and owns the organization-wide schedule configuration.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/evn/attendance_backendl/internal/models"
)

type Store interface {
	Weekly(ctx context.Context, staffID string) (models.WeeklySchedule, error)
	SaveWeekly(ctx context.Context, staffID string, ws models.WeeklySchedule) error
	AllWeekly(ctx context.Context) (map[string]models.WeeklySchedule, error)
	Global(ctx context.Context) (*models.GlobalSchedule, error)
	SaveGlobal(ctx context.Context, g *models.GlobalSchedule) error
}

// OutsideGlobalError reports a per-staff window that does not fit inside the
// global bounds. Returned both when saving a weekly schedule and when a
// global update would strand an existing window.
type OutsideGlobalError struct {
	StaffID string
	Day     time.Weekday
	Shift   models.DayShift
	Global  models.GlobalSchedule
}

func (e *OutsideGlobalError) Error() string {
	return fmt.Sprintf("staff shift %s-%s on %s must be within global window %s-%s",
		e.Shift.Start, e.Shift.End, e.Day, e.Global.Start, e.Global.End)
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the staff member's window for the date's weekday, or nil
// on a day off. There is no fallback to the global schedule for enforcement;
// margin and alert distances always come from the global configuration.
func (r *Resolver) Resolve(ctx context.Context, staffID string, date time.Time) (*models.ShiftWindow, error) {
	weekly, err := r.store.Weekly(ctx, staffID)
	if err != nil {
		return nil, err
	}
	shift := weekly.On(date.Weekday())
	if shift == nil {
		return nil, nil
	}
	g, err := r.store.Global(ctx)
	if err != nil {
		return nil, err
	}
	win := &models.ShiftWindow{Start: shift.Start, End: shift.End, MarginMinutes: 30, AlertMinutes: 10}
	if g != nil {
		win.MarginMinutes = g.MarginMinutes
		win.AlertMinutes = g.AlertMinutes
	}
	return win, nil
}

func (r *Resolver) Global(ctx context.Context) (*models.GlobalSchedule, error) {
	return r.store.Global(ctx)
}

func (r *Resolver) Weekly(ctx context.Context, staffID string) (models.WeeklySchedule, error) {
	return r.store.Weekly(ctx, staffID)
}

// SetWeekly validates each working day against the current global bounds
// before saving. The both-or-neither invariant is carried by the schedule
// type itself (a day is either a DayShift or absent).
func (r *Resolver) SetWeekly(ctx context.Context, staffID string, ws models.WeeklySchedule) error {
	g, err := r.store.Global(ctx)
	if err != nil {
		return err
	}
	if g != nil {
		for day, shift := range ws {
			if shift == nil {
				continue
			}
			if !insideGlobal(g.Start, g.End, shift.Start, shift.End) {
				return &OutsideGlobalError{StaffID: staffID, Day: day, Shift: *shift, Global: *g}
			}
		}
	}
	return r.store.SaveWeekly(ctx, staffID, ws)
}

// UpdateGlobal rejects any update that would place an existing per-staff
// weekday window outside the new bounds; nothing is applied on rejection.
func (r *Resolver) UpdateGlobal(ctx context.Context, g *models.GlobalSchedule) error {
	// Overnight global windows (end < start) are allowed; equal bounds are not.
	if g.Start == g.End {
		return fmt.Errorf("global start and end must differ")
	}
	if g.MarginMinutes < 0 || g.AlertMinutes < 0 {
		return fmt.Errorf("margin and alert minutes must not be negative")
	}
	all, err := r.store.AllWeekly(ctx)
	if err != nil {
		return err
	}
	for staffID, weekly := range all {
		for day, shift := range weekly {
			if shift == nil {
				continue
			}
			if !insideGlobal(g.Start, g.End, shift.Start, shift.End) {
				return &OutsideGlobalError{StaffID: staffID, Day: day, Shift: *shift, Global: *g}
			}
		}
	}
	return r.store.SaveGlobal(ctx, g)
}

// insideGlobal checks that [sStart, sEnd] fits inside the global window.
// A normal global window requires gStart <= sStart < sEnd <= gEnd. An
// overnight global window (gEnd < gStart) allows [gStart, midnight) and
// [midnight, gEnd]; the staff window must sit entirely in one segment and
// may not wrap itself.
func insideGlobal(gStart, gEnd, sStart, sEnd models.LocalTime) bool {
	if sStart >= sEnd {
		return false
	}
	if gEnd >= gStart {
		return sStart >= gStart && sEnd <= gEnd
	}
	const midnight = models.LocalTime(24 * 60)
	inLate := sStart >= gStart && sEnd <= midnight
	inEarly := sStart >= 0 && sEnd <= gEnd
	return inLate || inEarly
}
