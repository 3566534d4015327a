// Package clockutil provides timezone-correct "now" and shift-window math
// for the single organization calendar. Everything here is pure given its
// inputs; the only ambient dependency is the injected now func.
package clockutil

import (
	"time"

	"github.com/evn/attendance_backendl/internal/models"
)

const DateLayout = "2006-01-02"

type Clock struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location) *Clock {
	return &Clock{loc: loc, now: time.Now}
}

// NewFixed returns a clock frozen at t, for tests.
func NewFixed(loc *time.Location, t time.Time) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return t }}
}

func (c *Clock) Location() *time.Location { return c.loc }

// Now is the current instant in the organization timezone.
func (c *Clock) Now() time.Time { return c.now().In(c.loc) }

// Today is the current calendar date, "YYYY-MM-DD".
func (c *Clock) Today() string { return c.Now().Format(DateLayout) }

// DateOf is the organization-local calendar date of an instant.
func (c *Clock) DateOf(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// At places a wall-clock time onto the calendar day of the given instant.
func (c *Clock) At(day time.Time, lt models.LocalTime) time.Time {
	d := day.In(c.loc)
	return time.Date(d.Year(), d.Month(), d.Day(), lt.Hour(), lt.Minute(), 0, 0, c.loc)
}

// Window builds [shiftStart-margin, shiftEnd+margin] on the calendar day of
// the given instant. If the end would precede the start (overnight shift),
// the end is pushed to the next day.
func (c *Clock) Window(day time.Time, shift models.DayShift, marginMinutes int) (time.Time, time.Time) {
	margin := time.Duration(marginMinutes) * time.Minute
	start := c.At(day, shift.Start).Add(-margin)
	end := c.At(day, shift.End).Add(margin)
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

// Contains is the half-open interval test t ∈ [start, end).
func Contains(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
