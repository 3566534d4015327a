package models

import (
	"errors"
	"time"
)

// DayShift is one weekday's working window. Both bounds are always present;
// a day off is represented by the absence of the DayShift itself.
type DayShift struct {
	Start LocalTime `json:"start"`
	End   LocalTime `json:"end"`
}

// NewDayShift enforces start < end at construction.
func NewDayShift(start, end LocalTime) (*DayShift, error) {
	if start >= end {
		return nil, errors.New("shift start must precede shift end")
	}
	return &DayShift{Start: start, End: end}, nil
}

// WeeklySchedule maps Monday..Sunday to an optional working window.
type WeeklySchedule map[time.Weekday]*DayShift

// On returns the window for the given weekday, or nil on a day off.
func (ws WeeklySchedule) On(day time.Weekday) *DayShift {
	if ws == nil {
		return nil
	}
	return ws[day]
}

// GlobalSchedule is the singleton organization-wide configuration.
type GlobalSchedule struct {
	Start         LocalTime `json:"start"`
	End           LocalTime `json:"end"`
	MarginMinutes int       `json:"margin_minutes"`
	AlertMinutes  int       `json:"alert_minutes"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ShiftWindow is a resolved per-staff window for one calendar day, with the
// margin and alert distances sourced from the global configuration.
type ShiftWindow struct {
	Start         LocalTime `json:"start"`
	End           LocalTime `json:"end"`
	MarginMinutes int       `json:"margin_minutes"`
	AlertMinutes  int       `json:"alert_minutes"`
}
