package models

import "time"

// Staff is one staff member's account row.
type Staff struct {
	ID               string           `json:"id"`
	Username         string           `json:"username"`
	FirstName        string           `json:"first_name"`
	LastName         string           `json:"last_name"`
	Email            string           `json:"email"`
	Role             string           `json:"role"`
	IsBlocked        bool             `json:"is_blocked"`
	LeaveBalance     int              `json:"leave_balance"`
	LeaveEntitlement int              `json:"leave_entitlement"`
	CreatedAt        time.Time        `json:"created_at"`
	UnTime           *UnTimeException `json:"untime,omitempty"`
}

// UnTimeReason classifies why a staff member was pushed off-schedule.
type UnTimeReason string

const (
	ReasonEnded         UnTimeReason = "ended"
	ReasonOnLeave       UnTimeReason = "on-leave"
	ReasonOutsideWindow UnTimeReason = "outside-window"
	ReasonManualExtend  UnTimeReason = "manual-extend"
)

// UnTimeException is the per-staff off-schedule exception pending
// administrative disposition. Absence of the record ("no active exception")
// is modeled as a nil pointer, never as a record with unset fields.
type UnTimeException struct {
	Reason          UnTimeReason `json:"reason"`
	Start           time.Time    `json:"start"`
	DurationMinutes int          `json:"duration_minutes"`
	Approved        bool         `json:"approved"`
}

// End is the instant the exception times out.
func (e *UnTimeException) End() time.Time {
	return e.Start.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// ExpiredAt reports whether the exception has outlived its duration.
func (e *UnTimeException) ExpiredAt(now time.Time) bool {
	return now.After(e.End())
}

// UnTimeSession is a closed exception folded into the day's attendance record.
type UnTimeSession struct {
	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
	Reason UnTimeReason `json:"reason"`
}
