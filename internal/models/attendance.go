package models

import "time"

// AttendanceRecord is the one-row-per-staff-per-day ledger entry.
// Date is the calendar date in the organization timezone, "YYYY-MM-DD".
type AttendanceRecord struct {
	ID             string          `json:"id"`
	StaffID        string          `json:"staff_id"`
	Date           string          `json:"attendance_date"`
	TimeIn         *time.Time      `json:"time_in"`
	TimeOut        *time.Time      `json:"time_out"`
	OvertimeIn     *time.Time      `json:"overtime_in"`
	OvertimeOut    *time.Time      `json:"overtime_out"`
	IsForcedOut    bool            `json:"is_forced_out"`
	UnTimeSessions []UnTimeSession `json:"untime_sessions"`
	UpdatedBy      string          `json:"updated_by,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Open reports whether the staff member is clocked in without a clock-out.
func (r *AttendanceRecord) Open() bool {
	return r != nil && r.TimeIn != nil && r.TimeOut == nil
}

// Ended reports whether the regular shift (and any overtime) is finished
// for the day.
func (r *AttendanceRecord) Ended() bool {
	if r == nil || r.TimeOut == nil {
		return false
	}
	if r.OvertimeIn == nil {
		return true
	}
	return r.OvertimeOut != nil
}

// WorkedSeconds is the in..out span minus untime sessions, floored at zero.
func (r *AttendanceRecord) WorkedSeconds() int {
	if r.TimeIn == nil || r.TimeOut == nil {
		return 0
	}
	worked := int(r.TimeOut.Sub(*r.TimeIn).Seconds())
	worked -= r.UnTimeSeconds()
	if worked < 0 {
		return 0
	}
	return worked
}

// UnTimeSeconds totals the recorded untime sessions for the day.
func (r *AttendanceRecord) UnTimeSeconds() int {
	total := 0
	for _, s := range r.UnTimeSessions {
		if d := int(s.End.Sub(s.Start).Seconds()); d > 0 {
			total += d
		}
	}
	return total
}
