package models

import "time"

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// LeaveRequest is an inclusive date range; dates are "YYYY-MM-DD" in the
// organization timezone. Leave blocks whole days only.
type LeaveRequest struct {
	ID        string      `json:"id"`
	StaffID   string      `json:"staff_id"`
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Reason    string      `json:"reason"`
	Status    LeaveStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Days is the inclusive day count of the range, 0 if the range is malformed.
func (l *LeaveRequest) Days() int {
	start, err1 := time.Parse("2006-01-02", l.StartDate)
	end, err2 := time.Parse("2006-01-02", l.EndDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Covers reports whether the given "YYYY-MM-DD" date falls inside the range.
// ISO dates compare correctly as strings.
func (l *LeaveRequest) Covers(date string) bool {
	return l.StartDate <= date && date <= l.EndDate
}
