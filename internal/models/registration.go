package models

// Status is a registration attendance status. The declaration order of the
// statuses is also the roster display order.
type Status string

const (
	StatusAttending Status = "Attending"
	StatusBench     Status = "Bench"
	StatusTentative Status = "Tentative"
	StatusLate      Status = "Late"
)

// Statuses lists all attendance statuses in display order.
var Statuses = []Status{StatusAttending, StatusBench, StatusTentative, StatusLate}

// Valid reports whether s is a known attendance status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Guaranteed reports whether the status counts toward guaranteed attendance
// (Attending and Bench do; Tentative and Late only raise the maximum).
func (s Status) Guaranteed() bool {
	return s == StatusAttending || s == StatusBench
}

// Registration is a user's committed attendance record for an event.
// At most one registration exists per (user, channel); committing a new one
// overwrites the previous.
type Registration struct {
	UserID int64  `json:"user_id"`
	Status Status `json:"status"`
	Job    *Job   `json:"job,omitempty"`
}
