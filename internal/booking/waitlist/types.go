// Package waitlist implements the Waitlist Entry store named in
// spec.md §3 but left without described operations: join when no slot
// is open, notify when one opens, expire entries that sit too long.
// Lifecycle shape is grounded on the Hold Store (create / sweep-based
// reap), since no richer behaviour is specified.
package waitlist

import (
	"time"

	"github.com/google/uuid"
)

// Status is the entry's lifecycle state.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusNotified Status = "notified"
	StatusExpired  Status = "expired"
)

// Entry is one customer's standing request for a slot that didn't exist
// at join time.
type Entry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	SessionID   uuid.UUID
	ContactName string
	Email       string
	Phone       string
	ServiceName string
	// PreferredDays lists the acceptable weekdays; empty means any day.
	PreferredDays []time.Weekday
	// WindowStart/WindowEnd bound the preferred time of day, as
	// minute-of-day offsets (e.g. 9*60 for 9:00 AM). Both zero means any time.
	WindowStartMinute int
	WindowEndMinute   int
	Status            Status
	CreatedAt         time.Time
	ExpiresAt         time.Time
	NotifiedAt        *time.Time
}

// Matches reports whether an opened slot [start, end) satisfies this
// entry's service, day, and time-of-day preferences.
func (e Entry) Matches(serviceName string, start, end time.Time) bool {
	if e.ServiceName != "" && e.ServiceName != serviceName {
		return false
	}
	if len(e.PreferredDays) > 0 && !containsWeekday(e.PreferredDays, start.Weekday()) {
		return false
	}
	if e.WindowStartMinute == 0 && e.WindowEndMinute == 0 {
		return true
	}
	minuteOfDay := start.Hour()*60 + start.Minute()
	return minuteOfDay >= e.WindowStartMinute && minuteOfDay < e.WindowEndMinute
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}
