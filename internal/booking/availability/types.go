// Package availability implements the Availability Engine: it turns a
// tenant's weekly business hours and date overrides into candidate slots,
// then marks each one available or not against three concurrently-read
// conflict sources (external calendar, confirmed appointments, active
// holds).
package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Mode governs what happens when the external calendar cannot be read.
type Mode string

const (
	// ModeStrict raises CalendarReadError on provider failure; no slots
	// are returned. This is the default for any tenant with a calendar
	// binding.
	ModeStrict Mode = "strict"
	// ModeLenient returns slots with Verified=false and CalendarSource
	// "db_only" instead of failing outright.
	ModeLenient Mode = "lenient"
)

// BusyRange is a half-open [Start, End) interval during which a slot
// cannot be offered.
type BusyRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the range conflicts with [start, end).
func (b BusyRange) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && end.After(b.Start)
}

// WeeklyHours is one weekday's recurring open/close window, expressed as
// minutes from midnight in the tenant's timezone. A day absent from the
// list is closed.
type WeeklyHours struct {
	Weekday     time.Weekday
	OpenMinute  int
	CloseMinute int
}

// DateOverride replaces a single calendar date's hours, or closes it
// entirely when Closed is true.
type DateOverride struct {
	Date        time.Time // local midnight, tenant timezone
	Closed      bool
	OpenMinute  int
	CloseMinute int
}

// TenantCalendar supplies the recurring and per-date business-hours rules
// a tenant has configured.
type TenantCalendar interface {
	WeeklyHours(ctx context.Context, tenantID uuid.UUID) ([]WeeklyHours, error)
	DateOverrides(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]DateOverride, error)
}

// ConflictSource reads one kind of busy interval for a tenant within a
// window. AppointmentReader, HoldReader, and CalendarProvider all satisfy
// this shape.
type ConflictSource interface {
	BusyRanges(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]BusyRange, error)
}

// CalendarProvider reads busy ranges from a tenant's bound external
// calendar. Returns an error when the provider could not be reached.
type CalendarProvider interface {
	ConflictSource
}

// TenantConfig carries the subset of tenant configuration the engine
// needs, independent of however the tenant package models the rest.
type TenantConfig struct {
	ID                  uuid.UUID
	Timezone            string
	SlotDurationMinutes int
	Mode                Mode
	HasExternalCalendar bool
	DemoMode            bool
}

// Slot is one candidate appointment window.
type Slot struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// Result is the engine's response for one query window.
type Result struct {
	Slots          []Slot
	Verified       bool
	CalendarSource string
	CalendarError  string
}
