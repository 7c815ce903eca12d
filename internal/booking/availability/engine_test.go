package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/booking/clock"
)

type fixedCalendar struct {
	hours     []WeeklyHours
	overrides []DateOverride
}

func (f fixedCalendar) WeeklyHours(ctx context.Context, tenantID uuid.UUID) ([]WeeklyHours, error) {
	return f.hours, nil
}

func (f fixedCalendar) DateOverrides(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]DateOverride, error) {
	return f.overrides, nil
}

type fixedConflicts struct {
	ranges []BusyRange
	err    error
}

func (f fixedConflicts) BusyRanges(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]BusyRange, error) {
	return f.ranges, f.err
}

func newTestTenant() TenantConfig {
	return TenantConfig{
		ID:                  uuid.New(),
		Timezone:            "America/New_York",
		SlotDurationMinutes: 60,
		Mode:                ModeStrict,
	}
}

func TestGetAvailableSlotsSkipsClosedDays(t *testing.T) {
	// Business hours only on Wednesdays. Feb 11 2026 is a Wednesday.
	calendar := fixedCalendar{hours: []WeeklyHours{{Weekday: time.Wednesday, OpenMinute: 9 * 60, CloseMinute: 12 * 60}}}
	engine := NewEngine(clock.NewFrozen(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)), calendar, fixedConflicts{}, fixedConflicts{}, NewBusyRangeCache(30*time.Second))

	tenant := newTestTenant()
	from := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)  // Monday
	to := time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)   // Thursday

	result, err := engine.GetAvailableSlots(context.Background(), tenant, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Slots) == 0 {
		t.Fatal("expected slots on the Wednesday in range")
	}
	for _, s := range result.Slots {
		if s.Start.In(mustLoc("America/New_York")).Weekday() != time.Wednesday {
			t.Fatalf("expected only Wednesday slots, got %v", s.Start)
		}
	}
}

func TestGetAvailableSlotsMarksConflictingSlotsUnavailable(t *testing.T) {
	calendar := fixedCalendar{hours: []WeeklyHours{{Weekday: time.Wednesday, OpenMinute: 9 * 60, CloseMinute: 11 * 60}}}
	// 9-10am ET on Feb 11 2026 is busy.
	busyStart := time.Date(2026, 2, 11, 14, 0, 0, 0, time.UTC)
	busyEnd := time.Date(2026, 2, 11, 15, 0, 0, 0, time.UTC)
	appts := fixedConflicts{ranges: []BusyRange{{Start: busyStart, End: busyEnd}}}

	engine := NewEngine(clock.NewFrozen(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)), calendar, appts, fixedConflicts{}, NewBusyRangeCache(30*time.Second))

	tenant := newTestTenant()
	from := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 11, 23, 59, 0, 0, time.UTC)

	result, err := engine.GetAvailableSlots(context.Background(), tenant, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawConflict bool
	for _, s := range result.Slots {
		if s.Start.Equal(busyStart) {
			sawConflict = true
			if s.Available {
				t.Fatal("expected the 9am slot to be unavailable due to conflict")
			}
		}
	}
	if !sawConflict {
		t.Fatal("expected the busy slot to appear in the candidate list")
	}
}

func TestGetAvailableSlotsStrictModeFailsOnCalendarError(t *testing.T) {
	calendar := fixedCalendar{hours: []WeeklyHours{{Weekday: time.Wednesday, OpenMinute: 9 * 60, CloseMinute: 11 * 60}}}
	engine := NewEngine(clock.NewFrozen(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)), calendar, fixedConflicts{}, fixedConflicts{}, NewBusyRangeCache(30*time.Second))

	tenant := newTestTenant()
	tenant.HasExternalCalendar = true
	tenant.Mode = ModeStrict
	engine.BindCalendar(tenant.ID, fixedConflicts{err: context.DeadlineExceeded})

	from := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 11, 23, 59, 0, 0, time.UTC)

	_, err := engine.GetAvailableSlots(context.Background(), tenant, from, to)
	if err == nil {
		t.Fatal("expected strict mode to fail on calendar error")
	}
}

func TestGetAvailableSlotsLenientModeDegradesGracefully(t *testing.T) {
	calendar := fixedCalendar{hours: []WeeklyHours{{Weekday: time.Wednesday, OpenMinute: 9 * 60, CloseMinute: 11 * 60}}}
	engine := NewEngine(clock.NewFrozen(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)), calendar, fixedConflicts{}, fixedConflicts{}, NewBusyRangeCache(30*time.Second))

	tenant := newTestTenant()
	tenant.HasExternalCalendar = true
	tenant.Mode = ModeLenient
	engine.BindCalendar(tenant.ID, fixedConflicts{err: context.DeadlineExceeded})

	from := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 11, 23, 59, 0, 0, time.UTC)

	result, err := engine.GetAvailableSlots(context.Background(), tenant, from, to)
	if err != nil {
		t.Fatalf("lenient mode should not fail, got %v", err)
	}
	if result.Verified {
		t.Fatal("expected Verified=false when the calendar could not be read")
	}
	if result.CalendarSource != "db_only" {
		t.Fatalf("expected calendar source db_only, got %q", result.CalendarSource)
	}
}

func mustLoc(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
