package datetime

import (
	"testing"
	"time"

	"bookingagent/internal/booking/clock"
)

func TestResolveTomorrowAtTenantTimezone(t *testing.T) {
	frozen := clock.NewFrozen(time.Date(2026, 2, 11, 15, 0, 0, 0, time.UTC)) // Wed 10:00 ET

	result := Resolve(frozen, "tomorrow at 10am", "", "America/New_York", nil)
	if result == nil {
		t.Fatal("expected a resolved result")
	}

	want := time.Date(2026, 2, 12, 15, 0, 0, 0, time.UTC)
	if !result.StartUTC.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, result.StartUTC)
	}
	if result.Confidence != "high" {
		t.Fatalf("expected high confidence, got %q", result.Confidence)
	}
}

func TestResolveTodayAtClientTimezoneOverridesTenant(t *testing.T) {
	frozen := clock.NewFrozen(time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC)) // Tue 10:00 ET

	result := Resolve(frozen, "today at 3pm", "America/New_York", "Europe/Amsterdam", nil)
	if result == nil {
		t.Fatal("expected a resolved result")
	}

	want := time.Date(2026, 2, 17, 20, 0, 0, 0, time.UTC)
	if !result.StartUTC.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, result.StartUTC)
	}
}

func TestResolveReturnsNilWithoutDateToken(t *testing.T) {
	frozen := clock.NewFrozen(time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC))

	if got := Resolve(frozen, "at 3pm", "", "America/New_York", nil); got != nil {
		t.Fatalf("expected nil result for utterance with no date token, got %+v", got)
	}
}

func TestResolveReturnsNilWithDateButNoTime(t *testing.T) {
	frozen := clock.NewFrozen(time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC))

	if got := Resolve(frozen, "tomorrow", "", "America/New_York", nil); got != nil {
		t.Fatalf("expected nil result for date-only utterance, got %+v", got)
	}
}

func TestResolveBareWeekdaySameDayWhenItMatches(t *testing.T) {
	// Tue 2026-02-17. Bare "tuesday" should resolve to the same day.
	frozen := clock.NewFrozen(time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC))

	result := Resolve(frozen, "tuesday at 2pm", "", "America/New_York", nil)
	if result == nil {
		t.Fatal("expected a resolved result")
	}
	if result.StartUTC.UTC().Day() != 17 {
		t.Fatalf("expected same-day resolution (17th), got day %d", result.StartUTC.Day())
	}
}

func TestResolveBareWeekdayRollsToNextOccurrence(t *testing.T) {
	// Tue 2026-02-17. Bare "monday" must roll to the following Monday, Feb 23.
	frozen := clock.NewFrozen(time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC))

	result := Resolve(frozen, "monday at 9am", "", "America/New_York", nil)
	if result == nil {
		t.Fatal("expected a resolved result")
	}
	if result.StartUTC.Day() != 23 {
		t.Fatalf("expected Feb 23 (next Monday), got day %d", result.StartUTC.Day())
	}
}

func TestResolveBareAtPresumesPMInLowRange(t *testing.T) {
	frozen := clock.NewFrozen(time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC))

	result := Resolve(frozen, "today at 2", "", "America/New_York", nil)
	if result == nil {
		t.Fatal("expected a resolved result")
	}
	// 2pm EST == 19:00 UTC in February.
	want := time.Date(2026, 2, 17, 19, 0, 0, 0, time.UTC)
	if !result.StartUTC.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, result.StartUTC)
	}
}

func TestResolveMorningUsesBusinessHoursOverride(t *testing.T) {
	frozen := clock.NewFrozen(time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC))

	result := Resolve(frozen, "tomorrow morning", "", "America/New_York", &BusinessHours{OpenHour: 8, OpenMinute: 30})
	if result == nil {
		t.Fatal("expected a resolved result")
	}
	// 08:30 EST == 13:30 UTC in February.
	want := time.Date(2026, 2, 18, 13, 30, 0, 0, time.UTC)
	if !result.StartUTC.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, result.StartUTC)
	}
}

func TestResolveIsDeterministicForSameInput(t *testing.T) {
	frozen := clock.NewFrozen(time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC))

	first := Resolve(frozen, "tomorrow at 10am", "", "America/New_York", nil)
	second := Resolve(frozen, "tomorrow at 10am", "", "America/New_York", nil)

	if first == nil || second == nil {
		t.Fatal("expected both results resolved")
	}
	if !first.StartUTC.Equal(second.StartUTC) {
		t.Fatalf("expected deterministic results, got %v and %v", first.StartUTC, second.StartUTC)
	}
}
