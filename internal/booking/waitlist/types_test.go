package waitlist

import (
	"testing"
	"time"
)

func TestEntryMatchesServiceName(t *testing.T) {
	e := Entry{ServiceName: "Haircut"}
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	if e.Matches("Coloring", start, end) {
		t.Fatal("expected mismatch on service name")
	}
	if !e.Matches("Haircut", start, end) {
		t.Fatal("expected match on service name")
	}
}

func TestEntryMatchesAnyServiceWhenUnset(t *testing.T) {
	e := Entry{}
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if !e.Matches("Anything", start, start.Add(time.Hour)) {
		t.Fatal("expected entry with no service preference to match")
	}
}

func TestEntryMatchesPreferredDays(t *testing.T) {
	monday := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) // Monday
	tuesday := monday.Add(24 * time.Hour)

	e := Entry{PreferredDays: []time.Weekday{time.Monday}}
	if !e.Matches("", monday, monday.Add(time.Hour)) {
		t.Fatal("expected Monday to match")
	}
	if e.Matches("", tuesday, tuesday.Add(time.Hour)) {
		t.Fatal("expected Tuesday to be rejected")
	}
}

func TestEntryMatchesTimeOfDayWindow(t *testing.T) {
	e := Entry{WindowStartMinute: 9 * 60, WindowEndMinute: 12 * 60}

	morning := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

	if !e.Matches("", morning, morning.Add(time.Hour)) {
		t.Fatal("expected 10:00 to fall within 09:00-12:00 window")
	}
	if e.Matches("", evening, evening.Add(time.Hour)) {
		t.Fatal("expected 18:00 to fall outside 09:00-12:00 window")
	}
}

func TestEntryMatchesAnyTimeWhenWindowUnset(t *testing.T) {
	e := Entry{}
	anytime := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	if !e.Matches("", anytime, anytime.Add(time.Hour)) {
		t.Fatal("expected zero-window entry to match any time")
	}
}
