package clock

import (
	"testing"
	"time"
)

func TestFrozenNowReturnsUTC(t *testing.T) {
	pinned := time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC)
	c := NewFrozen(pinned)

	if !c.Now().Equal(pinned) {
		t.Fatalf("expected frozen now %v, got %v", pinned, c.Now())
	}
	if c.Now().Location() != time.UTC {
		t.Fatal("frozen clock should report UTC location")
	}
}

func TestFrozenInProjectsToZone(t *testing.T) {
	pinned := time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC)
	c := NewFrozen(pinned)

	inET := c.In("America/New_York")
	if inET.Hour() != 10 {
		t.Fatalf("expected 10am in America/New_York (EST, UTC-5), got %d", inET.Hour())
	}
}

func TestFrozenInFallsBackToUTCOnUnknownZone(t *testing.T) {
	pinned := time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC)
	c := NewFrozen(pinned)

	got := c.In("Not/A_Zone")
	if got.Location() != time.UTC {
		t.Fatal("unknown zone should fall back to UTC")
	}
	if !got.Equal(pinned) {
		t.Fatalf("expected fallback instant %v, got %v", pinned, got)
	}
}

func TestFrozenSetRepins(t *testing.T) {
	c := NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	next := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c.Set(next)

	if !c.Now().Equal(next) {
		t.Fatalf("expected repinned now %v, got %v", next, c.Now())
	}
}

func TestSystemNowIsUTC(t *testing.T) {
	var s System
	if s.Now().Location() != time.UTC {
		t.Fatal("system clock should report UTC location")
	}
}
