package sms

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSendBookingConfirmationNilOutboxIsUnavailable(t *testing.T) {
	c := &Confirmations{}
	status, err := c.SendBookingConfirmation(context.Background(), uuid.New(), uuid.New(), "+15551234567", "APT-ABC123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "unavailable" {
		t.Fatalf("expected unavailable status with no outbox configured, got %q", status)
	}
}

func TestFormatLocalFallsBackOnBadTimezone(t *testing.T) {
	ts := time.Date(2026, 2, 12, 15, 0, 0, 0, time.UTC)
	got := formatLocal(ts, "not/a/zone")
	want := ts.Format("Mon Jan 2 15:04")
	if got != want {
		t.Fatalf("expected UTC fallback formatting %q, got %q", want, got)
	}
}

func TestFormatLocalConvertsToTenantTimezone(t *testing.T) {
	ts := time.Date(2026, 2, 12, 15, 0, 0, 0, time.UTC)
	got := formatLocal(ts, "America/New_York")
	want := ts.In(mustLoadLocation(t, "America/New_York")).Format("Mon Jan 2 15:04")
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func mustLoadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %q: %v", name, err)
	}
	return loc
}
