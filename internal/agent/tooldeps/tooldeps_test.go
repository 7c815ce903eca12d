package tooldeps

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMarkAndWasConfirmBookingCalled(t *testing.T) {
	d := New(uuid.New(), uuid.New())
	if d.WasConfirmBookingCalled() {
		t.Fatal("expected confirm_booking not called initially")
	}
	d.MarkConfirmBookingCalled()
	if !d.WasConfirmBookingCalled() {
		t.Fatal("expected confirm_booking called after Mark")
	}
}

func TestResetToolCallTrackingClearsFlagsAndRunID(t *testing.T) {
	d := New(uuid.New(), uuid.New())
	d.MarkConfirmBookingCalled()
	d.MarkCancelBookingCalled()
	d.MarkHoldSlotCalled()
	d.SetFarDateConfirmed(true)
	firstRunID := d.RunID()

	d.ResetToolCallTracking()

	if d.WasConfirmBookingCalled() || d.WasCancelBookingCalled() || d.WasHoldSlotCalled() || d.FarDateConfirmed() {
		t.Fatal("expected all tracking flags cleared after reset")
	}
	if d.RunID() == firstRunID {
		t.Fatal("expected a fresh run id after reset")
	}
}

func TestFollowupCooldownRemaining(t *testing.T) {
	d := New(uuid.New(), uuid.New())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if d.FollowupCooldownRemaining(30*time.Minute, now) != 0 {
		t.Fatal("expected no cooldown before any follow-up scheduled")
	}

	d.RecordFollowupScheduled(now)
	if d.FollowupCount() != 1 {
		t.Fatalf("expected follow-up count 1, got %d", d.FollowupCount())
	}

	remaining := d.FollowupCooldownRemaining(30*time.Minute, now.Add(10*time.Minute))
	if remaining != 20*time.Minute {
		t.Fatalf("expected 20m remaining, got %v", remaining)
	}

	if d.FollowupCooldownRemaining(30*time.Minute, now.Add(31*time.Minute)) != 0 {
		t.Fatal("expected cooldown to have elapsed after 31 minutes")
	}
}
