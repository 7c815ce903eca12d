package tools

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/agent/tooldeps"
)

func TestHandleHoldSlotRequiresFarDateConfirmation(t *testing.T) {
	deps := tooldeps.New(uuid.New(), uuid.New())
	start := time.Now().AddDate(0, 0, 45)
	end := start.Add(30 * time.Minute)

	out, err := handleHoldSlot(context.Background(), deps, HoldSlotInput{
		StartTime: start.Format(time.RFC3339),
		EndTime:   end.Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Success {
		t.Fatal("expected failure without far_date_confirmed for a 45-day-out slot")
	}
	if out.Error[:len(CodeFarDateConfirmationRequired)] != string(CodeFarDateConfirmationRequired) {
		t.Fatalf("expected FAR_DATE_CONFIRMATION_REQUIRED prefix, got %q", out.Error)
	}
}

func TestHandleHoldSlotRejectsUnparseableTimes(t *testing.T) {
	deps := tooldeps.New(uuid.New(), uuid.New())
	out, _ := handleHoldSlot(context.Background(), deps, HoldSlotInput{StartTime: "nope", EndTime: "nope"})
	if out.Success {
		t.Fatal("expected failure for unparseable start_time")
	}
}
