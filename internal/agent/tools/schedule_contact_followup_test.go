package tools

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/agent/tooldeps"
)

func validFollowupInput() ScheduleContactFollowupInput {
	return ScheduleContactFollowupInput{
		ClientName:       "Jamie",
		ClientEmail:      "jamie@example.com",
		PreferredContact: preferredContactEmail,
		Reason:           "no slots matched",
	}
}

func TestHandleScheduleContactFollowupRejectsUnknownChannel(t *testing.T) {
	deps := tooldeps.New(uuid.New(), uuid.New())
	input := validFollowupInput()
	input.PreferredContact = "carrier_pigeon"

	out, err := handleScheduleContactFollowup(context.Background(), deps, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Success {
		t.Fatal("expected failure for an unrecognized preferred_contact")
	}
}

func TestHandleScheduleContactFollowupRequiresConfirmationAfterFirst(t *testing.T) {
	deps := tooldeps.New(uuid.New(), uuid.New())
	deps.RecordFollowupScheduled(time.Now().Add(-time.Hour))

	out, _ := handleScheduleContactFollowup(context.Background(), deps, validFollowupInput())
	if out.Success {
		t.Fatal("expected CONFIRMATION_REQUIRED for a second follow-up without the sentinel token")
	}
	if out.Error[:len(CodeConfirmationRequired)] != string(CodeConfirmationRequired) {
		t.Fatalf("expected CONFIRMATION_REQUIRED prefix, got %q", out.Error)
	}
}

func TestHandleScheduleContactFollowupEnforcesCooldown(t *testing.T) {
	deps := tooldeps.New(uuid.New(), uuid.New())
	deps.RecordFollowupScheduled(time.Now())

	input := validFollowupInput()
	input.ConfirmationToken = confirmationSentinel
	out, _ := handleScheduleContactFollowup(context.Background(), deps, input)
	if out.Success {
		t.Fatal("expected cooldown rejection for an immediate second follow-up")
	}
}

func TestHandleScheduleContactFollowupEnforcesSessionCap(t *testing.T) {
	deps := tooldeps.New(uuid.New(), uuid.New())
	for i := 0; i < 3; i++ {
		deps.RecordFollowupScheduled(time.Now().Add(-time.Hour * time.Duration(i+1)))
	}

	input := validFollowupInput()
	input.ConfirmationToken = confirmationSentinel
	out, _ := handleScheduleContactFollowup(context.Background(), deps, input)
	if out.Success {
		t.Fatal("expected rejection once the per-session follow-up cap is reached")
	}
}
