package tools

import (
	"context"
	"time"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"bookingagent/internal/agent/tooldeps"
)

// NewScheduleContactFollowupTool builds schedule_contact_followup:
// enforces a follow-up cap, a cooldown, and requires explicit
// re-confirmation after the first follow-up, per spec.md §4.6. Count
// and cooldown are held on deps, which is built per turn, so neither
// carries over to the next turn; the cooldown is not keyed by contact.
func NewScheduleContactFollowupTool(deps *tooldeps.Dependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "schedule_contact_followup",
		Description: "Schedules a human follow-up contact when the agent cannot complete the booking.",
	}, func(ctx tool.Context, input ScheduleContactFollowupInput) (ScheduleContactFollowupOutput, error) {
		return handleScheduleContactFollowup(ctx, deps, input)
	})
}

func handleScheduleContactFollowup(ctx context.Context, deps *tooldeps.Dependencies, input ScheduleContactFollowupInput) (ScheduleContactFollowupOutput, error) {
	switch input.PreferredContact {
	case preferredContactEmail, preferredContactSMS, preferredContactEither:
	default:
		return ScheduleContactFollowupOutput{Success: false, Error: string(CodeBookingError) + ": preferred_contact must be one of email, sms, either"}, nil
	}

	maxPerSession := deps.Limits.FollowupMaxPerSession
	if maxPerSession <= 0 {
		maxPerSession = 3
	}
	if deps.FollowupCount() >= maxPerSession {
		return ScheduleContactFollowupOutput{Success: false, Error: string(CodeBookingError) + ": this session has reached its follow-up limit"}, nil
	}

	cooldown := deps.Limits.FollowupCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}
	now := time.Now()
	if remaining := deps.FollowupCooldownRemaining(cooldown, now); remaining > 0 {
		return ScheduleContactFollowupOutput{Success: false, Error: string(CodeBookingError) + ": please wait before scheduling another follow-up"}, nil
	}

	if deps.FollowupCount() > 0 && input.ConfirmationToken != confirmationSentinel {
		return ScheduleContactFollowupOutput{Success: false, Error: string(CodeConfirmationRequired) + ": please confirm with the customer before scheduling another follow-up"}, nil
	}

	if deps.Followups == nil {
		return ScheduleContactFollowupOutput{Success: false, Error: string(CodeInternalError) + ": follow-up scheduler unavailable"}, nil
	}

	jobID, err := deps.Followups.Schedule(ctx, deps.TenantID(), deps.SessionID(), input.ClientName, input.ClientEmail, input.PreferredContact, input.Reason)
	if err != nil {
		return ScheduleContactFollowupOutput{Success: false, Error: string(CodeBookingError) + ": " + err.Error()}, nil
	}
	deps.RecordFollowupScheduled(now)

	return ScheduleContactFollowupOutput{Success: true, JobID: jobID}, nil
}
