package tools

import (
	"context"
	"time"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"bookingagent/internal/agent/tooldeps"
	"bookingagent/platform/apperr"
)

const defaultFarDateConfirmDays = 30

// NewHoldSlotTool builds hold_slot: a far-future slot (default 30 days
// out) requires far_date_confirmed, per spec.md §4.6.
func NewHoldSlotTool(deps *tooldeps.Dependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "hold_slot",
		Description: "Reserves a slot for a few minutes while the customer confirms details.",
	}, func(ctx tool.Context, input HoldSlotInput) (HoldSlotOutput, error) {
		return handleHoldSlot(ctx, deps, input)
	})
}

func handleHoldSlot(ctx context.Context, deps *tooldeps.Dependencies, input HoldSlotInput) (HoldSlotOutput, error) {
	start, err := time.Parse(time.RFC3339, input.StartTime)
	if err != nil {
		return HoldSlotOutput{Success: false, Error: string(CodeBookingError) + ": start_time must be ISO-8601"}, nil
	}
	end, err := time.Parse(time.RFC3339, input.EndTime)
	if err != nil {
		return HoldSlotOutput{Success: false, Error: string(CodeBookingError) + ": end_time must be ISO-8601"}, nil
	}

	farDateDays := deps.Limits.FarDateConfirmDays
	if farDateDays <= 0 {
		farDateDays = defaultFarDateConfirmDays
	}
	if input.FarDateConfirmed {
		deps.SetFarDateConfirmed(true)
	}
	if start.After(time.Now().AddDate(0, 0, farDateDays)) && !deps.FarDateConfirmed() {
		return HoldSlotOutput{Success: false, Error: string(CodeFarDateConfirmationRequired) + ": please confirm the customer wants a date this far out before holding it"}, nil
	}

	if deps.Holds == nil {
		return HoldSlotOutput{Success: false, Error: string(CodeInternalError) + ": hold service unavailable"}, nil
	}
	h, err := deps.Holds.HoldSlot(ctx, deps.TenantID(), deps.SessionID(), start, end)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindSlotConflict {
			return HoldSlotOutput{Success: false, Error: string(CodeSlotConflict) + ": " + err.Error()}, nil
		}
		return HoldSlotOutput{Success: false, Error: string(CodeBookingError) + ": " + err.Error()}, nil
	}

	deps.MarkHoldSlotCalled()
	return HoldSlotOutput{
		Success:   true,
		HoldID:    h.ID.String(),
		ExpiresAt: h.ExpiresAt.Format(time.RFC3339),
	}, nil
}
