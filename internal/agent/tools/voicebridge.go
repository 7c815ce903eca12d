package tools

import (
	"context"

	"bookingagent/internal/agent/tooldeps"
)

// The Voice Session & NLU state machine (internal/agent/voice) drives
// the same seven handlers the LLM tool-use loop calls, but it never
// goes through the LLM — it dispatches a recognized intent straight to
// the handler. These exported wrappers expose that direct call path
// without threading every handler through google.golang.org/adk/tool's
// functiontool/JSON-schema machinery, the way NewXTool's closures do for
// the LLM path. Both paths share the same *tooldeps.Dependencies bag and
// guardrail logic — only the caller differs.

// CheckAvailability runs check_availability directly.
func CheckAvailability(ctx context.Context, deps *tooldeps.Dependencies, input CheckAvailabilityInput) (CheckAvailabilityOutput, error) {
	return handleCheckAvailability(ctx, deps, input)
}

// HoldSlot runs hold_slot directly.
func HoldSlot(ctx context.Context, deps *tooldeps.Dependencies, input HoldSlotInput) (HoldSlotOutput, error) {
	return handleHoldSlot(ctx, deps, input)
}

// ConfirmBooking runs confirm_booking directly.
func ConfirmBooking(ctx context.Context, deps *tooldeps.Dependencies, notifier ConfirmationSender, input ConfirmBookingInput) (ConfirmBookingOutput, error) {
	return handleConfirmBooking(ctx, deps, notifier, input)
}

// LookupBooking runs lookup_booking directly.
func LookupBooking(ctx context.Context, deps *tooldeps.Dependencies, input LookupBookingInput) (LookupBookingOutput, error) {
	return handleLookupBooking(ctx, deps, input)
}

// RescheduleBooking runs reschedule_booking directly.
func RescheduleBooking(ctx context.Context, deps *tooldeps.Dependencies, input RescheduleBookingInput) (RescheduleBookingOutput, error) {
	return handleRescheduleBooking(ctx, deps, input)
}

// CancelBooking runs cancel_booking directly.
func CancelBooking(ctx context.Context, deps *tooldeps.Dependencies, input CancelBookingInput) (CancelBookingOutput, error) {
	return handleCancelBooking(ctx, deps, input)
}
