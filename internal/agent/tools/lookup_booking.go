package tools

import (
	"context"
	"time"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"bookingagent/internal/agent/tooldeps"
)

// NewLookupBookingTool builds lookup_booking: resolves a booking by
// reference code or email. At least one must be supplied; when both
// are, the reference code is used.
func NewLookupBookingTool(deps *tooldeps.Dependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "lookup_booking",
		Description: "Finds a confirmed booking by reference code or customer email.",
	}, func(ctx tool.Context, input LookupBookingInput) (LookupBookingOutput, error) {
		return handleLookupBooking(ctx, deps, input)
	})
}

func handleLookupBooking(ctx context.Context, deps *tooldeps.Dependencies, input LookupBookingInput) (LookupBookingOutput, error) {
	if input.ReferenceCode == "" && input.Email == "" {
		return LookupBookingOutput{Success: false, Error: string(CodeBookingError) + ": reference_code or email is required"}, nil
	}
	if deps.Appointments == nil {
		return LookupBookingOutput{Success: false, Error: string(CodeInternalError) + ": booking service unavailable"}, nil
	}

	appt, err := deps.Appointments.Lookup(ctx, deps.TenantID(), input.ReferenceCode, input.Email)
	if err != nil {
		return LookupBookingOutput{Success: false, Error: string(CodeBookingError) + ": no booking found"}, nil
	}

	return LookupBookingOutput{
		Success:       true,
		ReferenceCode: appt.ReferenceCode,
		ServiceName:   appt.ServiceName,
		StartTime:     appt.StartTime.Format(time.RFC3339),
		EndTime:       appt.EndTime.Format(time.RFC3339),
		Status:        string(appt.Status),
	}, nil
}
