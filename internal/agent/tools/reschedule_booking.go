package tools

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"bookingagent/internal/agent/tooldeps"
	"bookingagent/internal/booking/appointment/service"
	"bookingagent/platform/apperr"
)

// NewRescheduleBookingTool builds reschedule_booking: atomically cancels
// the old appointment and confirms the new hold in its place under a
// newly generated reference code.
func NewRescheduleBookingTool(deps *tooldeps.Dependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "reschedule_booking",
		Description: "Moves a confirmed booking to a newly held slot.",
	}, func(ctx tool.Context, input RescheduleBookingInput) (RescheduleBookingOutput, error) {
		return handleRescheduleBooking(ctx, deps, input)
	})
}

func handleRescheduleBooking(ctx context.Context, deps *tooldeps.Dependencies, input RescheduleBookingInput) (RescheduleBookingOutput, error) {
	apptID, err := uuid.Parse(input.AppointmentID)
	if err != nil {
		return RescheduleBookingOutput{Success: false, Error: string(CodeBookingError) + ": appointment_id must be a valid id"}, nil
	}
	newHoldID, err := uuid.Parse(input.NewHoldID)
	if err != nil {
		return RescheduleBookingOutput{Success: false, Error: string(CodeBookingError) + ": new_hold_id must be a valid id"}, nil
	}
	if deps.Appointments == nil || deps.Holds == nil {
		return RescheduleBookingOutput{Success: false, Error: string(CodeInternalError) + ": booking service unavailable"}, nil
	}

	newHold, err := deps.Holds.GetByID(ctx, deps.TenantID(), newHoldID)
	if err != nil {
		return RescheduleBookingOutput{Success: false, Error: string(CodeBookingError) + ": hold not found or expired"}, nil
	}

	appt, err := deps.Appointments.Reschedule(ctx, service.RescheduleRequest{
		TenantID:      deps.TenantID(),
		AppointmentID: apptID,
		NewHoldID:     newHoldID,
		NewStartTime:  newHold.StartTime,
		NewEndTime:    newHold.EndTime,
	})
	if err != nil {
		if apperr.GetKind(err) == apperr.KindSlotConflict {
			return RescheduleBookingOutput{Success: false, Error: string(CodeSlotConflict) + ": " + err.Error()}, nil
		}
		return RescheduleBookingOutput{Success: false, Error: string(CodeBookingError) + ": " + err.Error()}, nil
	}
	deps.MarkRescheduleCalled()

	return RescheduleBookingOutput{
		Success:       true,
		ReferenceCode: appt.ReferenceCode,
		NewStartTime:  appt.StartTime.Format(time.RFC3339),
		NewEndTime:    appt.EndTime.Format(time.RFC3339),
	}, nil
}
