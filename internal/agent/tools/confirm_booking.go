package tools

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"bookingagent/internal/agent/tooldeps"
	"bookingagent/internal/booking/appointment/service"
	"bookingagent/platform/apperr"
	"bookingagent/platform/phone"
)

// ConfirmationSender delivers the SMS booking confirmation, best-effort.
// A nil Notifier, or a send the notifier reports as disabled by policy,
// downgrades sms_status rather than failing the booking itself.
type ConfirmationSender interface {
	SendBookingConfirmation(ctx context.Context, tenantID, appointmentID uuid.UUID, phone, referenceCode string) (status string, err error)
}

const defaultRiskThreshold = 0.8

// NewConfirmBookingTool builds confirm_booking: requires a verified
// email matching client_email, a valid E.164 phone, and an acceptable
// risk score, per spec.md §4.6.
func NewConfirmBookingTool(deps *tooldeps.Dependencies, notifier ConfirmationSender) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "confirm_booking",
		Description: "Converts a held slot into a confirmed appointment after identity and contact details are verified.",
	}, func(ctx tool.Context, input ConfirmBookingInput) (ConfirmBookingOutput, error) {
		return handleConfirmBooking(ctx, deps, notifier, input)
	})
}

func handleConfirmBooking(ctx context.Context, deps *tooldeps.Dependencies, notifier ConfirmationSender, input ConfirmBookingInput) (ConfirmBookingOutput, error) {
	holdID, err := uuid.Parse(input.HoldID)
	if err != nil {
		return ConfirmBookingOutput{Success: false, Error: string(CodeBookingError) + ": hold_id must be a valid id"}, nil
	}

	if deps.Sessions == nil {
		return ConfirmBookingOutput{Success: false, Error: string(CodeInternalError) + ": session service unavailable"}, nil
	}
	sess, err := deps.Sessions.Get(ctx, deps.TenantID(), deps.SessionID())
	if err != nil {
		return ConfirmBookingOutput{Success: false, Error: string(CodeInternalError) + ": session not found"}, nil
	}
	if !sess.EmailVerified {
		return ConfirmBookingOutput{Success: false, Error: string(CodeEmailVerificationRequired) + ": please verify the customer's email first"}, nil
	}
	verifiedEmail := sess.MetadataString("verified_email")
	if verifiedEmail == "" || !emailEqualFold(verifiedEmail, input.ClientEmail) {
		return ConfirmBookingOutput{Success: false, Error: string(CodeEmailMismatch) + ": verified email does not match " + MaskEmailForDisplay(input.ClientEmail)}, nil
	}

	normalizedPhone, ok := phone.Validate(input.ClientPhone)
	if !ok {
		return ConfirmBookingOutput{Success: false, Error: string(CodeInvalidPhone) + ": client_phone is not a valid phone number"}, nil
	}

	if deps.Risk != nil {
		score, err := deps.Risk.Assess(ctx, deps.TenantID(), deps.SessionID())
		if err == nil && score > defaultRiskThreshold {
			return ConfirmBookingOutput{Success: false, Error: string(CodeRiskReverify) + ": please re-verify before confirming"}, nil
		}
		// A risk-engine failure (err != nil) is recovered locally as allow.
	}

	if deps.Appointments == nil || deps.Holds == nil {
		return ConfirmBookingOutput{Success: false, Error: string(CodeInternalError) + ": booking service unavailable"}, nil
	}

	heldSlot, err := deps.Holds.GetByID(ctx, deps.TenantID(), holdID)
	if err != nil {
		return ConfirmBookingOutput{Success: false, Error: string(CodeBookingError) + ": hold not found or expired"}, nil
	}

	appt, err := deps.Appointments.ConfirmBooking(ctx, service.ConfirmRequest{
		TenantID:    deps.TenantID(),
		SessionID:   deps.SessionID(),
		HoldID:      holdID,
		ClientName:  input.ClientName,
		ClientEmail: input.ClientEmail,
		ClientPhone: normalizedPhone,
		StartTime:   heldSlot.StartTime,
		EndTime:     heldSlot.EndTime,
	})
	if err != nil {
		if apperr.GetKind(err) == apperr.KindSlotConflict {
			return ConfirmBookingOutput{Success: false, Error: string(CodeSlotConflict) + ": " + err.Error()}, nil
		}
		return ConfirmBookingOutput{Success: false, Error: string(CodeBookingError) + ": " + err.Error()}, nil
	}
	deps.MarkConfirmBookingCalled()

	smsStatus := SMSStatusNoPhone
	if normalizedPhone != "" {
		switch {
		case notifier == nil:
			smsStatus = SMSStatusUnavailable
		default:
			status, sendErr := notifier.SendBookingConfirmation(ctx, deps.TenantID(), appt.ID, normalizedPhone, appt.ReferenceCode)
			if sendErr != nil {
				smsStatus = SMSStatusUnavailable
			} else {
				smsStatus = status
			}
		}
	}

	return ConfirmBookingOutput{
		Success:       true,
		ReferenceCode: appt.ReferenceCode,
		SMSStatus:     smsStatus,
	}, nil
}

func emailEqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
