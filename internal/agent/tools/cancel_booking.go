package tools

import (
	"context"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"bookingagent/internal/agent/tooldeps"
	"bookingagent/internal/booking/appointment/repository"
	"bookingagent/internal/booking/cancelverify"
)

// NewCancelBookingTool builds cancel_booking: delegates the identity
// check to the Cancel-Verification Decider, collapsing every negative
// outcome into one anti-enumeration message per spec.md §4.5/§4.6.
func NewCancelBookingTool(deps *tooldeps.Dependencies) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        "cancel_booking",
		Description: "Cancels a confirmed booking after verifying the caller's identity against it.",
	}, func(ctx tool.Context, input CancelBookingInput) (CancelBookingOutput, error) {
		return handleCancelBooking(ctx, deps, input)
	})
}

func handleCancelBooking(ctx context.Context, deps *tooldeps.Dependencies, input CancelBookingInput) (CancelBookingOutput, error) {
	if input.ReferenceCode == "" {
		return CancelBookingOutput{Success: false, Error: string(CodeCancellationFailed) + ": " + cancelverify.GenericDenialMessage}, nil
	}
	if deps.Appointments == nil || deps.Sessions == nil {
		return CancelBookingOutput{Success: false, Error: string(CodeInternalError) + ": booking service unavailable"}, nil
	}

	appt, lookupErr := deps.Appointments.Lookup(ctx, deps.TenantID(), input.ReferenceCode, "")

	var booking *cancelverify.Booking
	if lookupErr == nil && appt.Status == repository.StatusConfirmed {
		booking = &cancelverify.Booking{
			ID:            appt.ID.String(),
			ReferenceCode: appt.ReferenceCode,
			Status:        string(appt.Status),
			ClientEmail:   appt.ClientEmail,
			ClientPhone:   appt.ClientPhone,
		}
	}

	sessionIdentity := cancelverify.SessionIdentity{}
	if sess, err := deps.Sessions.Get(ctx, deps.TenantID(), deps.SessionID()); err == nil {
		sessionIdentity.Verified = sess.EmailVerified
		sessionIdentity.Email = sess.MetadataString("verified_email")
		if sess.CustomerID != nil {
			if cust, err := deps.Sessions.GetCustomer(ctx, deps.TenantID(), *sess.CustomerID); err == nil && cust.Phone != nil {
				sessionIdentity.Phone = *cust.Phone
			}
		}
	}

	var last4 *string
	if input.PhoneLast4 != "" {
		last4 = &input.PhoneLast4
	}

	result := cancelverify.Verify(cancelverify.Input{
		ReferenceCode: input.ReferenceCode,
		PhoneLast4:    last4,
		Booking:       booking,
		Session:       sessionIdentity,
	})

	if !result.Ok {
		code := CodeCancellationFailed
		switch result.Reason {
		case cancelverify.ReasonMissingVerification:
			// No identity evidence offered at all — ask for last-4 digits.
			code = CodeCancellationNeedsIdentity
		case cancelverify.ReasonInvalidLast4Format, cancelverify.ReasonPhoneLast4Mismatch, cancelverify.ReasonNoPhoneOnBooking:
			// Identity evidence was offered but didn't check out.
			code = CodeCancellationRequiresVerify
		}
		return CancelBookingOutput{Success: false, Error: string(code) + ": " + cancelverify.GenericDenialMessage}, nil
	}

	if err := deps.Appointments.Cancel(ctx, deps.TenantID(), appt.ID); err != nil {
		return CancelBookingOutput{Success: false, Error: string(CodeCancellationFailed) + ": " + cancelverify.GenericDenialMessage}, nil
	}
	deps.MarkCancelBookingCalled()

	return CancelBookingOutput{Success: true}, nil
}
