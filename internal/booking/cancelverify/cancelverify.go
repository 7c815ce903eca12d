// Package cancelverify implements the Cancel-Verification Decider of
// spec.md §4.5: a pure, anti-enumeration identity-proof function that
// decides whether a cancel_booking caller is authorized to cancel a
// given appointment. It has no side effects and makes no I/O calls of
// its own — the Tool-Executor supplies the looked-up booking and the
// caller's session state as Input.
package cancelverify

import "strings"

// Reason is one of the decision table's negative outcomes. All Reasons
// collapse to the same generic user-facing message — callers must never
// branch display text on Reason, only on Ok.
type Reason string

const (
	ReasonMissingRefCode     Reason = "missing_ref_code"
	ReasonReferenceNotFound  Reason = "reference_not_found"
	ReasonInvalidLast4Format Reason = "invalid_last4_format"
	ReasonNoPhoneOnBooking   Reason = "no_phone_on_booking"
	ReasonPhoneLast4Mismatch Reason = "phone_last4_mismatch"
	ReasonMissingVerification Reason = "missing_verification"
)

// Method identifies how an authorized caller proved their identity.
type Method string

const (
	MethodVerifiedSession Method = "verified_session"
	MethodPhoneLast4      Method = "phone_last4"
)

// Booking is the minimal booking projection the decider needs. Any
// appointment repository row can be adapted to it.
type Booking struct {
	ID            string
	ReferenceCode string
	Status        string
	ClientEmail   string
	ClientPhone   string
}

// IsConfirmed reports whether the booking is still in a cancellable state.
func (b Booking) IsConfirmed() bool {
	return b.Status == "confirmed"
}

// SessionIdentity is the subset of session/customer state the decider
// consults to check the verified_session path.
type SessionIdentity struct {
	// Verified is true once the session has passed the Email
	// Verification Gate (internal/identity/otp) for this conversation.
	Verified bool
	Email    string
	Phone    string
}

// Input carries the cancel_booking arguments and resolved context.
type Input struct {
	ReferenceCode string
	PhoneLast4    *string
	// Booking is nil when the lookup by ReferenceCode found nothing, or
	// found something not confirmed — both collapse to
	// reference_not_found to preserve anti-enumeration.
	Booking *Booking
	Session SessionIdentity
}

// Result is the decider's outcome. Exactly one of (Method, Reason) is
// set when Ok is true/false respectively.
type Result struct {
	Ok      bool
	Method  Method
	Reason  Reason
	Booking *Booking
}

// GenericDenialMessage is the single user-facing message for every
// negative Result, per the anti-enumeration rule: the response must not
// leak whether a reference code exists.
const GenericDenialMessage = "I can't find a booking with that information. Please double-check your reference code, or provide the last 4 digits of the phone number on the booking."

// Verify evaluates the decision table of spec.md §4.5, in order.
func Verify(input Input) Result {
	if strings.TrimSpace(input.ReferenceCode) == "" {
		return Result{Ok: false, Reason: ReasonMissingRefCode}
	}

	if input.Booking == nil || !input.Booking.IsConfirmed() {
		return Result{Ok: false, Reason: ReasonReferenceNotFound}
	}
	booking := input.Booking

	if input.Session.Verified && sessionMatchesBooking(input.Session, *booking) {
		return Result{Ok: true, Method: MethodVerifiedSession, Booking: booking}
	}

	if input.PhoneLast4 != nil {
		last4 := strings.TrimSpace(*input.PhoneLast4)
		if !isFourDigits(last4) {
			return Result{Ok: false, Reason: ReasonInvalidLast4Format}
		}
		if strings.TrimSpace(booking.ClientPhone) == "" {
			return Result{Ok: false, Reason: ReasonNoPhoneOnBooking}
		}
		if !last4MatchesPhone(last4, booking.ClientPhone) {
			return Result{Ok: false, Reason: ReasonPhoneLast4Mismatch}
		}
		return Result{Ok: true, Method: MethodPhoneLast4, Booking: booking}
	}

	return Result{Ok: false, Reason: ReasonMissingVerification}
}

func sessionMatchesBooking(session SessionIdentity, booking Booking) bool {
	if session.Email != "" && strings.EqualFold(session.Email, booking.ClientEmail) {
		return true
	}
	if session.Phone != "" && digitsOnly(session.Phone) == digitsOnly(booking.ClientPhone) {
		return true
	}
	return false
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func last4MatchesPhone(last4, phone string) bool {
	digits := digitsOnly(phone)
	if len(digits) < 4 {
		return false
	}
	return digits[len(digits)-4:] == last4
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
