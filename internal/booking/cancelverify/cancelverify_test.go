package cancelverify

import (
	"testing"
)

func stringPtr(s string) *string { return &s }

func confirmedBooking() *Booking {
	return &Booking{
		ID:            "b1",
		ReferenceCode: "APT-ABC123",
		Status:        "confirmed",
		ClientEmail:   "jane@example.com",
		ClientPhone:   "+1 415-555-0142",
	}
}

func TestVerifyMissingReferenceCode(t *testing.T) {
	result := Verify(Input{ReferenceCode: "  "})
	if result.Ok {
		t.Fatal("expected denial")
	}
	if result.Reason != ReasonMissingRefCode {
		t.Fatalf("expected missing_ref_code, got %q", result.Reason)
	}
}

func TestVerifyReferenceNotFound(t *testing.T) {
	result := Verify(Input{ReferenceCode: "APT-NONE", Booking: nil})
	if result.Ok || result.Reason != ReasonReferenceNotFound {
		t.Fatalf("expected reference_not_found, got ok=%v reason=%q", result.Ok, result.Reason)
	}
}

func TestVerifyBookingNotConfirmedCollapsesToNotFound(t *testing.T) {
	booking := confirmedBooking()
	booking.Status = "cancelled"
	result := Verify(Input{ReferenceCode: booking.ReferenceCode, Booking: booking})
	if result.Ok || result.Reason != ReasonReferenceNotFound {
		t.Fatalf("expected reference_not_found for non-confirmed booking, got ok=%v reason=%q", result.Ok, result.Reason)
	}
}

func TestVerifyVerifiedSessionEmailMatch(t *testing.T) {
	booking := confirmedBooking()
	result := Verify(Input{
		ReferenceCode: booking.ReferenceCode,
		Booking:       booking,
		Session:       SessionIdentity{Verified: true, Email: "Jane@Example.com"},
	})
	if !result.Ok || result.Method != MethodVerifiedSession {
		t.Fatalf("expected verified_session ok, got %+v", result)
	}
}

func TestVerifyVerifiedSessionPhoneMatch(t *testing.T) {
	booking := confirmedBooking()
	result := Verify(Input{
		ReferenceCode: booking.ReferenceCode,
		Booking:       booking,
		Session:       SessionIdentity{Verified: true, Phone: "14155550142"},
	})
	if !result.Ok || result.Method != MethodVerifiedSession {
		t.Fatalf("expected verified_session ok, got %+v", result)
	}
}

func TestVerifyVerifiedSessionNoIdentityMatchFallsThrough(t *testing.T) {
	booking := confirmedBooking()
	result := Verify(Input{
		ReferenceCode: booking.ReferenceCode,
		Booking:       booking,
		Session:       SessionIdentity{Verified: true, Email: "someone-else@example.com"},
	})
	if result.Ok || result.Reason != ReasonMissingVerification {
		t.Fatalf("expected missing_verification when verified session identity doesn't match, got %+v", result)
	}
}

func TestVerifyInvalidLast4Format(t *testing.T) {
	booking := confirmedBooking()
	result := Verify(Input{
		ReferenceCode: booking.ReferenceCode,
		Booking:       booking,
		PhoneLast4:    stringPtr("42"),
	})
	if result.Ok || result.Reason != ReasonInvalidLast4Format {
		t.Fatalf("expected invalid_last4_format, got %+v", result)
	}
}

func TestVerifyNoPhoneOnBooking(t *testing.T) {
	booking := confirmedBooking()
	booking.ClientPhone = ""
	result := Verify(Input{
		ReferenceCode: booking.ReferenceCode,
		Booking:       booking,
		PhoneLast4:    stringPtr("0142"),
	})
	if result.Ok || result.Reason != ReasonNoPhoneOnBooking {
		t.Fatalf("expected no_phone_on_booking, got %+v", result)
	}
}

func TestVerifyPhoneLast4Mismatch(t *testing.T) {
	booking := confirmedBooking()
	result := Verify(Input{
		ReferenceCode: booking.ReferenceCode,
		Booking:       booking,
		PhoneLast4:    stringPtr("9999"),
	})
	if result.Ok || result.Reason != ReasonPhoneLast4Mismatch {
		t.Fatalf("expected phone_last4_mismatch, got %+v", result)
	}
}

func TestVerifyPhoneLast4Match(t *testing.T) {
	booking := confirmedBooking()
	result := Verify(Input{
		ReferenceCode: booking.ReferenceCode,
		Booking:       booking,
		PhoneLast4:    stringPtr("0142"),
	})
	if !result.Ok || result.Method != MethodPhoneLast4 {
		t.Fatalf("expected phone_last4 ok, got %+v", result)
	}
}

func TestVerifyMissingVerificationWhenNothingSupplied(t *testing.T) {
	booking := confirmedBooking()
	result := Verify(Input{ReferenceCode: booking.ReferenceCode, Booking: booking})
	if result.Ok || result.Reason != ReasonMissingVerification {
		t.Fatalf("expected missing_verification, got %+v", result)
	}
}
