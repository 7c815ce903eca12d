package router

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/booking/availability"
	"bookingagent/internal/booking/clock"
	"bookingagent/internal/session"
	"bookingagent/internal/tenant"
)

func TestClassifyIntent(t *testing.T) {
	cases := map[string]Intent{
		"can I book an appointment tomorrow":    IntentBook,
		"I'd like to reschedule my visit":       IntentReschedule,
		"please cancel my booking":              IntentCancel,
		"what are your hours":                   IntentUnknown,
		"do you have any slots this week":       IntentBook,
		"I need to move my appointment earlier": IntentReschedule,
	}
	for text, want := range cases {
		if got := ClassifyIntent(text); got != want {
			t.Errorf("ClassifyIntent(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestFAQTableMatch(t *testing.T) {
	table := FAQTable{
		{Keywords: []string{"pricing", "cost"}, Answer: "Pricing varies per business."},
	}
	answer, ok := table.Match("What's your pricing like?")
	if !ok || answer != "Pricing varies per business." {
		t.Fatalf("expected a pricing FAQ hit, got %q, %v", answer, ok)
	}
	if _, ok := table.Match("can I book a haircut"); ok {
		t.Fatal("expected no FAQ hit for an unrelated message")
	}
}

func TestExtractEmail(t *testing.T) {
	if got := extractEmail("sure, it's alex@example.com thanks"); got != "alex@example.com" {
		t.Fatalf("expected to extract alex@example.com, got %q", got)
	}
	if got := extractEmail("no email here"); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
}

func TestHandleEmailGateStartsGateOnFirstMessage(t *testing.T) {
	r := &Router{Config: Config{RequireEmailFirst: true}}
	sess := &session.Session{MessageCount: 1}

	reply, handled, err := r.handleEmailGate(context.Background(), sess, Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("expected the email gate to engage on the first message")
	}
	if reply == "" {
		t.Fatal("expected a prompt for the customer's email")
	}
	if Stage(sess.MetadataString(metadataStageKey)) != StageAwaitingEmail {
		t.Fatalf("expected stage %q, got %q", StageAwaitingEmail, sess.MetadataString(metadataStageKey))
	}
}

func TestHandleEmailGateSkipsWhenAlreadyVerified(t *testing.T) {
	r := &Router{Config: Config{RequireEmailFirst: true}}
	sess := &session.Session{MessageCount: 1, EmailVerified: true}

	_, handled, err := r.handleEmailGate(context.Background(), sess, Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled {
		t.Fatal("expected no gate once the session's email is verified")
	}
}

type fakeOTP struct {
	sendErr     error
	verifyOK    bool
	verifyEmail string
	verifyErr   error
}

func (f *fakeOTP) SendCode(ctx context.Context, tenantID, sessionID uuid.UUID, destination string) error {
	return f.sendErr
}

func (f *fakeOTP) VerifyCode(ctx context.Context, tenantID, sessionID uuid.UUID, code string) (string, bool, error) {
	return f.verifyEmail, f.verifyOK, f.verifyErr
}

func TestHandleStatefulFlowAwaitingEmailRejectsGarbage(t *testing.T) {
	r := &Router{OTP: &fakeOTP{}}
	sess := &session.Session{}
	sess.SetMetadata(metadataStageKey, string(StageAwaitingEmail))

	reply, handled, err := r.handleStatefulFlow(context.Background(), sess, Input{Text: "not an email"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("expected the stateful flow to handle this turn")
	}
	if reply == "" {
		t.Fatal("expected a re-prompt")
	}
	if Stage(sess.MetadataString(metadataStageKey)) != StageAwaitingEmail {
		t.Fatal("expected to remain in the awaiting-email stage")
	}
}

func TestHandleStatefulFlowAwaitingEmailAdvancesToOTP(t *testing.T) {
	r := &Router{OTP: &fakeOTP{}}
	sess := &session.Session{}
	sess.SetMetadata(metadataStageKey, string(StageAwaitingEmail))

	_, handled, err := r.handleStatefulFlow(context.Background(), sess, Input{Text: "jamie@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("expected the stateful flow to handle this turn")
	}
	if Stage(sess.MetadataString(metadataStageKey)) != StageAwaitingOTP {
		t.Fatalf("expected stage %q, got %q", StageAwaitingOTP, sess.MetadataString(metadataStageKey))
	}
	if sess.MetadataString(metadataPendingEmailKey) != "jamie@example.com" {
		t.Fatal("expected the pending email to be recorded")
	}
}

func TestHandleStatefulFlowAwaitingOTPRejectsWrongCode(t *testing.T) {
	r := &Router{OTP: &fakeOTP{verifyOK: false}}
	sess := &session.Session{}
	sess.SetMetadata(metadataStageKey, string(StageAwaitingOTP))
	sess.SetMetadata(metadataPendingEmailKey, "jamie@example.com")

	reply, handled, err := r.handleStatefulFlow(context.Background(), sess, Input{Text: "000000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Fatal("expected the stateful flow to handle this turn")
	}
	if reply == "" {
		t.Fatal("expected a rejection message")
	}
	if sess.EmailVerified {
		t.Fatal("expected the session to remain unverified after a bad code")
	}
}

func TestHandleStatefulFlowNoStageFallsThrough(t *testing.T) {
	r := &Router{}
	sess := &session.Session{}

	_, handled, err := r.handleStatefulFlow(context.Background(), sess, Input{Text: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled {
		t.Fatal("expected no stage to mean no stateful handling")
	}
}

type fakeTenants struct {
	tn *tenant.Tenant
}

func (f *fakeTenants) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return f.tn, nil
}

func TestResolveDatetimeContextOnlyForBookingIntent(t *testing.T) {
	tn := &tenant.Tenant{
		ID:       uuid.New(),
		Timezone: "America/New_York",
		WeeklyHours: []availability.WeeklyHours{
			{Weekday: time.Wednesday, OpenMinute: 9 * 60, CloseMinute: 17 * 60},
		},
	}
	frozen := clock.NewFrozen(time.Date(2026, 2, 11, 15, 0, 0, 0, time.UTC)) // Wed 10:00 ET
	r := &Router{Clock: frozen, Tenants: &fakeTenants{tn: tn}}

	ctx := r.resolveDatetimeContext(context.Background(), Input{TenantID: tn.ID, Text: "can I book tomorrow at 10am"})
	if !ctx.present {
		t.Fatal("expected a resolved date/time context for a booking utterance")
	}

	noBooking := r.resolveDatetimeContext(context.Background(), Input{TenantID: tn.ID, Text: "what are your hours"})
	if noBooking.present {
		t.Fatal("expected no date/time context for a non-booking utterance")
	}
}
