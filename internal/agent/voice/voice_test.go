package voice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/agent/tooldeps"
	"bookingagent/internal/agent/tools"
	"bookingagent/internal/booking/clock"
	"bookingagent/internal/tenant"
)

func TestClassifyIntent(t *testing.T) {
	cases := map[string]Intent{
		"I'd like to book an appointment": IntentBook,
		"can I reschedule my visit":        IntentReschedule,
		"please cancel my booking":         IntentCancel,
		"what time do you close":           IntentUnknown,
	}
	for text, want := range cases {
		if got := ClassifyIntent(text); got != want {
			t.Errorf("ClassifyIntent(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestClassifyYesNo(t *testing.T) {
	if yes, ok := ClassifyYesNo("yes that's right"); !ok || !yes {
		t.Fatalf("expected an affirmative match, got yes=%v ok=%v", yes, ok)
	}
	if yes, ok := ClassifyYesNo("no thanks"); !ok || yes {
		t.Fatalf("expected a negative match, got yes=%v ok=%v", yes, ok)
	}
	if _, ok := ClassifyYesNo("maybe later"); ok {
		t.Fatal("expected no yes/no signal")
	}
}

func TestExtractEmailLiteralAndSpokenForm(t *testing.T) {
	if got, ok := ExtractEmail("it's alex@example.com"); !ok || got != "alex@example.com" {
		t.Fatalf("expected literal email extracted, got %q, %v", got, ok)
	}
	if got, ok := ExtractEmail("alex at example dot com"); !ok || got != "alex@example.com" {
		t.Fatalf("expected spoken email extracted, got %q, %v", got, ok)
	}
	if _, ok := ExtractEmail("no email here"); ok {
		t.Fatal("expected no match")
	}
}

func TestExtractReferenceCode(t *testing.T) {
	if got, ok := ExtractReferenceCode("it's apt-ab12cd"); !ok || got != "APT-AB12CD" {
		t.Fatalf("expected reference code extracted and upper-cased, got %q, %v", got, ok)
	}
	if _, ok := ExtractReferenceCode("I don't have it"); ok {
		t.Fatal("expected no match")
	}
}

func TestExtractPhoneLast4(t *testing.T) {
	if got, ok := ExtractPhoneLast4("it's 1234"); !ok || got != "1234" {
		t.Fatalf("expected last4 extracted, got %q, %v", got, ok)
	}
}

func TestExtractFullName(t *testing.T) {
	if got, ok := ExtractFullName("jamie rivera"); !ok || got != "Jamie Rivera" {
		t.Fatalf("expected title-cased full name, got %q, %v", got, ok)
	}
	if _, ok := ExtractFullName("jamie"); ok {
		t.Fatal("expected a single word to be rejected")
	}
	if _, ok := ExtractFullName("1234"); ok {
		t.Fatal("expected digits to be rejected")
	}
}

func TestExtractSlotChoiceByOrdinal(t *testing.T) {
	slots := []tools.SlotResponse{
		{StartTime: "2026-02-11T15:00:00Z", EndTime: "2026-02-11T15:30:00Z"},
		{StartTime: "2026-02-11T17:00:00Z", EndTime: "2026-02-11T17:30:00Z"},
	}
	idx, ok := ExtractSlotChoice("the second one please", slots)
	if !ok || idx != 1 {
		t.Fatalf("expected index 1, got %d, %v", idx, ok)
	}
}

func TestExtractSlotChoiceBySpokenTime(t *testing.T) {
	slots := []tools.SlotResponse{
		{StartTime: "2026-02-11T15:00:00Z", EndTime: "2026-02-11T15:30:00Z"},
	}
	if idx, ok := ExtractSlotChoice("how about 3 pm", slots); !ok || idx != 0 {
		t.Fatalf("expected the 3 pm slot at index 0, got %d, %v", idx, ok)
	}
	if _, ok := ExtractSlotChoice("unrelated text", slots); ok {
		t.Fatal("expected no match for unrelated text")
	}
}

func TestWantsHandoff(t *testing.T) {
	if !WantsHandoff("can you just text me a link") {
		t.Fatal("expected a handoff request to be detected")
	}
	if WantsHandoff("book me for tuesday") {
		t.Fatal("expected no handoff request")
	}
}

type fakeVoiceTenants struct {
	tn *tenant.Tenant
}

func (f *fakeVoiceTenants) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return f.tn, nil
}

func TestHandleGreetingThenUnknownIntentReprompts(t *testing.T) {
	m := &Machine{}
	sess := NewCallSession(uuid.New(), uuid.New(), time.Now())

	res, err := m.Handle(context.Background(), sess, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Done {
		t.Fatal("expected the greeting turn to continue the call")
	}
	if sess.State != StateCollectingIntent {
		t.Fatalf("expected state %q, got %q", StateCollectingIntent, sess.State)
	}

	res, err = m.Handle(context.Background(), sess, "what's the weather like")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Done {
		t.Fatal("expected a single unrecognized turn not to end the call")
	}
	if sess.State != StateCollectingIntent {
		t.Fatal("expected to remain in collecting_intent after one unrecognized turn")
	}
}

func TestHandleCollectingIntentRetryOverflowHandsOff(t *testing.T) {
	m := &Machine{Config: Config{MaxRetries: 2}}
	sess := NewCallSession(uuid.New(), uuid.New(), time.Now())
	sess.State = StateCollectingIntent

	var res Result
	var err error
	for i := 0; i < 2; i++ {
		res, err = m.Handle(context.Background(), sess, "not a recognizable intent")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !res.Done || !res.HandoffSMS {
		t.Fatalf("expected retry overflow to hand off, got %+v", res)
	}
}

func TestHandleCollectingServiceAdvancesToCollectingDate(t *testing.T) {
	tn := &tenant.Tenant{ID: uuid.New(), Timezone: "America/New_York", Catalog: []tenant.CatalogEntry{{Name: "Haircut"}}}
	m := &Machine{Tenants: &fakeVoiceTenants{tn: tn}}
	sess := NewCallSession(tn.ID, uuid.New(), time.Now())
	sess.State = StateCollectingService

	res, err := m.Handle(context.Background(), sess, "Haircut")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Done {
		t.Fatal("expected the call to continue")
	}
	if sess.State != StateCollectingDate {
		t.Fatalf("expected state %q, got %q", StateCollectingDate, sess.State)
	}
	if sess.Service == nil || sess.Service.Name != "Haircut" {
		t.Fatalf("expected the matched service recorded, got %+v", sess.Service)
	}
}

func TestHandleCollectingDateNoTokenReprompts(t *testing.T) {
	tn := &tenant.Tenant{ID: uuid.New(), Timezone: "America/New_York"}
	frozen := clock.NewFrozen(time.Date(2026, 2, 11, 15, 0, 0, 0, time.UTC))
	m := &Machine{
		Tenants: &fakeVoiceTenants{tn: tn},
		Clock:   frozen,
		NewDeps: func(tenantID, sessionID uuid.UUID) *tooldeps.Dependencies { return tooldeps.New(tenantID, sessionID) },
	}
	sess := NewCallSession(tn.ID, uuid.New(), time.Now())
	sess.State = StateCollectingDate
	sess.Service = &tenant.CatalogEntry{Name: "Haircut"}

	res, err := m.Handle(context.Background(), sess, "whenever works")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Done {
		t.Fatal("expected the call to continue on an unresolved date")
	}
	if sess.State != StateCollectingDate {
		t.Fatal("expected to remain in collecting_date")
	}
}

func TestHandleCollectingNameRejectsSingleWord(t *testing.T) {
	m := &Machine{}
	sess := NewCallSession(uuid.New(), uuid.New(), time.Now())
	sess.State = StateCollectingName

	res, err := m.Handle(context.Background(), sess, "jamie")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Done {
		t.Fatal("expected the call to continue")
	}
	if sess.State != StateCollectingName {
		t.Fatal("expected to remain in collecting_name")
	}
}

func TestHandleCollectingReferenceRoutesCancelToIdentity(t *testing.T) {
	m := &Machine{}
	sess := NewCallSession(uuid.New(), uuid.New(), time.Now())
	sess.State = StateCollectingReference
	sess.Intent = IntentCancel

	res, err := m.Handle(context.Background(), sess, "it's APT-AB12CD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Done {
		t.Fatal("expected the call to continue into identity verification")
	}
	if sess.State != StateCollectingIdentity {
		t.Fatalf("expected state %q, got %q", StateCollectingIdentity, sess.State)
	}
	if sess.ReferenceCode != "APT-AB12CD" {
		t.Fatalf("expected reference code recorded, got %q", sess.ReferenceCode)
	}
}

func TestHandleWantsHandoffEndsCallFromAnyState(t *testing.T) {
	m := &Machine{}
	sess := NewCallSession(uuid.New(), uuid.New(), time.Now())
	sess.State = StateCollectingEmail

	res, err := m.Handle(context.Background(), sess, "just text me a link instead")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Done || !res.HandoffSMS {
		t.Fatalf("expected an SMS handoff, got %+v", res)
	}
}

func TestHandleTurnBudgetExceededEndsCall(t *testing.T) {
	m := &Machine{Config: Config{MaxTurns: 1}}
	sess := NewCallSession(uuid.New(), uuid.New(), time.Now())

	_, _ = m.Handle(context.Background(), sess, "hello")
	res, err := m.Handle(context.Background(), sess, "hello again")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Done {
		t.Fatal("expected the turn budget to end the call")
	}
}
