// Package voice implements the Voice Session & NLU state machine of
// spec.md §4.9: a per-call session walked through an explicit state
// enum by Machine.Handle, with lightweight regex/keyword NLU per state
// and every booking side effect routed through the Tool-Executor
// (internal/agent/tools) rather than reimplemented here. Grounded on
// this repo's own string-typed-stage + switch-dispatch idiom already
// used by internal/agent/router's FSM, which in turn follows the
// teacher's string-tagged pipeline stage fields (e.g.
// internal/identity/repository/workflow_engine.go's PipelineStage) —
// the teacher has no voice surface of its own to imitate directly.
package voice

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/agent/tooldeps"
	"bookingagent/internal/agent/tools"
	"bookingagent/internal/booking/clock"
	"bookingagent/internal/booking/datetime"
	"bookingagent/internal/tenant"
)

// State is one node of the call's explicit state machine.
type State string

const (
	StateGreeting            State = "greeting"
	StateCollectingIntent    State = "collecting_intent"
	StateCollectingService   State = "collecting_service"
	StateCollectingDate      State = "collecting_date"
	StateOfferingSlots       State = "offering_slots"
	StateCollectingSlotChoice State = "collecting_slot_choice"
	StateCollectingName      State = "collecting_name"
	StateCollectingEmail     State = "collecting_email"
	StateConfirmingBooking   State = "confirming_booking"
	StateCollectingReference State = "collecting_reference"
	StateCollectingIdentity  State = "collecting_identity"
	StateCompleted           State = "completed"
)

// Intent is the NLU's top-level classification for collecting_intent.
type Intent string

const (
	IntentBook       Intent = "book"
	IntentReschedule Intent = "reschedule"
	IntentCancel     Intent = "cancel"
	IntentUnknown    Intent = "unknown"
)

// ClassifyIntent keyword-matches a caller's utterance, never erroring —
// unrecognized speech falls back to IntentUnknown so the state machine
// can re-prompt.
func ClassifyIntent(utterance string) Intent {
	text := strings.ToLower(utterance)
	switch {
	case containsAny(text, "cancel", "can't make it", "cant make it", "call off"):
		return IntentCancel
	case containsAny(text, "reschedule", "move my", "different time", "another time"):
		return IntentReschedule
	case containsAny(text, "book", "schedule", "appointment", "available", "opening"):
		return IntentBook
	default:
		return IntentUnknown
	}
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// ClassifyYesNo detects an affirmative or negative response. ok is false
// when the utterance carries neither signal.
func ClassifyYesNo(utterance string) (yes bool, ok bool) {
	text := strings.ToLower(strings.TrimSpace(utterance))
	switch {
	case containsAny(text, "yes", "yeah", "yep", "correct", "that's right", "sure"):
		return true, true
	case containsAny(text, "no", "nope", "not right", "incorrect"):
		return false, true
	default:
		return false, false
	}
}

var ordinalWords = []struct {
	word string
	n    int
}{
	{"first", 1}, {"1st", 1}, {"second", 2}, {"2nd", 2}, {"third", 3}, {"3rd", 3},
	{"fourth", 4}, {"4th", 4}, {"fifth", 5}, {"5th", 5},
	{"one", 1}, {"two", 2}, {"three", 3}, {"four", 4}, {"five", 5},
}

// ExtractSlotChoice resolves a spoken ordinal ("the second one") or a
// spoken time ("10 am") against the offered slots, returning its index.
func ExtractSlotChoice(utterance string, slots []tools.SlotResponse) (int, bool) {
	text := strings.ToLower(strings.TrimSpace(utterance))
	for _, o := range ordinalWords {
		if containsAny(text, o.word) && o.n <= len(slots) {
			return o.n - 1, true
		}
	}
	for i, slot := range slots {
		start, err := time.Parse(time.RFC3339, slot.StartTime)
		if err != nil {
			continue
		}
		if matchesSpokenTime(text, start) {
			return i, true
		}
	}
	return 0, false
}

func matchesSpokenTime(text string, t time.Time) bool {
	hour12 := t.Hour() % 12
	if hour12 == 0 {
		hour12 = 12
	}
	ampm := "am"
	if t.Hour() >= 12 {
		ampm = "pm"
	}
	candidates := []string{
		fmt.Sprintf("%d %s", hour12, ampm),
		fmt.Sprintf("%d%s", hour12, ampm),
	}
	if t.Minute() != 0 {
		candidates = append(candidates,
			fmt.Sprintf("%d:%02d %s", hour12, t.Minute(), ampm),
			fmt.Sprintf("%d:%02d%s", hour12, t.Minute(), ampm),
		)
	}
	for _, c := range candidates {
		if strings.Contains(text, c) {
			return true
		}
	}
	return false
}

var spokenEmailRe = regexp.MustCompile(`(?i)^\s*([a-z0-9._%+\-]+)\s+at\s+([a-z0-9.\-]+)\s+dot\s+([a-z]{2,})\s*$`)
var literalEmailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ExtractEmail recognizes a literal email address or its fully spoken
// form ("alex at example dot com").
func ExtractEmail(utterance string) (string, bool) {
	if m := literalEmailRe.FindString(utterance); m != "" {
		return strings.ToLower(m), true
	}
	if m := spokenEmailRe.FindStringSubmatch(strings.TrimSpace(utterance)); m != nil {
		return strings.ToLower(m[1] + "@" + m[2] + "." + m[3]), true
	}
	return "", false
}

var referenceCodeRe = regexp.MustCompile(`(?i)\bAPT-[A-Z0-9]{6}\b`)

// ExtractReferenceCode pulls a spoken or typed booking reference out of
// an utterance.
func ExtractReferenceCode(utterance string) (string, bool) {
	m := referenceCodeRe.FindString(utterance)
	if m == "" {
		return "", false
	}
	return strings.ToUpper(m), true
}

var phoneLast4Re = regexp.MustCompile(`\b(\d{4})\b`)

// ExtractPhoneLast4 pulls the last 4 digits a caller reads out for
// cancel_booking's identity check.
func ExtractPhoneLast4(utterance string) (string, bool) {
	m := phoneLast4Re.FindString(utterance)
	if m == "" {
		return "", false
	}
	return m, true
}

// ExtractFullName takes the utterance at face value as a spoken name: no
// digits, at least two words, title-cased for storage.
func ExtractFullName(utterance string) (string, bool) {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" || strings.ContainsAny(trimmed, "0123456789") {
		return "", false
	}
	words := strings.Fields(trimmed)
	if len(words) < 2 {
		return "", false
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " "), true
}

// WantsHandoff detects a caller asking for an SMS link instead of
// continuing by voice.
func WantsHandoff(utterance string) bool {
	text := strings.ToLower(utterance)
	return containsAny(text, "text me", "send me a link", "send a text", "sms it to me")
}

// CallSession is one phone call's accumulated state.
type CallSession struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	SessionID  uuid.UUID
	State      State
	Intent     Intent
	Service    *tenant.CatalogEntry
	DateResult *datetime.Result
	Slots      []tools.SlotResponse
	HoldID     string
	ClientName string
	ClientEmail string
	ReferenceCode string
	PhoneLast4    string

	StartedAt time.Time
	TurnCount int
	retries   map[State]int
}

// NewCallSession starts a call in the greeting state.
func NewCallSession(tenantID, sessionID uuid.UUID, startedAt time.Time) *CallSession {
	return &CallSession{
		ID:        uuid.New(),
		TenantID:  tenantID,
		SessionID: sessionID,
		State:     StateGreeting,
		StartedAt: startedAt,
		retries:   make(map[State]int),
	}
}

func (c *CallSession) bumpRetry(s State) int {
	c.retries[s]++
	return c.retries[s]
}
func (c *CallSession) resetRetry(s State) { delete(c.retries, s) }

// Config carries the safety rails spec.md §4.9 names.
type Config struct {
	MaxTurns        int           // default 40
	MaxRetries      int           // per-state retry cap, default 3
	MaxCallDuration time.Duration // default 10 minutes
}

func (c Config) maxTurns() int {
	if c.MaxTurns > 0 {
		return c.MaxTurns
	}
	return 40
}

func (c Config) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return 3
}

func (c Config) maxCallDuration() time.Duration {
	if c.MaxCallDuration > 0 {
		return c.MaxCallDuration
	}
	return 10 * time.Minute
}

// TenantLookup resolves a tenant's full configuration.
type TenantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// Machine drives one call through the state machine, dispatching every
// booking side effect to the Tool-Executor.
type Machine struct {
	Clock    clock.Clock
	Tenants  TenantLookup
	Notifier tools.ConfirmationSender
	NewDeps  func(tenantID, sessionID uuid.UUID) *tooldeps.Dependencies
	Config   Config
}

// Result is one turn's outcome.
type Result struct {
	Say        string
	Done        bool
	HandoffSMS  bool // caller should be sent an SMS link and the call wrapped up
}

// Handle advances sess by one caller utterance and returns what to say.
func (m *Machine) Handle(ctx context.Context, sess *CallSession, utterance string) (Result, error) {
	sess.TurnCount++
	if sess.TurnCount > m.Config.maxTurns() || time.Since(sess.StartedAt) > m.Config.maxCallDuration() {
		sess.State = StateCompleted
		return Result{Say: "I'm sorry, we're running low on time — please try again or reach us online.", Done: true}, nil
	}

	if WantsHandoff(utterance) {
		sess.State = StateCompleted
		return Result{Say: "Sure, I'll text you a link to finish this online.", Done: true, HandoffSMS: true}, nil
	}

	switch sess.State {
	case StateGreeting:
		sess.State = StateCollectingIntent
		return Result{Say: "Hi, thanks for calling. Are you looking to book, reschedule, or cancel an appointment?"}, nil

	case StateCollectingIntent:
		return m.handleCollectingIntent(ctx, sess, utterance)

	case StateCollectingService:
		return m.handleCollectingService(ctx, sess, utterance)

	case StateCollectingDate:
		return m.handleCollectingDate(ctx, sess, utterance)

	case StateOfferingSlots, StateCollectingSlotChoice:
		return m.handleCollectingSlotChoice(ctx, sess, utterance)

	case StateCollectingName:
		return m.handleCollectingName(sess, utterance)

	case StateCollectingEmail:
		return m.handleCollectingEmail(ctx, sess, utterance)

	case StateCollectingReference:
		return m.handleCollectingReference(ctx, sess, utterance)

	case StateCollectingIdentity:
		return m.handleCollectingIdentity(ctx, sess, utterance)

	case StateCompleted:
		return Result{Say: "Is there anything else I can help with?", Done: true}, nil

	default:
		sess.State = StateCollectingIntent
		return Result{Say: "Sorry, could you say that again — are you looking to book, reschedule, or cancel?"}, nil
	}
}

func (m *Machine) handleCollectingIntent(ctx context.Context, sess *CallSession, utterance string) (Result, error) {
	intent := ClassifyIntent(utterance)
	sess.Intent = intent
	switch intent {
	case IntentBook:
		sess.State = StateCollectingService
		return Result{Say: "Great, what service would you like to book?"}, nil
	case IntentReschedule, IntentCancel:
		sess.State = StateCollectingReference
		return Result{Say: "Sure, can you give me the reference code on your confirmation, starting with APT?"}, nil
	default:
		if sess.bumpRetry(StateCollectingIntent) >= m.Config.maxRetries() {
			sess.State = StateCompleted
			return Result{Say: "I'm having trouble understanding — let's try this online instead. I'll send you a link.", Done: true, HandoffSMS: true}, nil
		}
		return Result{Say: "Sorry, I didn't catch that — are you booking, rescheduling, or cancelling?"}, nil
	}
}

func (m *Machine) handleCollectingService(ctx context.Context, sess *CallSession, utterance string) (Result, error) {
	tn, err := m.Tenants.GetByID(ctx, sess.TenantID)
	if err != nil {
		return Result{}, err
	}
	svc, ok := tn.MatchService(strings.TrimSpace(utterance))
	if !ok || svc == nil {
		if sess.bumpRetry(StateCollectingService) >= m.Config.maxRetries() {
			sess.State = StateCompleted
			return Result{Say: "Let's continue online — I'll send you a link by text.", Done: true, HandoffSMS: true}, nil
		}
		return Result{Say: "I didn't find that service — could you say it again, like " + firstServiceName(tn) + "?"}, nil
	}
	sess.resetRetry(StateCollectingService)
	sess.Service = svc
	sess.State = StateCollectingDate
	return Result{Say: "Got it. What day and time works for you?"}, nil
}

func firstServiceName(tn *tenant.Tenant) string {
	if len(tn.Catalog) == 0 {
		return "a haircut"
	}
	return tn.Catalog[0].Name
}

func (m *Machine) handleCollectingDate(ctx context.Context, sess *CallSession, utterance string) (Result, error) {
	tn, err := m.Tenants.GetByID(ctx, sess.TenantID)
	if err != nil {
		return Result{}, err
	}
	result := datetime.Resolve(m.Clock, utterance, "", tn.Timezone, nil)
	if result == nil {
		if sess.bumpRetry(StateCollectingDate) >= m.Config.maxRetries() {
			sess.State = StateCompleted
			return Result{Say: "Let's finish this online — I'll text you a link.", Done: true, HandoffSMS: true}, nil
		}
		return Result{Say: "I didn't catch a day and time — could you repeat it, like 'Tuesday at 2pm'?"}, nil
	}
	sess.resetRetry(StateCollectingDate)
	sess.DateResult = result

	deps := m.NewDeps(sess.TenantID, sess.SessionID)
	out, err := tools.CheckAvailability(ctx, deps, tools.CheckAvailabilityInput{
		StartDate:   result.StartUTC.Format(time.RFC3339),
		EndDate:     result.StartUTC.Add(24 * time.Hour).Format(time.RFC3339),
		ServiceName: sess.Service.Name,
	})
	if err != nil {
		return Result{}, err
	}
	if !out.Success || len(out.Slots) == 0 {
		sess.State = StateCollectingDate
		return Result{Say: "I don't see anything open then — do you have another day in mind?"}, nil
	}
	sess.Slots = out.Slots
	sess.State = StateCollectingSlotChoice
	return Result{Say: describeSlots(out.Slots)}, nil
}

func describeSlots(slots []tools.SlotResponse) string {
	var b strings.Builder
	b.WriteString("Here's what's open: ")
	for i, s := range slots {
		if i > 0 {
			b.WriteString(", ")
		}
		start, err := time.Parse(time.RFC3339, s.StartTime)
		if err == nil {
			b.WriteString(fmt.Sprintf("option %d at %s", i+1, start.Format("3:04 PM")))
		}
	}
	b.WriteString(". Which one would you like?")
	return b.String()
}

func (m *Machine) handleCollectingSlotChoice(ctx context.Context, sess *CallSession, utterance string) (Result, error) {
	idx, ok := ExtractSlotChoice(utterance, sess.Slots)
	if !ok {
		if sess.bumpRetry(StateCollectingSlotChoice) >= m.Config.maxRetries() {
			sess.State = StateCompleted
			return Result{Say: "Let's finish this online — I'll text you a link.", Done: true, HandoffSMS: true}, nil
		}
		return Result{Say: "Sorry, which option — the first or the second?"}, nil
	}
	sess.resetRetry(StateCollectingSlotChoice)
	chosen := sess.Slots[idx]

	deps := m.NewDeps(sess.TenantID, sess.SessionID)
	holdOut, err := tools.HoldSlot(ctx, deps, tools.HoldSlotInput{StartTime: chosen.StartTime, EndTime: chosen.EndTime})
	if err != nil {
		return Result{}, err
	}
	if !holdOut.Success {
		sess.State = StateCollectingDate
		return Result{Say: "That slot just got taken — let's find another time. What day works?"}, nil
	}
	sess.HoldID = holdOut.HoldID
	sess.State = StateCollectingName
	return Result{Say: "Great, can I get your full name?"}, nil
}

func (m *Machine) handleCollectingName(sess *CallSession, utterance string) (Result, error) {
	name, ok := ExtractFullName(utterance)
	if !ok {
		if sess.bumpRetry(StateCollectingName) >= m.Config.maxRetries() {
			sess.State = StateCompleted
			return Result{Say: "Let's finish this online — I'll text you a link.", Done: true, HandoffSMS: true}, nil
		}
		return Result{Say: "Sorry, could you say your first and last name?"}, nil
	}
	sess.resetRetry(StateCollectingName)
	sess.ClientName = name
	sess.State = StateCollectingEmail
	return Result{Say: "Thanks, " + name + ". And what's your email address?"}, nil
}

func (m *Machine) handleCollectingEmail(ctx context.Context, sess *CallSession, utterance string) (Result, error) {
	email, ok := ExtractEmail(utterance)
	if !ok {
		if sess.bumpRetry(StateCollectingEmail) >= m.Config.maxRetries() {
			sess.State = StateCompleted
			return Result{Say: "No problem, I'll text you a link to finish booking.", Done: true, HandoffSMS: true}, nil
		}
		return Result{Say: "Sorry, could you spell that out, like 'alex at example dot com'?"}, nil
	}
	sess.resetRetry(StateCollectingEmail)
	sess.ClientEmail = email
	sess.State = StateConfirmingBooking

	deps := m.NewDeps(sess.TenantID, sess.SessionID)
	out, err := tools.ConfirmBooking(ctx, deps, m.Notifier, tools.ConfirmBookingInput{
		HoldID:      sess.HoldID,
		ClientName:  sess.ClientName,
		ClientEmail: sess.ClientEmail,
	})
	if err != nil {
		return Result{}, err
	}
	sess.State = StateCompleted
	if !out.Success {
		return Result{Say: "I couldn't confirm that booking just now — please call back or try online.", Done: true}, nil
	}
	sess.ReferenceCode = out.ReferenceCode
	return Result{Say: "You're booked. Your reference code is " + out.ReferenceCode + ". Anything else?", Done: true}, nil
}

func (m *Machine) handleCollectingReference(ctx context.Context, sess *CallSession, utterance string) (Result, error) {
	code, ok := ExtractReferenceCode(utterance)
	if !ok {
		if sess.bumpRetry(StateCollectingReference) >= m.Config.maxRetries() {
			sess.State = StateCompleted
			return Result{Say: "Let's finish this online — I'll text you a link.", Done: true, HandoffSMS: true}, nil
		}
		return Result{Say: "Sorry, could you read me the reference code again?"}, nil
	}
	sess.resetRetry(StateCollectingReference)
	sess.ReferenceCode = code
	if sess.Intent == IntentCancel {
		sess.State = StateCollectingIdentity
		return Result{Say: "To confirm it's you, can you read me the last 4 digits of the phone number on the booking?"}, nil
	}
	sess.State = StateCompleted
	return Result{Say: "Rescheduling over the phone isn't supported yet — I'll text you a link to pick a new time.", Done: true, HandoffSMS: true}, nil
}

func (m *Machine) handleCollectingIdentity(ctx context.Context, sess *CallSession, utterance string) (Result, error) {
	last4, ok := ExtractPhoneLast4(utterance)
	if !ok {
		if sess.bumpRetry(StateCollectingIdentity) >= m.Config.maxRetries() {
			sess.State = StateCompleted
			return Result{Say: "Let's finish this online — I'll text you a link.", Done: true, HandoffSMS: true}, nil
		}
		return Result{Say: "Sorry, could you read me just the last 4 digits again?"}, nil
	}
	sess.PhoneLast4 = last4
	sess.State = StateCompleted

	deps := m.NewDeps(sess.TenantID, sess.SessionID)
	out, err := tools.CancelBooking(ctx, deps, tools.CancelBookingInput{ReferenceCode: sess.ReferenceCode, PhoneLast4: last4})
	if err != nil {
		return Result{}, err
	}
	if !out.Success {
		return Result{Say: "I couldn't verify that booking — please try online or call back.", Done: true}, nil
	}
	return Result{Say: "Done, your appointment is cancelled. Anything else?", Done: true}, nil
}
