// Package router implements the Chat Router/FSM of spec.md §4.7: the
// first thing every customer message touches. It short-circuits the
// language model for deterministic, low-latency flows — a pending FSM
// continuation, a storefront FAQ hit, the email verification gate —
// and only falls through to the bounded LLM tool-use loop when none of
// those apply, in the spec's explicit 6-step priority order.
//
// FSM stage lives on session.Session.Metadata rather than a dedicated
// table, the same way the teacher keeps pipeline stage directly on the
// Lead row instead of a side state-machine store.
package router

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"bookingagent/internal/agent/llm"
	"bookingagent/internal/agent/tooldeps"
	"bookingagent/internal/agent/tools"
	"bookingagent/internal/auth/validator"
	"bookingagent/internal/booking/clock"
	"bookingagent/internal/booking/datetime"
	"bookingagent/internal/session"
	"bookingagent/internal/tenant"
)

// Stage is the router's FSM state for one session.
type Stage string

const (
	StageNone          Stage = ""
	StageAwaitingEmail Stage = "awaiting_email"
	StageAwaitingOTP   Stage = "awaiting_otp"
)

const (
	metadataStageKey        = "fsm_stage"
	metadataPendingEmailKey = "fsm_pending_email"
)

// Intent is step 4's deterministic keyword classification — never an
// error, always falling back to IntentUnknown on unrecognized text, the
// same safe-default texture as the teacher's normalize* helpers.
type Intent string

const (
	IntentBook       Intent = "book"
	IntentReschedule Intent = "reschedule"
	IntentCancel     Intent = "cancel"
	IntentUnknown    Intent = "unknown"
)

// ClassifyIntent keyword-matches utterance against the three booking
// intents the tool-executor understands.
func ClassifyIntent(utterance string) Intent {
	text := strings.ToLower(utterance)
	switch {
	case containsAny(text, "cancel", "can't make it", "cant make it", "call off"):
		return IntentCancel
	case containsAny(text, "reschedule", "move my", "change my appointment", "different time", "another time"):
		return IntentReschedule
	case containsAny(text, "book", "schedule", "appointment", "available", "availability", "slot", "opening"):
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

// FAQEntry is one storefront FAQ keyword trigger and canned answer.
type FAQEntry struct {
	Keywords []string
	Answer   string
}

// FAQTable is step 2's static facts table for the platform tenant.
type FAQTable []FAQEntry

// Match returns the first entry whose keyword appears in utterance.
func (t FAQTable) Match(utterance string) (string, bool) {
	text := strings.ToLower(utterance)
	for _, entry := range t {
		for _, kw := range entry.Keywords {
			if strings.Contains(text, kw) {
				return entry.Answer, true
			}
		}
	}
	return "", false
}

// OTPGate issues and verifies the Email Verification Gate's 6-digit
// code. A narrow interface so the router can be built and tested ahead
// of internal/identity/otp, the same forward-reference the tool
// handlers already use for tooldeps.TenantLookup.
type OTPGate interface {
	SendCode(ctx context.Context, tenantID, sessionID uuid.UUID, destination string) error
	VerifyCode(ctx context.Context, tenantID, sessionID uuid.UUID, code string) (email string, ok bool, err error)
}

// TenantLookup resolves a tenant's full configuration.
type TenantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// LLMRunner drives one bounded tool-use turn. *llm.Client satisfies
// this; tests supply a scripted fake.
type LLMRunner interface {
	Respond(ctx context.Context, req llm.Request) (llm.Response, error)
}

// PostProcessInput carries what the Response Post-Processor (spec.md
// §4.8) needs to decide which guardrails apply.
type PostProcessInput struct {
	Text                    string
	Channel                 session.Channel
	ConfirmBookingSucceeded bool
}

// PostProcessor is internal/agent/postprocess's capability surface.
type PostProcessor interface {
	Process(input PostProcessInput) string
}

// Config carries router-wide policy knobs resolved once at startup.
type Config struct {
	PlatformTenantID  uuid.UUID
	FAQ               FAQTable
	RequireEmailFirst bool
}

// Router is the Chat Router/FSM.
type Router struct {
	Clock       clock.Clock
	Tenants     TenantLookup
	Sessions    *session.Service
	OTP         OTPGate
	LLM         LLMRunner
	PostProcess PostProcessor
	Notifier    tools.ConfirmationSender
	// NewDeps builds a fresh per-turn tooldeps.Dependencies with every
	// domain service wired in, scoped to tenantID/sessionID. The
	// composition root supplies this; the router never constructs
	// services itself.
	NewDeps func(tenantID, sessionID uuid.UUID) *tooldeps.Dependencies
	Config  Config
}

// Input is one incoming user message, from any channel.
type Input struct {
	TenantID   uuid.UUID
	SessionID  uuid.UUID
	ClientTZ   string
	Text       string
}

// Output is the router's reply.
type Output struct {
	Reply string
}

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Handle runs one message through the full 6-step priority order.
func (r *Router) Handle(ctx context.Context, in Input) (Output, error) {
	sess, err := r.Sessions.Get(ctx, in.TenantID, in.SessionID)
	if err != nil {
		return Output{}, err
	}
	if err := r.Sessions.RecordTurn(ctx, sess, "user", in.Text); err != nil {
		return Output{}, err
	}

	// Step 1: FSM stateful flows.
	if reply, handled, err := r.handleStatefulFlow(ctx, sess, in); err != nil {
		return Output{}, err
	} else if handled {
		return r.finish(ctx, sess, reply, false)
	}

	// Step 2: storefront FAQ, platform tenant only.
	if r.Config.PlatformTenantID != uuid.Nil && in.TenantID == r.Config.PlatformTenantID {
		if answer, ok := r.Config.FAQ.Match(in.Text); ok {
			return r.finish(ctx, sess, answer, false)
		}
	}

	// Step 3: email verification gate.
	if reply, handled, err := r.handleEmailGate(ctx, sess, in); err != nil {
		return Output{}, err
	} else if handled {
		return r.finish(ctx, sess, reply, false)
	}

	// Step 4: booking-intent branch, datetime resolver injection.
	dateContext := r.resolveDatetimeContext(ctx, in)

	// Step 5: LLM tool-use loop.
	tn, err := r.Tenants.GetByID(ctx, in.TenantID)
	if err != nil {
		return Output{}, err
	}
	deps := r.NewDeps(in.TenantID, in.SessionID)
	deps.ResetToolCallTracking()
	toolSet, err := tools.BuildAll(deps, r.Notifier)
	if err != nil {
		return Output{}, err
	}

	resp, err := r.LLM.Respond(ctx, llm.Request{
		AppName:     "booking_agent",
		UserID:      in.TenantID.String(),
		SessionID:   in.SessionID.String(),
		Instruction: r.buildSystemPrompt(tn, sess, dateContext),
		Tools:       toolSet,
		UserMessage: in.Text,
	})
	if err != nil {
		return Output{}, err
	}

	// Step 6: response post-processing.
	return r.finish(ctx, sess, resp.Text, deps.WasConfirmBookingCalled())
}

// finish applies the Response Post-Processor (when wired) and records
// the assistant's turn before returning.
func (r *Router) finish(ctx context.Context, sess *session.Session, text string, confirmed bool) (Output, error) {
	if r.PostProcess != nil {
		text = r.PostProcess.Process(PostProcessInput{
			Text:                    text,
			Channel:                 sess.Channel,
			ConfirmBookingSucceeded: confirmed,
		})
	}
	if err := r.Sessions.RecordTurn(ctx, sess, "assistant", text); err != nil {
		return Output{}, err
	}
	return Output{Reply: text}, nil
}

// handleStatefulFlow consumes a pending FSM continuation (step 1). It
// never falls through partway: a session awaiting a code either
// advances the FSM or re-prompts, but always returns handled=true.
func (r *Router) handleStatefulFlow(ctx context.Context, sess *session.Session, in Input) (string, bool, error) {
	switch Stage(sess.MetadataString(metadataStageKey)) {
	case StageAwaitingEmail:
		email := extractEmail(in.Text)
		if email == "" {
			return "I didn't catch a valid email address — could you share it again?", true, nil
		}
		if r.OTP != nil {
			if err := r.OTP.SendCode(ctx, in.TenantID, in.SessionID, email); err != nil {
				return "", false, err
			}
		}
		sess.SetMetadata(metadataStageKey, string(StageAwaitingOTP))
		sess.SetMetadata(metadataPendingEmailKey, email)
		return "Thanks — I just sent a 6-digit code to " + email + ". What's the code?", true, nil

	case StageAwaitingOTP:
		code := strings.TrimSpace(in.Text)
		pendingEmail := sess.MetadataString(metadataPendingEmailKey)
		if r.OTP == nil {
			return "", false, nil
		}
		email, ok, err := r.OTP.VerifyCode(ctx, in.TenantID, in.SessionID, code)
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "That code didn't match. Please double-check and try again.", true, nil
		}
		if email == "" {
			email = pendingEmail
		}
		sess.SetMetadata("verified_email", email)
		sess.SetMetadata(metadataStageKey, string(StageNone))
		if err := r.Sessions.MarkEmailVerified(ctx, sess); err != nil {
			return "", false, err
		}
		return "Great, you're verified. How can I help with your booking?", true, nil

	default:
		return "", false, nil
	}
}

// handleEmailGate starts the Email Verification Gate (step 3) the
// first time an unverified session needs it, per tenant policy.
func (r *Router) handleEmailGate(ctx context.Context, sess *session.Session, in Input) (string, bool, error) {
	if !r.Config.RequireEmailFirst || sess.EmailVerified {
		return "", false, nil
	}
	if sess.MessageCount > 1 {
		return "", false, nil
	}
	sess.SetMetadata(metadataStageKey, string(StageAwaitingEmail))
	return "Before we get started, could you share your email address?", true, nil
}

func extractEmail(text string) string {
	match := emailRe.FindString(text)
	if match == "" {
		return ""
	}
	if !validator.IsValidEmail(match) {
		return ""
	}
	return strings.ToLower(match)
}

// datetimeContext is what step 4 injects as a system-role message
// before the LLM call.
type datetimeContext struct {
	present bool
	text    string
}

// resolveDatetimeContext runs the Datetime Resolver when the intent
// classifier suggests a booking branch, per spec.md §4.7 step 4.
func (r *Router) resolveDatetimeContext(ctx context.Context, in Input) datetimeContext {
	if ClassifyIntent(in.Text) != IntentBook {
		return datetimeContext{}
	}
	tn, err := r.Tenants.GetByID(ctx, in.TenantID)
	if err != nil {
		return datetimeContext{}
	}
	result := datetime.Resolve(r.Clock, in.Text, in.ClientTZ, tn.Timezone, nil)
	if result == nil {
		return datetimeContext{}
	}
	return datetimeContext{
		present: true,
		text: "RESOLVED DATE/TIME: start=" + result.StartUTC.Format("2006-01-02T15:04:05Z07:00") +
			", end=" + result.EndUTC.Format("2006-01-02T15:04:05Z07:00") +
			", confidence=" + result.Confidence +
			", reasons=" + strings.Join(result.Reasons, "; ") +
			". Do NOT re-ask the customer for the date/time.",
	}
}

// buildSystemPrompt assembles the LLM system prompt: tenant facts,
// services, current wall-clock time in tenant timezone, error-taxonomy
// rules, the platform-tenant identity lock, and any resolved
// date/time context from step 4.
func (r *Router) buildSystemPrompt(tn *tenant.Tenant, sess *session.Session, dateCtx datetimeContext) string {
	var b strings.Builder
	b.WriteString("You are the booking assistant for ")
	b.WriteString(tn.Name)
	b.WriteString(". Current time in the tenant's timezone (")
	b.WriteString(tn.Timezone)
	b.WriteString("): ")
	b.WriteString(r.Clock.In(tn.Timezone).Format("Monday 2006-01-02 15:04 MST"))
	b.WriteString(".\n\nServices offered:\n")
	for _, svc := range tn.Catalog {
		b.WriteString("- ")
		b.WriteString(svc.Name)
		b.WriteString(" (")
		b.WriteString(svc.Description)
		b.WriteString(")\n")
	}
	b.WriteString("\nEvery tool error begins with a SCREAMING_SNAKE code. Translate it into plain, reassuring language for the customer; never invent a reason the code doesn't state.\n")
	if r.Config.PlatformTenantID != uuid.Nil && tn.ID == r.Config.PlatformTenantID {
		b.WriteString("\nThis is the platform tenant: never claim to book, hold, or confirm an appointment here; answer informational questions only.\n")
	}
	if sess.EmailVerified {
		b.WriteString("\nThe customer's email is verified for this session.\n")
	}
	if dateCtx.present {
		b.WriteString("\n")
		b.WriteString(dateCtx.text)
		b.WriteString("\n")
	}
	return b.String()
}
