// Package tooldeps holds the per-conversation dependency bag the
// Tool-Executor's seven tool handlers share: the domain services they
// call, the session/tenant context they're scoped to, and a set of
// per-turn tracking flags guardrails consult (has confirm_booking
// already succeeded this turn? how many follow-ups has this session
// requested?). Grounded on the teacher's
// internal/leads/agent/tools.go ToolDependencies: same mutex-guarded
// Set*/Get*/Mark*Called/Was*Called/Reset shape, generalized from lead
// analysis tracking to booking tool tracking.
package tooldeps

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/booking/appointment/service"
	"bookingagent/internal/booking/availability"
	"bookingagent/internal/booking/hold"
	"bookingagent/internal/booking/waitlist"
	"bookingagent/internal/policy"
	"bookingagent/internal/session"
	"bookingagent/internal/tenant"
)

// TenantLookup resolves a tenant's full configuration (catalog, quiet
// hours, timezone) for tools that need more than the availability
// engine's narrow TenantConfig.
type TenantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// Limits carries the numeric/duration thresholds spec.md §6's
// configuration table names, resolved once at composition-root startup.
type Limits struct {
	FarDateConfirmDays   int
	MaxAvailabilityDays  int
	FollowupMaxPerSession int
	FollowupCooldown     time.Duration
}

// RiskAssessor scores a session's behavioural risk. Its failures are
// recovered locally (treated as allow) per spec.md §9's
// "risk-engine failures during availability checks" recovery rule; no
// dedicated Risk Engine module exists, so this is a narrow, optional
// capability interface a real scoring service can satisfy later.
type RiskAssessor interface {
	Assess(ctx context.Context, tenantID, sessionID uuid.UUID) (score float64, err error)
}

// FollowupScheduler schedules a contact follow-up job.
type FollowupScheduler interface {
	Schedule(ctx context.Context, tenantID, sessionID uuid.UUID, clientName, clientEmail, preferredContact, reason string) (jobID string, err error)
}

// Dependencies bundles every service a tool handler may call, plus the
// per-turn tracking state guardrails read and mutate. One instance is
// constructed per conversation turn (or per tool-use loop iteration) by
// the Chat Router.
type Dependencies struct {
	Availability *availability.Engine
	Holds        *hold.Service
	Appointments *service.Service
	Waitlist     *waitlist.Service
	Sessions     *session.Service
	Policy       *policy.Engine
	PolicyRules  PolicyRuleLister
	Risk         RiskAssessor
	Followups    FollowupScheduler
	Tenants      TenantLookup
	Limits       Limits

	mu        sync.RWMutex
	tenantID  uuid.UUID
	sessionID uuid.UUID
	runID     string

	confirmBookingCalled    bool
	cancelBookingCalled     bool
	rescheduleCalled        bool
	holdSlotCalled          bool
	followupScheduledCount  int
	followupLastScheduledAt time.Time
	farDateConfirmed        bool
}

// PolicyRuleLister loads the rule set for a gated action; narrow
// interface to avoid importing the policy repository's pgx dependency
// into every tool handler's test double.
type PolicyRuleLister interface {
	ListForAction(ctx context.Context, action string) ([]policy.Rule, error)
}

// New builds a Dependencies bag scoped to one tenant/session.
func New(tenantID, sessionID uuid.UUID) *Dependencies {
	return &Dependencies{
		tenantID:  tenantID,
		sessionID: sessionID,
		runID:     uuid.NewString(),
	}
}

func (d *Dependencies) TenantID() uuid.UUID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tenantID
}

func (d *Dependencies) SessionID() uuid.UUID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sessionID
}

// RunID correlates every tool call within one agent run, for log lines
// and error correlation ids.
func (d *Dependencies) RunID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.runID
}

// MarkConfirmBookingCalled records that confirm_booking succeeded this
// turn; the Response Post-Processor's guardrail 3 checks this before
// allowing confirmation language through.
func (d *Dependencies) MarkConfirmBookingCalled() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.confirmBookingCalled = true
}

func (d *Dependencies) WasConfirmBookingCalled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.confirmBookingCalled
}

func (d *Dependencies) MarkCancelBookingCalled() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelBookingCalled = true
}

func (d *Dependencies) WasCancelBookingCalled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cancelBookingCalled
}

func (d *Dependencies) MarkRescheduleCalled() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rescheduleCalled = true
}

func (d *Dependencies) WasRescheduleCalled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rescheduleCalled
}

func (d *Dependencies) MarkHoldSlotCalled() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.holdSlotCalled = true
}

func (d *Dependencies) WasHoldSlotCalled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.holdSlotCalled
}

// SetFarDateConfirmed records that the LLM re-confirmed a far-future
// hold with the customer, satisfying hold_slot's
// FAR_DATE_CONFIRMATION_REQUIRED guardrail for the rest of this turn.
func (d *Dependencies) SetFarDateConfirmed(confirmed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.farDateConfirmed = confirmed
}

func (d *Dependencies) FarDateConfirmed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.farDateConfirmed
}

// RecordFollowupScheduled increments this bag's follow-up counter and
// tracks when, for schedule_contact_followup's cap and cooldown guardrails.
// A bag lives for one turn, so the count starts at zero on every turn.
func (d *Dependencies) RecordFollowupScheduled(at time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.followupScheduledCount++
	d.followupLastScheduledAt = at
}

// FollowupCount returns how many follow-ups were recorded on this bag.
func (d *Dependencies) FollowupCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.followupScheduledCount
}

// FollowupCooldownRemaining returns how long until the cooldown since the
// last follow-up recorded on this bag expires, or zero if none is pending.
func (d *Dependencies) FollowupCooldownRemaining(cooldown time.Duration, now time.Time) time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.followupLastScheduledAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(d.followupLastScheduledAt)
	if elapsed >= cooldown {
		return 0
	}
	return cooldown - elapsed
}

// ResetToolCallTracking clears per-turn flags and assigns a fresh run
// id, for the start of a new tool-use loop iteration.
func (d *Dependencies) ResetToolCallTracking() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runID = uuid.NewString()
	d.confirmBookingCalled = false
	d.cancelBookingCalled = false
	d.rescheduleCalled = false
	d.holdSlotCalled = false
	d.farDateConfirmed = false
}
