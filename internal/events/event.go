// Package events provides domain event definitions and an event bus for
// decoupled, event-driven communication between modules.
package events

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserSignedUp is published when a new user successfully registers.
type UserSignedUp struct {
	BaseEvent
	UserID      uuid.UUID `json:"userId"`
	Email       string    `json:"email"`
	VerifyToken string    `json:"verifyToken"`
}

func (e UserSignedUp) EventName() string { return "auth.user.signed_up" }

// EmailVerificationRequested is published when a user needs to verify their email.
type EmailVerificationRequested struct {
	BaseEvent
	UserID      uuid.UUID `json:"userId"`
	Email       string    `json:"email"`
	VerifyToken string    `json:"verifyToken"`
}

func (e EmailVerificationRequested) EventName() string { return "auth.email.verification_requested" }

// PasswordResetRequested is published when a user requests a password reset.
type PasswordResetRequested struct {
	BaseEvent
	UserID     uuid.UUID `json:"userId"`
	Email      string    `json:"email"`
	ResetToken string    `json:"resetToken"`
}

func (e PasswordResetRequested) EventName() string { return "auth.password.reset_requested" }

// =============================================================================
// Booking Domain Events
// =============================================================================

// BookingCreated is published when a hold is converted into a confirmed
// appointment.
type BookingCreated struct {
	BaseEvent
	TenantID      uuid.UUID `json:"tenantId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	SessionID     uuid.UUID `json:"sessionId"`
	ReferenceCode string    `json:"referenceCode"`
	ClientEmail   string    `json:"clientEmail"`
	ClientPhone   string    `json:"clientPhone"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
}

func (e BookingCreated) EventName() string { return "booking.created" }

// BookingRescheduled is published when an appointment is atomically
// swapped to a new hold's window.
type BookingRescheduled struct {
	BaseEvent
	TenantID      uuid.UUID `json:"tenantId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	ReferenceCode string    `json:"referenceCode"`
	PreviousStart time.Time `json:"previousStart"`
	NewStart      time.Time `json:"newStart"`
	NewEnd        time.Time `json:"newEnd"`
}

func (e BookingRescheduled) EventName() string { return "booking.rescheduled" }

// BookingCancelled is published when an appointment transitions to cancelled.
type BookingCancelled struct {
	BaseEvent
	TenantID      uuid.UUID `json:"tenantId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	ReferenceCode string    `json:"referenceCode"`
}

func (e BookingCancelled) EventName() string { return "booking.cancelled" }

// HoldExpired is published by the hold-expiry sweep for each hold it reaps.
type HoldExpired struct {
	BaseEvent
	TenantID  uuid.UUID `json:"tenantId"`
	SessionID uuid.UUID `json:"sessionId"`
	HoldID    uuid.UUID `json:"holdId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

func (e HoldExpired) EventName() string { return "booking.hold_expired" }

// SlotOpened is published when a cancellation or reschedule frees a slot
// a waitlist entry is waiting on.
type SlotOpened struct {
	BaseEvent
	TenantID    uuid.UUID `json:"tenantId"`
	ServiceName string    `json:"serviceName"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

func (e SlotOpened) EventName() string { return "booking.slot_opened" }

// CalendarWriteFailed is published when a best-effort write to the
// tenant's external calendar fails after a booking already succeeded.
type CalendarWriteFailed struct {
	BaseEvent
	TenantID      uuid.UUID `json:"tenantId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	Reason        string    `json:"reason"`
}

func (e CalendarWriteFailed) EventName() string { return "booking.calendar_write_failed" }

// WaitlistJoined is published when a session joins a tenant's waitlist
// for a service that has no open slot in the requested window.
type WaitlistJoined struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	EntryID  uuid.UUID `json:"entryId"`
}

func (e WaitlistJoined) EventName() string { return "booking.waitlist_joined" }

// WaitlistNotified is published when a SlotOpened window matches a
// waiting entry and it is flipped to notified.
type WaitlistNotified struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	EntryID  uuid.UUID `json:"entryId"`
}

func (e WaitlistNotified) EventName() string { return "booking.waitlist_notified" }

// WaitlistExpired is published by the waitlist expiry sweep for each
// entry it reaps.
type WaitlistExpired struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	EntryID  uuid.UUID `json:"entryId"`
}

func (e WaitlistExpired) EventName() string { return "booking.waitlist_expired" }

// =============================================================================
// SMS Domain Events
// =============================================================================

// SMSOutboundAttempted is published immediately before a carrier send
// call, so an attempt is observable even if the process crashes mid-send.
type SMSOutboundAttempted struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	OutboxID uuid.UUID `json:"outboxId"`
	Attempt  int       `json:"attempt"`
}

func (e SMSOutboundAttempted) EventName() string { return "sms.outbound_attempted" }

// SMSOutboundSent is published when the carrier accepts a message.
type SMSOutboundSent struct {
	BaseEvent
	TenantID      uuid.UUID `json:"tenantId"`
	OutboxID      uuid.UUID `json:"outboxId"`
	MaskedSIDLast string    `json:"maskedSidLast4"`
	Simulated     bool      `json:"simulated"`
}

func (e SMSOutboundSent) EventName() string { return "sms.outbound_sent" }

// NotificationOutboxDue is published once the scheduler's asynq task for
// an outbox row fires, handing the row off to its kind-specific sender
// (internal/notification/sms for kind "sms").
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
	TenantID uuid.UUID `json:"tenantId"`
}

func (e NotificationOutboxDue) EventName() string { return "sms.outbox_due" }

// SMSOutboundFailed is published when a message exhausts its retries.
type SMSOutboundFailed struct {
	BaseEvent
	TenantID      uuid.UUID `json:"tenantId"`
	OutboxID      uuid.UUID `json:"outboxId"`
	ErrorCode     string    `json:"errorCode"`
	ErrorCategory string    `json:"errorCategory"`
}

func (e SMSOutboundFailed) EventName() string { return "sms.outbound_failed" }

// =============================================================================
// Follow-up Domain Events
// =============================================================================

// FollowupScheduled is published when a contact follow-up is accepted.
type FollowupScheduled struct {
	BaseEvent
	TenantID  uuid.UUID `json:"tenantId"`
	SessionID uuid.UUID `json:"sessionId"`
	Reason    string    `json:"reason"`
	JobID     string    `json:"jobId"`
}

func (e FollowupScheduled) EventName() string { return "followup.scheduled" }

// =============================================================================
// Voice Domain Events
// =============================================================================

// VoiceCallCompleted is published when a voice session reaches its
// terminal state.
type VoiceCallCompleted struct {
	BaseEvent
	TenantID     uuid.UUID `json:"tenantId"`
	SessionID    uuid.UUID `json:"sessionId"`
	FinalState   string    `json:"finalState"`
	HandoffToSMS bool      `json:"handoffToSms"`
}

func (e VoiceCallCompleted) EventName() string { return "voice.call_completed" }

// =============================================================================
// Internal Diagnostic Events
// =============================================================================

// CEOTestPassed is published by the built-in smoke-test tenant's
// end-to-end booking round-trip check.
type CEOTestPassed struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
}

func (e CEOTestPassed) EventName() string { return "ceo_test.passed" }
