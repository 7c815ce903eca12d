package sms

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/agent/tools"
	"bookingagent/internal/booking/appointment/repository"
	"bookingagent/internal/notification/outbox"
	"bookingagent/internal/policy"
)

// ActionSendConfirmation is the Policy Engine action name gating
// outbound booking-confirmation SMS (see internal/policy's
// send_sms_confirmation grounding).
const ActionSendConfirmation = "send_sms_confirmation"

const outboxKindConfirmation = "sms"

// AppointmentLookup resolves the appointment a confirmation is for, to
// fill in the service name and start time the message body names.
type AppointmentLookup interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*repository.Appointment, error)
}

// PolicyRuleLister loads the rule set confirmations are gated by.
// Mirrors tooldeps.PolicyRuleLister so the same repository satisfies
// both without an import cycle between tools and sms.
type PolicyRuleLister interface {
	ListForAction(ctx context.Context, action string) ([]policy.Rule, error)
}

// Configurable reports whether a real carrier is wired up, letting
// Confirmations distinguish tools.SMSStatusWillSend from
// tools.SMSStatusSimulator at enqueue time without waiting on a send.
type Configurable interface {
	Configured() bool
}

// Confirmations implements tools.ConfirmationSender: it enqueues the
// booking-confirmation SMS onto the outbox and returns immediately,
// matching spec.md §4.10's "the outbox decouples booking-time success
// from carrier success" — confirm_booking never waits on the carrier.
// It is the single insertion path for a confirmation outbox row; no
// events.BookingCreated subscriber re-enqueues the same message, so a
// session's confirm_booking call can never double-send.
type Confirmations struct {
	Outbox       *outbox.Repository
	Appointments AppointmentLookup
	Policy       *policy.Engine
	PolicyRules  PolicyRuleLister
	Carrier      Configurable
}

// SendBookingConfirmation enqueues the confirmation SMS and reports one
// of tools.SMSStatus* without blocking on carrier delivery.
func (c *Confirmations) SendBookingConfirmation(ctx context.Context, tenantID, appointmentID uuid.UUID, phone, referenceCode string) (string, error) {
	if c == nil || c.Outbox == nil {
		return tools.SMSStatusUnavailable, nil
	}

	if c.Policy != nil && c.PolicyRules != nil {
		rules, err := c.PolicyRules.ListForAction(ctx, ActionSendConfirmation)
		if err == nil {
			decision := c.Policy.Evaluate(ActionSendConfirmation, tenantID, nil, rules)
			if !decision.Allowed {
				return tools.SMSStatusDisabled, nil
			}
		}
		// A rule-load failure is recovered locally as allow — the same
		// "risk-engine failure" recovery rule tools.handleConfirmBooking
		// applies to deps.Risk.
	}

	body := fmt.Sprintf("Confirmed: your appointment. Ref: %s. Reply CHANGE / CANCEL / STOP.", referenceCode)
	if c.Appointments != nil {
		if appt, err := c.Appointments.GetByID(ctx, tenantID, appointmentID); err == nil && appt != nil {
			body = fmt.Sprintf("Confirmed: %s on %s. Ref: %s. Reply CHANGE / CANCEL / STOP.",
				appt.ServiceName, formatLocal(appt.StartTime, appt.Timezone), referenceCode)
		}
	}

	payload := confirmationPayload{
		AppointmentID: appointmentID,
		Phone:         phone,
		Body:          body,
	}

	if _, err := c.Outbox.Insert(ctx, outbox.InsertParams{
		TenantID: tenantID,
		Kind:     outboxKindConfirmation,
		Template: "booking_confirmation",
		Payload:  payload,
	}); err != nil {
		return tools.SMSStatusUnavailable, err
	}

	if c.Carrier != nil && !c.Carrier.Configured() {
		return tools.SMSStatusSimulator, nil
	}
	return tools.SMSStatusWillSend, nil
}

type confirmationPayload struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	Phone         string    `json:"phone"`
	Body          string    `json:"body"`
}

func formatLocal(t time.Time, timezone string) string {
	if loc, err := time.LoadLocation(timezone); err == nil {
		t = t.In(loc)
	}
	return t.Format("Mon Jan 2 15:04")
}
