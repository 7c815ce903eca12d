package tools

// Input/output shapes for the seven tools of spec.md §6's tool contract
// table. Field names match the table's required-args column exactly —
// these are the JSON schema the LLM sees, not our internal naming.

// CheckAvailabilityInput is check_availability's arguments.
type CheckAvailabilityInput struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	ServiceName string `json:"service_name,omitempty"`
}

// CheckAvailabilityOutput reports candidate slots, or a guardrail error.
type CheckAvailabilityOutput struct {
	Success bool           `json:"success"`
	Slots   []SlotResponse `json:"slots,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// SlotResponse is one candidate window, ISO-8601 timestamps.
type SlotResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// HoldSlotInput is hold_slot's arguments.
type HoldSlotInput struct {
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	FarDateConfirmed bool   `json:"far_date_confirmed,omitempty"`
}

// HoldSlotOutput returns a hold id the customer has exclusive claim to
// until it expires.
type HoldSlotOutput struct {
	Success   bool   `json:"success"`
	HoldID    string `json:"hold_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ConfirmBookingInput is confirm_booking's arguments.
type ConfirmBookingInput struct {
	HoldID      string `json:"hold_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone"`
}

// ConfirmBookingOutput reports the confirmed reference code and the
// outcome of the best-effort SMS confirmation.
type ConfirmBookingOutput struct {
	Success       bool   `json:"success"`
	ReferenceCode string `json:"reference_code,omitempty"`
	SMSStatus     string `json:"sms_status,omitempty"`
	Error         string `json:"error,omitempty"`
}

const (
	SMSStatusWillSend    = "will_send"
	SMSStatusSimulator   = "simulator"
	SMSStatusUnavailable = "unavailable"
	SMSStatusDisabled    = "disabled"
	SMSStatusNoPhone     = "no_phone"
)

// LookupBookingInput is lookup_booking's arguments; at least one of
// ReferenceCode/Email must be set, and ReferenceCode wins when both are.
type LookupBookingInput struct {
	ReferenceCode string `json:"reference_code,omitempty"`
	Email         string `json:"email,omitempty"`
}

// LookupBookingOutput reports the matched booking's public fields.
type LookupBookingOutput struct {
	Success       bool   `json:"success"`
	ReferenceCode string `json:"reference_code,omitempty"`
	ServiceName   string `json:"service_name,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
	Status        string `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RescheduleBookingInput is reschedule_booking's arguments.
type RescheduleBookingInput struct {
	AppointmentID string `json:"appointment_id"`
	NewHoldID     string `json:"new_hold_id"`
}

// RescheduleBookingOutput reports the new reference code (reschedule
// issues a fresh reference code for the replacement appointment; the
// old code stays on the cancelled one).
type RescheduleBookingOutput struct {
	Success       bool   `json:"success"`
	ReferenceCode string `json:"reference_code,omitempty"`
	NewStartTime  string `json:"new_start_time,omitempty"`
	NewEndTime    string `json:"new_end_time,omitempty"`
	Error         string `json:"error,omitempty"`
}

// CancelBookingInput is cancel_booking's arguments.
type CancelBookingInput struct {
	ReferenceCode string `json:"reference_code"`
	PhoneLast4    string `json:"phone_last4,omitempty"`
}

// CancelBookingOutput reports success or a guardrail/anti-enumeration
// error.
type CancelBookingOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ScheduleContactFollowupInput is schedule_contact_followup's arguments.
type ScheduleContactFollowupInput struct {
	ClientName       string `json:"client_name"`
	ClientEmail      string `json:"client_email"`
	PreferredContact string `json:"preferred_contact"`
	Reason           string `json:"reason"`
	// ConfirmationToken is a sentinel the LLM includes after the customer
	// has explicitly confirmed a second-or-later follow-up this session,
	// satisfying the CONFIRMATION_REQUIRED guardrail.
	ConfirmationToken string `json:"confirmation_token,omitempty"`
}

// ScheduleContactFollowupOutput reports the scheduled job id.
type ScheduleContactFollowupOutput struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

const confirmationSentinel = "CUSTOMER_CONFIRMED"

const (
	preferredContactEmail  = "email"
	preferredContactSMS    = "sms"
	preferredContactEither = "either"
)
