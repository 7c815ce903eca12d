package tools

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"bookingagent/platform/apperr"
	"bookingagent/platform/logger"
)

// Code is one of the SCREAMING_SNAKE error prefixes of spec.md §4.6. A
// tool result's Error string always starts with one of these, followed
// by ": " and a human-readable message.
type Code string

const (
	CodeBookingError                  Code = "BOOKING_ERROR"
	CodeSlotConflict                  Code = "SLOT_CONFLICT"
	CodeCalendarUnavailable           Code = "CALENDAR_UNAVAILABLE"
	CodePhoneRequired                 Code = "PHONE_REQUIRED"
	CodeInvalidPhone                  Code = "INVALID_PHONE"
	CodeEmailVerificationRequired     Code = "EMAIL_VERIFICATION_REQUIRED"
	CodeEmailMismatch                 Code = "EMAIL_MISMATCH"
	CodeRiskReverify                  Code = "RISK_REVERIFY"
	CodeRiskCooldown                  Code = "RISK_COOLDOWN"
	CodeConfirmationRequired          Code = "CONFIRMATION_REQUIRED"
	CodeFarDateConfirmationRequired   Code = "FAR_DATE_CONFIRMATION_REQUIRED"
	CodeCancellationNeedsIdentity     Code = "CANCELLATION_NEEDS_IDENTITY"
	CodeCancellationRequiresVerify    Code = "CANCELLATION_REQUIRES_VERIFICATION"
	CodeCancellationFailed            Code = "CANCELLATION_FAILED"
	CodeServiceRequired               Code = "SERVICE_REQUIRED"
	CodeDateRangeTooWide              Code = "DATE_RANGE_TOO_WIDE"
	CodeInternalError                 Code = "INTERNAL_ERROR"
)

// ToolError is a tool handler's typed failure: a stable Code plus a
// message safe to surface to the LLM/customer.
type ToolError struct {
	Code    Code
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Fail builds a ToolError.
func Fail(code Code, message string) *ToolError {
	return &ToolError{Code: code, Message: message}
}

// classifyDomainError maps a known apperr.Kind to its tool error Code.
// Unknown errors are the caller's job to wrap in a correlation id.
func classifyDomainError(err error) (Code, bool) {
	switch apperr.GetKind(err) {
	case apperr.KindSlotConflict:
		return CodeSlotConflict, true
	case apperr.KindCalendarRead:
		return CodeCalendarUnavailable, true
	case apperr.KindBookingInvalid:
		return CodeBookingError, true
	case apperr.KindRateLimited:
		return CodeRiskCooldown, true
	case apperr.KindNotFound, apperr.KindConflict, apperr.KindValidation, apperr.KindBadRequest:
		return CodeBookingError, true
	default:
		return "", false
	}
}

// CorrelationID returns a fresh 12-hex-character id for an
// unclassified error, per spec.md §4.6.
func CorrelationID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b) // crypto/rand.Read never errors on a fixed-size buffer
	return hex.EncodeToString(b)
}

// MaskEmailForLog returns a SHA-256-prefixed hash of email, never the
// email itself, for structured log lines and audit payloads.
func MaskEmailForLog(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])[:12]
}

// MaskEmailForDisplay renders "ab***@domain" for user-facing error text
// (confirm_booking's EMAIL_MISMATCH message).
func MaskEmailForDisplay(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at+1:]
	visible := local
	if len(visible) > 2 {
		visible = visible[:2]
	}
	return visible + "***@" + domain
}

// classify turns any error returned from a tool handler's service calls
// into a stable {code, message} pair, logging a structured line with a
// correlation id for anything not already a *ToolError or a recognized
// apperr.Kind. The id returned here is the same id embedded in the
// INTERNAL_ERROR message, so support can find the log line a user
// reports.
func classify(log *logger.Logger, toolName string, tenantID, sessionID fmt.Stringer, email string, err error) *ToolError {
	if err == nil {
		return nil
	}
	var toolErr *ToolError
	if e, ok := err.(*ToolError); ok {
		toolErr = e
	} else if code, ok := classifyDomainError(err); ok {
		toolErr = &ToolError{Code: code, Message: err.Error()}
	}

	id := CorrelationID()
	if toolErr != nil {
		if log != nil {
			log.Warn("tool call failed",
				"ref", id, "code", string(toolErr.Code), "tool", toolName,
				"tenant", tenantID.String(), "session", sessionID.String(),
				"email_hash", MaskEmailForLog(email),
			)
		}
		return toolErr
	}

	if log != nil {
		log.Error("tool call failed with unclassified error",
			"ref", id, "code", string(CodeInternalError), "tool", toolName,
			"tenant", tenantID.String(), "session", sessionID.String(),
			"email_hash", MaskEmailForLog(email), "error", err.Error(),
		)
	}
	return &ToolError{Code: CodeInternalError, Message: fmt.Sprintf("something went wrong, reference ID: %s", id)}
}
