// Package service implements the Booking Store operations of spec.md
// §4.4: confirmBooking, lookup, reschedule, cancel. It is the
// transactional boundary between a Hold and a durable Appointment.
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookingagent/internal/booking/appointment/repository"
	"bookingagent/internal/booking/availability"
	"bookingagent/internal/events"
	"bookingagent/platform/apperr"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0/O/1/I — safe to read aloud

// CalendarWriter writes confirmed bookings to a tenant's bound external
// calendar. Best-effort: failures are reported via events, never fail
// the booking itself.
type CalendarWriter interface {
	CreateEvent(ctx context.Context, tenantID uuid.UUID, appt *repository.Appointment) (externalID string, err error)
	DeleteEvent(ctx context.Context, tenantID uuid.UUID, externalID string) error
}

// Service implements confirmBooking/lookup/reschedule/cancel.
type Service struct {
	repo     *repository.Repository
	cache    *availability.BusyRangeCache
	eventBus events.Bus
	calendar CalendarWriter
}

func New(repo *repository.Repository, cache *availability.BusyRangeCache, eventBus events.Bus, calendar CalendarWriter) *Service {
	return &Service{repo: repo, cache: cache, eventBus: eventBus, calendar: calendar}
}

// ConfirmRequest carries the tool-executor's confirm_booking arguments
// after guardrail checks (verified email, normalized phone) have run.
type ConfirmRequest struct {
	TenantID    uuid.UUID
	SessionID   uuid.UUID
	HoldID      uuid.UUID
	ClientName  string
	ClientEmail string
	ClientPhone string
	ServiceName string
	StartTime   time.Time
	EndTime     time.Time
	Timezone    string
}

// ConfirmBooking converts a hold into a confirmed appointment.
// Generates a unique reference_code, invalidates the busy-range cache,
// emits BookingCreated, and best-effort writes to the external calendar.
func (s *Service) ConfirmBooking(ctx context.Context, req ConfirmRequest) (*repository.Appointment, error) {
	if strings.TrimSpace(req.ClientEmail) == "" {
		return nil, apperr.Validation("client_email is required")
	}
	if strings.TrimSpace(req.ClientPhone) == "" {
		return nil, apperr.Validation("client_phone is required")
	}

	appt := &repository.Appointment{
		TenantID:    req.TenantID,
		ClientName:  req.ClientName,
		ClientEmail: strings.ToLower(strings.TrimSpace(req.ClientEmail)),
		ClientPhone: req.ClientPhone,
		ServiceName: req.ServiceName,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Timezone:    req.Timezone,
	}

	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		code, err := GenerateReferenceCode()
		if err != nil {
			return nil, fmt.Errorf("generate reference code: %w", err)
		}
		appt.ReferenceCode = code

		lastErr = s.repo.CreateFromHold(ctx, req.HoldID, appt)
		if lastErr == nil {
			break
		}
		if apperr.GetKind(lastErr) != apperr.KindConflict {
			return nil, lastErr
		}
		// Conflict here means a reference_code collision, not a slot
		// conflict (those map to KindSlotConflict) — retry with a fresh code.
	}
	if lastErr != nil {
		return nil, lastErr
	}

	if s.cache != nil {
		s.cache.Invalidate(req.TenantID)
	}
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.BookingCreated{
			BaseEvent:     events.NewBaseEvent(),
			TenantID:      appt.TenantID,
			AppointmentID: appt.ID,
			SessionID:     req.SessionID,
			ReferenceCode: appt.ReferenceCode,
			StartTime:     appt.StartTime,
			EndTime:       appt.EndTime,
			ClientEmail:   appt.ClientEmail,
			ClientPhone:   appt.ClientPhone,
		})
	}

	if s.calendar != nil {
		externalID, err := s.calendar.CreateEvent(ctx, appt.TenantID, appt)
		if err != nil {
			if s.eventBus != nil {
				s.eventBus.Publish(ctx, events.CalendarWriteFailed{
					BaseEvent:     events.NewBaseEvent(),
					TenantID:      appt.TenantID,
					AppointmentID: appt.ID,
					Reason:        err.Error(),
				})
			}
		} else {
			appt.ExternalCalendarID = &externalID
		}
	}

	return appt, nil
}

// Lookup resolves a booking by reference code or email, case
// insensitively, filtered to confirmed. When both reference and email
// are supplied, the reference code is used.
func (s *Service) Lookup(ctx context.Context, tenantID uuid.UUID, reference, email string) (*repository.Appointment, error) {
	if reference != "" {
		return s.repo.GetByReferenceCode(ctx, tenantID, repository.NormalizeReferenceCode(reference))
	}
	if email != "" {
		return s.repo.GetByEmail(ctx, tenantID, email)
	}
	return nil, apperr.Validation("reference_code or email is required")
}

// GetByID loads an appointment regardless of status, for internal
// callers (cancel-verification decider, reschedule) that already hold an
// appointment id.
func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*repository.Appointment, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// Cancel transitions a confirmed appointment to cancelled, invalidates
// the cache, and emits BookingCancelled.
func (s *Service) Cancel(ctx context.Context, tenantID, id uuid.UUID) error {
	appt, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Cancel(ctx, tenantID, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(tenantID)
	}
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.BookingCancelled{
			BaseEvent:     events.NewBaseEvent(),
			TenantID:      tenantID,
			AppointmentID: id,
			ReferenceCode: appt.ReferenceCode,
		})
		s.eventBus.Publish(ctx, events.SlotOpened{
			BaseEvent:   events.NewBaseEvent(),
			TenantID:    tenantID,
			ServiceName: appt.ServiceName,
			StartTime:   appt.StartTime,
			EndTime:     appt.EndTime,
		})
	}
	return nil
}

// RescheduleRequest carries reschedule_booking's arguments.
type RescheduleRequest struct {
	TenantID        uuid.UUID
	AppointmentID   uuid.UUID
	NewHoldID       uuid.UUID
	NewStartTime    time.Time
	NewEndTime      time.Time
}

// Reschedule atomically cancels the old appointment and confirms the
// new hold in its place.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*repository.Appointment, error) {
	old, err := s.repo.GetByID(ctx, req.TenantID, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if old.Status != repository.StatusConfirmed {
		return nil, apperr.BookingInvalid("appointment is not confirmed")
	}

	var lastErr error
	var newAppt *repository.Appointment
	for attempt := 0; attempt < 5; attempt++ {
		code, genErr := GenerateReferenceCode()
		if genErr != nil {
			return nil, fmt.Errorf("generate reference code: %w", genErr)
		}
		newAppt = &repository.Appointment{
			ReferenceCode: code,
			ClientName:    old.ClientName,
			ClientEmail:   old.ClientEmail,
			ClientPhone:   old.ClientPhone,
			ServiceName:   old.ServiceName,
			StartTime:     req.NewStartTime,
			EndTime:       req.NewEndTime,
			Timezone:      old.Timezone,
		}
		lastErr = s.repo.RescheduleFromHold(ctx, req.TenantID, req.AppointmentID, req.NewHoldID, newAppt)
		if lastErr == nil {
			break
		}
		if apperr.GetKind(lastErr) != apperr.KindConflict {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	if s.cache != nil {
		s.cache.Invalidate(req.TenantID)
	}
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.BookingRescheduled{
			BaseEvent:     events.NewBaseEvent(),
			TenantID:      req.TenantID,
			AppointmentID: newAppt.ID,
			ReferenceCode: newAppt.ReferenceCode,
			PreviousStart: old.StartTime,
			NewStart:      newAppt.StartTime,
			NewEnd:        newAppt.EndTime,
		})
		s.eventBus.Publish(ctx, events.SlotOpened{
			BaseEvent:   events.NewBaseEvent(),
			TenantID:    req.TenantID,
			ServiceName: old.ServiceName,
			StartTime:   old.StartTime,
			EndTime:     old.EndTime,
		})
	}

	if s.calendar != nil && old.ExternalCalendarID != nil {
		_ = s.calendar.DeleteEvent(ctx, req.TenantID, *old.ExternalCalendarID)
	}

	return newAppt, nil
}

// List returns confirmed appointments in [from, to) for the staff
// visibility endpoint.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]repository.Appointment, error) {
	return s.repo.ListByWindow(ctx, tenantID, from, to)
}

// GenerateReferenceCode produces an "APT-XXXXXX" reference code from a
// no-lookalike alphabet, matching spec.md §6's "safe to read aloud"
// requirement (used by both web confirm and the voice NLU's spoken-code
// readback).
func GenerateReferenceCode() (string, error) {
	const suffixLen = 6
	b := make([]byte, suffixLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("APT-")
	for _, v := range b {
		sb.WriteByte(referenceAlphabet[int(v)%len(referenceAlphabet)])
	}
	return sb.String(), nil
}
