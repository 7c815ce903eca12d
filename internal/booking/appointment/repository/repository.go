// Package repository persists confirmed appointments: the Booking Store
// of spec.md §4.4. The overlap invariant (no two confirmed appointments
// for the same tenant overlap) is enforced the same way
// internal/booking/hold's does — an EXCLUDE USING gist constraint over
// (tenant_id, tstzrange(start_time, end_time)) scoped to status =
// 'confirmed'.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookingagent/internal/booking/appointment/transport"
	"bookingagent/internal/booking/availability"
	"bookingagent/platform/apperr"
)

// Status is an appointment's lifecycle state.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// Appointment is a confirmed booking: the durable record a reference
// code resolves to.
type Appointment struct {
	ID                 uuid.UUID
	TenantID           uuid.UUID
	ReferenceCode      string
	ClientName         string
	ClientEmail        string
	ClientPhone        string
	ServiceName         string
	StartTime          time.Time
	EndTime            time.Time
	Timezone           string
	Status             Status
	ExternalCalendarID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const appointmentNotFoundMsg = "appointment not found"

// Repository persists Appointments.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateFromHold atomically deletes the given hold and inserts the
// confirmed appointment it becomes, matching confirmBooking's
// transactional contract in spec.md §4.4. An exclusion-constraint
// violation (lost the race to a concurrent confirm) surfaces as
// apperr.SlotConflict.
func (r *Repository) CreateFromHold(ctx context.Context, holdID uuid.UUID, appt *Appointment) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin confirm transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM booking_holds WHERE id = $1 AND tenant_id = $2`, holdID, appt.TenantID)
	if err != nil {
		return fmt.Errorf("delete hold on confirm: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("hold not found or already consumed")
	}

	appt.ID = uuid.New()
	appt.Status = StatusConfirmed
	now := time.Now().UTC()
	appt.CreatedAt, appt.UpdatedAt = now, now

	_, err = tx.Exec(ctx,
		`INSERT INTO appointments (id, tenant_id, reference_code, client_name, client_email, client_phone,
		                            service_name, start_time, end_time, timezone, status, external_calendar_id,
		                            created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		appt.ID, appt.TenantID, appt.ReferenceCode, appt.ClientName, appt.ClientEmail, appt.ClientPhone,
		appt.ServiceName, appt.StartTime, appt.EndTime, appt.Timezone, appt.Status, appt.ExternalCalendarID,
		appt.CreatedAt, appt.UpdatedAt,
	)
	if err != nil {
		if isExclusionViolation(err) {
			return apperr.SlotConflict("requested slot overlaps an existing appointment")
		}
		if isUniqueViolation(err) {
			return apperr.Conflict("reference code already in use")
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit confirm transaction: %w", err)
	}
	return nil
}

// GetByReferenceCode looks up a confirmed appointment case-insensitively
// by reference code, scoped to tenant.
func (r *Repository) GetByReferenceCode(ctx context.Context, tenantID uuid.UUID, referenceCode string) (*Appointment, error) {
	return r.queryOne(ctx,
		`SELECT id, tenant_id, reference_code, client_name, client_email, client_phone, service_name,
		        start_time, end_time, timezone, status, external_calendar_id, created_at, updated_at
		 FROM appointments
		 WHERE tenant_id = $1 AND lower(reference_code) = lower($2) AND status = 'confirmed'`,
		tenantID, referenceCode,
	)
}

// GetByEmail looks up the most recent confirmed appointment for a
// case-insensitive email match, scoped to tenant.
func (r *Repository) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Appointment, error) {
	return r.queryOne(ctx,
		`SELECT id, tenant_id, reference_code, client_name, client_email, client_phone, service_name,
		        start_time, end_time, timezone, status, external_calendar_id, created_at, updated_at
		 FROM appointments
		 WHERE tenant_id = $1 AND lower(client_email) = lower($2) AND status = 'confirmed'
		 ORDER BY start_time DESC LIMIT 1`,
		tenantID, email,
	)
}

// GetByID loads an appointment regardless of status, scoped to tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Appointment, error) {
	return r.queryOne(ctx,
		`SELECT id, tenant_id, reference_code, client_name, client_email, client_phone, service_name,
		        start_time, end_time, timezone, status, external_calendar_id, created_at, updated_at
		 FROM appointments WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
}

func (r *Repository) queryOne(ctx context.Context, query string, args ...interface{}) (*Appointment, error) {
	var a Appointment
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.TenantID, &a.ReferenceCode, &a.ClientName, &a.ClientEmail, &a.ClientPhone, &a.ServiceName,
		&a.StartTime, &a.EndTime, &a.Timezone, &a.Status, &a.ExternalCalendarID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(appointmentNotFoundMsg)
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &a, nil
}

// Cancel transitions a confirmed appointment to cancelled.
func (r *Repository) Cancel(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE appointments SET status = 'cancelled', updated_at = now()
		 WHERE tenant_id = $1 AND id = $2 AND status = 'confirmed'`,
		tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(appointmentNotFoundMsg)
	}
	return nil
}

// RescheduleFromHold atomically cancels oldID and creates a new
// confirmed appointment from newHoldID in its place, per spec.md §4.4's
// "atomic swap" contract for reschedule.
func (r *Repository) RescheduleFromHold(ctx context.Context, tenantID, oldID, newHoldID uuid.UUID, newAppt *Appointment) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin reschedule transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE appointments SET status = 'cancelled', updated_at = now()
		 WHERE tenant_id = $1 AND id = $2 AND status = 'confirmed'`,
		tenantID, oldID,
	)
	if err != nil {
		return fmt.Errorf("cancel old appointment on reschedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(appointmentNotFoundMsg)
	}

	holdTag, err := tx.Exec(ctx, `DELETE FROM booking_holds WHERE id = $1 AND tenant_id = $2`, newHoldID, tenantID)
	if err != nil {
		return fmt.Errorf("delete hold on reschedule: %w", err)
	}
	if holdTag.RowsAffected() == 0 {
		return apperr.NotFound("hold not found or already consumed")
	}

	newAppt.ID = uuid.New()
	newAppt.TenantID = tenantID
	newAppt.Status = StatusConfirmed
	now := time.Now().UTC()
	newAppt.CreatedAt, newAppt.UpdatedAt = now, now

	_, err = tx.Exec(ctx,
		`INSERT INTO appointments (id, tenant_id, reference_code, client_name, client_email, client_phone,
		                            service_name, start_time, end_time, timezone, status, external_calendar_id,
		                            created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		newAppt.ID, newAppt.TenantID, newAppt.ReferenceCode, newAppt.ClientName, newAppt.ClientEmail, newAppt.ClientPhone,
		newAppt.ServiceName, newAppt.StartTime, newAppt.EndTime, newAppt.Timezone, newAppt.Status, newAppt.ExternalCalendarID,
		newAppt.CreatedAt, newAppt.UpdatedAt,
	)
	if err != nil {
		if isExclusionViolation(err) {
			return apperr.SlotConflict("requested slot overlaps an existing appointment")
		}
		if isUniqueViolation(err) {
			return apperr.Conflict("reference code already in use")
		}
		return fmt.Errorf("insert rescheduled appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reschedule transaction: %w", err)
	}
	return nil
}

// ListByWindow returns confirmed appointments for tenantID starting in
// [from, to), ordered earliest first. Used by the staff-facing
// visibility endpoint, not by any agent tool.
func (r *Repository) ListByWindow(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, reference_code, client_name, client_email, client_phone, service_name,
		        start_time, end_time, timezone, status, external_calendar_id, created_at, updated_at
		 FROM appointments
		 WHERE tenant_id = $1 AND status = 'confirmed' AND start_time >= $2 AND start_time < $3
		 ORDER BY start_time ASC`,
		tenantID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var items []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.TenantID, &a.ReferenceCode, &a.ClientName, &a.ClientEmail, &a.ClientPhone,
			&a.ServiceName, &a.StartTime, &a.EndTime, &a.Timezone, &a.Status, &a.ExternalCalendarID,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// HasConfirmedOverlap implements hold.AppointmentConflicts: reports
// whether any confirmed appointment for tenantID overlaps [start, end).
func (r *Repository) HasConfirmedOverlap(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM appointments
		   WHERE tenant_id = $1 AND status = 'confirmed' AND start_time < $3 AND end_time > $2
		 )`,
		tenantID, start, end,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check confirmed overlap: %w", err)
	}
	return exists, nil
}

// BusyRanges implements availability.ConflictSource: confirmed
// appointments intersecting [from, to) count as conflicts for slot
// generation.
func (r *Repository) BusyRanges(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]availability.BusyRange, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT start_time, end_time FROM appointments
		 WHERE tenant_id = $1 AND status = 'confirmed' AND start_time < $3 AND end_time > $2`,
		tenantID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("load busy appointments: %w", err)
	}
	defer rows.Close()

	var ranges []availability.BusyRange
	for rows.Next() {
		var br availability.BusyRange
		if err := rows.Scan(&br.Start, &br.End); err != nil {
			return nil, fmt.Errorf("scan busy appointment: %w", err)
		}
		ranges = append(ranges, br)
	}
	return ranges, rows.Err()
}

func isExclusionViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

// ToResponse projects an Appointment into its staff-facing DTO.
func (a *Appointment) ToResponse() transport.AppointmentResponse {
	return transport.AppointmentResponse{
		ID:                 a.ID.String(),
		ReferenceCode:      a.ReferenceCode,
		ClientName:         a.ClientName,
		ClientEmail:        a.ClientEmail,
		ClientPhone:        a.ClientPhone,
		ServiceName:        a.ServiceName,
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		Timezone:           a.Timezone,
		Status:             string(a.Status),
		ExternalCalendarID: a.ExternalCalendarID,
	}
}

// NormalizeReferenceCode upper-cases and trims a user-supplied reference
// code before lookup, tolerating stray whitespace from voice/SMS input.
func NormalizeReferenceCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
