// Package hold implements the Hold Store: short-lived slot reservations
// that block a window for a session while the booking conversation
// completes, and that expire on their own if it never does.
package hold

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookingagent/internal/booking/availability"
	"bookingagent/platform/apperr"
)

// Hold is one reserved-but-unconfirmed appointment window.
type Hold struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	SessionID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

const ttl = 5 * time.Minute

// Repository persists Holds. No two holds for the same tenant may overlap:
// an unscoped EXCLUDE USING gist constraint over (tenant_id,
// tstzrange(start_time, end_time)) enforces this at the database layer,
// so an expired hold still blocks its window until the expiry sweep
// deletes it. Create below only translates the constraint violation into
// apperr.SlotConflict. Overlap with a confirmed appointment is checked by
// Service.HoldSlot before insert, not by the database.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a hold with expires_at = now + 5 minutes. A unique
// violation on the exclusion constraint surfaces as apperr.SlotConflict,
// matching holdSlot's "fail with SLOT_CONFLICT" contract.
func (r *Repository) Create(ctx context.Context, tenantID, sessionID uuid.UUID, start, end time.Time) (*Hold, error) {
	h := &Hold{
		ID:        uuid.New(),
		TenantID:  tenantID,
		SessionID: sessionID,
		StartTime: start,
		EndTime:   end,
		ExpiresAt: time.Now().UTC().Add(ttl),
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO booking_holds (id, tenant_id, session_id, start_time, end_time, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.ID, h.TenantID, h.SessionID, h.StartTime, h.EndTime, h.ExpiresAt, h.CreatedAt,
	)
	if err != nil {
		if isExclusionViolation(err) {
			return nil, apperr.SlotConflict("requested slot overlaps an existing hold or appointment")
		}
		return nil, fmt.Errorf("create hold: %w", err)
	}
	return h, nil
}

// GetByID returns an unexpired hold owned by tenantID.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Hold, error) {
	var h Hold
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, session_id, start_time, end_time, expires_at, created_at
		 FROM booking_holds
		 WHERE id = $1 AND tenant_id = $2 AND expires_at > now()`,
		id, tenantID,
	).Scan(&h.ID, &h.TenantID, &h.SessionID, &h.StartTime, &h.EndTime, &h.ExpiresAt, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("hold not found or expired")
		}
		return nil, fmt.Errorf("get hold: %w", err)
	}
	return &h, nil
}

// Delete removes a hold. Used by confirm (transactional conversion into
// an appointment) and explicit cancel.
func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM booking_holds WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete hold: %w", err)
	}
	return nil
}

// DeleteExpired removes every hold whose expires_at has passed and
// returns the deleted rows so the caller can emit HoldExpired events.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) ([]Hold, error) {
	rows, err := r.pool.Query(ctx,
		`DELETE FROM booking_holds WHERE expires_at <= $1
		 RETURNING id, tenant_id, session_id, start_time, end_time, expires_at, created_at`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("sweep expired holds: %w", err)
	}
	defer rows.Close()

	var expired []Hold
	for rows.Next() {
		var h Hold
		if err := rows.Scan(&h.ID, &h.TenantID, &h.SessionID, &h.StartTime, &h.EndTime, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expired hold: %w", err)
		}
		expired = append(expired, h)
	}
	return expired, rows.Err()
}

// BusyRanges implements availability.ConflictSource: active holds
// intersecting [from, to) count as conflicts for slot generation.
func (r *Repository) BusyRanges(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]availability.BusyRange, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT start_time, end_time FROM booking_holds
		 WHERE tenant_id = $1 AND expires_at > now() AND start_time < $3 AND end_time > $2`,
		tenantID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("load busy holds: %w", err)
	}
	defer rows.Close()

	var ranges []availability.BusyRange
	for rows.Next() {
		var br availability.BusyRange
		if err := rows.Scan(&br.Start, &br.End); err != nil {
			return nil, fmt.Errorf("scan busy hold: %w", err)
		}
		ranges = append(ranges, br)
	}
	return ranges, rows.Err()
}

func isExclusionViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23P01" // exclusion_violation
	}
	return false
}
