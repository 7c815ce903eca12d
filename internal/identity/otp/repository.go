// Package otp implements the Email Verification Gate of spec.md §4.7
// step 3: a 6-digit code sent to a customer-supplied email, rate-limited
// per destination, stored by hash rather than in the clear. Grounded on
// internal/auth/token's GenerateRandomToken/HashSHA256 primitives (the
// same ones the teacher's org-invite flow used for its invite tokens)
// and internal/email's existing SendVerificationCode contract.
package otp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound reports no pending verification session for the caller's
// tenant/session pair.
var ErrNotFound = errors.New("no pending verification session")

// Record is one outstanding (or most recently issued) OTP challenge for
// a session.
type Record struct {
	TenantID    uuid.UUID
	SessionID   uuid.UUID
	Destination string
	CodeHash    string
	ExpiresAt   time.Time
	Attempts    int
}

// Repository persists verification_sessions rows, one per tenant+session
// (a new SendCode overwrites any prior pending challenge for that pair).
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert replaces any pending challenge for tenantID/sessionID with a
// fresh one, resetting the attempt counter.
func (r *Repository) Upsert(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO verification_sessions (tenant_id, session_id, destination, code_hash, expires_at, attempts)
		 VALUES ($1, $2, $3, $4, $5, 0)
		 ON CONFLICT (tenant_id, session_id) DO UPDATE
		 SET destination = EXCLUDED.destination,
		     code_hash = EXCLUDED.code_hash,
		     expires_at = EXCLUDED.expires_at,
		     attempts = 0`,
		rec.TenantID, rec.SessionID, rec.Destination, rec.CodeHash, rec.ExpiresAt,
	)
	return err
}

// Get loads the pending challenge for tenantID/sessionID.
func (r *Repository) Get(ctx context.Context, tenantID, sessionID uuid.UUID) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx,
		`SELECT tenant_id, session_id, destination, code_hash, expires_at, attempts
		 FROM verification_sessions WHERE tenant_id = $1 AND session_id = $2`,
		tenantID, sessionID,
	).Scan(&rec.TenantID, &rec.SessionID, &rec.Destination, &rec.CodeHash, &rec.ExpiresAt, &rec.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// IncrementAttempts bumps the failed-attempt counter after a mismatched
// code, so VerifyCode can lock a session out past a fixed ceiling.
func (r *Repository) IncrementAttempts(ctx context.Context, tenantID, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE verification_sessions SET attempts = attempts + 1
		 WHERE tenant_id = $1 AND session_id = $2`,
		tenantID, sessionID,
	)
	return err
}

// Delete removes the challenge once it's consumed (success or expiry).
func (r *Repository) Delete(ctx context.Context, tenantID, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM verification_sessions WHERE tenant_id = $1 AND session_id = $2`,
		tenantID, sessionID,
	)
	return err
}
