package sms

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OptOutStore tracks phone numbers that replied STOP to a tenant's
// messages. A pre-send guard consults it before every carrier call, per
// spec.md §4.10: "opt-out list -> abort, no retry".
type OptOutStore interface {
	IsOptedOut(ctx context.Context, tenantID string, phone string) (bool, error)
	Record(ctx context.Context, tenantID string, phone string) error
}

// OptOutRepository is the Postgres-backed OptOutStore, grounded on
// internal/notification/outbox's pool-and-plain-SQL shape.
type OptOutRepository struct {
	pool *pgxpool.Pool
}

func NewOptOutRepository(pool *pgxpool.Pool) *OptOutRepository {
	return &OptOutRepository{pool: pool}
}

func (r *OptOutRepository) IsOptedOut(ctx context.Context, tenantID, phone string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM RAC_sms_opt_outs WHERE tenant_id = $1 AND phone = $2)`,
		tenantID, phone,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *OptOutRepository) Record(ctx context.Context, tenantID, phone string) error {
	if r == nil || r.pool == nil {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO RAC_sms_opt_outs (tenant_id, phone) VALUES ($1, $2)
		 ON CONFLICT (tenant_id, phone) DO NOTHING`,
		tenantID, phone,
	)
	return err
}

// IsStopReply reports whether body is a carrier-recognized opt-out
// keyword, the same vocabulary spec.md §4.10's confirmation body offers
// customers ("Reply CHANGE / CANCEL / STOP").
func IsStopReply(body string) bool {
	switch strings.ToUpper(strings.TrimSpace(body)) {
	case "STOP", "STOPALL", "UNSUBSCRIBE", "CANCEL", "END", "QUIT":
		return true
	default:
		return false
	}
}
