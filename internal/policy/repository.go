package policy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads policy rules from the policy_rules table.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForAction returns every rule (tenant-scoped and global) that
// could apply to action, for the Engine to rank by specificity.
func (r *Repository) ListForAction(ctx context.Context, action string) ([]Rule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, action, effect, condition, reason
		 FROM policy_rules WHERE action = $1`,
		action,
	)
	if err != nil {
		return nil, fmt.Errorf("list policy rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		var conditionBytes []byte
		if err := rows.Scan(&rule.ID, &rule.TenantID, &rule.Action, &rule.Effect, &conditionBytes, &rule.Reason); err != nil {
			return nil, fmt.Errorf("scan policy rule: %w", err)
		}
		if err := json.Unmarshal(conditionBytes, &rule.Condition); err != nil {
			return nil, fmt.Errorf("decode policy rule condition: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// Upsert inserts or replaces a named rule for an action/tenant pair.
func (r *Repository) Upsert(ctx context.Context, rule *Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	conditionBytes, err := json.Marshal(rule.Condition)
	if err != nil {
		return fmt.Errorf("marshal policy rule condition: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO policy_rules (id, tenant_id, action, effect, condition, reason)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   tenant_id = EXCLUDED.tenant_id, action = EXCLUDED.action,
		   effect = EXCLUDED.effect, condition = EXCLUDED.condition, reason = EXCLUDED.reason`,
		rule.ID, rule.TenantID, rule.Action, rule.Effect, conditionBytes, rule.Reason,
	)
	if err != nil {
		return fmt.Errorf("upsert policy rule: %w", err)
	}
	return nil
}
