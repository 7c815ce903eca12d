package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookingagent/platform/apperr"
)

// expiryWindow bounds how long an unmatched entry sits before the
// expiry sweep reaps it; 30 days comfortably covers a service's typical
// rebooking cadence without entries accumulating forever.
const expiryWindow = 30 * 24 * time.Hour

// Repository persists waitlist entries.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new waiting entry.
func (r *Repository) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	e.Status = StatusWaiting
	e.CreatedAt = time.Now().UTC()
	e.ExpiresAt = e.CreatedAt.Add(expiryWindow)

	days := make([]int16, len(e.PreferredDays))
	for i, d := range e.PreferredDays {
		days[i] = int16(d)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO waitlist_entries
		 (id, tenant_id, session_id, contact_name, email, phone, service_name,
		  preferred_days, window_start_minute, window_end_minute, status, created_at, expires_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		e.ID, e.TenantID, e.SessionID, e.ContactName, e.Email, e.Phone, e.ServiceName,
		days, e.WindowStartMinute, e.WindowEndMinute, e.Status, e.CreatedAt, e.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create waitlist entry: %w", err)
	}
	return nil
}

// ListWaiting returns every entry still in StatusWaiting for a tenant.
func (r *Repository) ListWaiting(ctx context.Context, tenantID uuid.UUID) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, session_id, contact_name, email, phone, service_name,
		        preferred_days, window_start_minute, window_end_minute, status, created_at, expires_at, notified_at
		 FROM waitlist_entries WHERE tenant_id = $1 AND status = $2`,
		tenantID, StatusWaiting,
	)
	if err != nil {
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkNotified flips an entry to notified.
func (r *Repository) MarkNotified(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE waitlist_entries SET status = $1, notified_at = $2 WHERE id = $3 AND status = $4`,
		StatusNotified, now, id, StatusWaiting,
	)
	if err != nil {
		return fmt.Errorf("mark waitlist entry notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("waitlist entry not found or already resolved")
	}
	return nil
}

// GetByID returns a single entry regardless of status.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, session_id, contact_name, email, phone, service_name,
		        preferred_days, window_start_minute, window_end_minute, status, created_at, expires_at, notified_at
		 FROM waitlist_entries WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("waitlist entry not found")
		}
		return nil, fmt.Errorf("get waitlist entry: %w", err)
	}
	return &e, nil
}

// DeleteExpired marks every waiting entry past its expiry as expired and
// returns the affected rows so the caller can emit WaitlistExpired.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) ([]Entry, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE waitlist_entries SET status = $1
		 WHERE status = $2 AND expires_at <= $3
		 RETURNING id, tenant_id, session_id, contact_name, email, phone, service_name,
		           preferred_days, window_start_minute, window_end_minute, status, created_at, expires_at, notified_at`,
		StatusExpired, StatusWaiting, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sweep expired waitlist entries: %w", err)
	}
	defer rows.Close()

	var expired []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, e)
	}
	return expired, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var days []int16
	if err := row.Scan(
		&e.ID, &e.TenantID, &e.SessionID, &e.ContactName, &e.Email, &e.Phone, &e.ServiceName,
		&days, &e.WindowStartMinute, &e.WindowEndMinute, &e.Status, &e.CreatedAt, &e.ExpiresAt, &e.NotifiedAt,
	); err != nil {
		return Entry{}, err
	}
	e.PreferredDays = make([]time.Weekday, len(days))
	for i, d := range days {
		e.PreferredDays[i] = time.Weekday(d)
	}
	return e, nil
}
