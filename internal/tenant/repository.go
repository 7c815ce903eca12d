package tenant

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

// Repository persists Tenants and their business-hours overrides. It
// implements availability.TenantCalendar directly so the Availability
// Engine can be constructed with it without an adapter layer.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new tenant with a unique slug. A unique-constraint
// violation on slug surfaces as apperr.Conflict.
func (r *Repository) Create(ctx context.Context, t *Tenant) error {
	t.ID = uuid.New()
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, slug, timezone, slot_duration_minutes, catalog_mode,
		                       quiet_hours_start_minute, quiet_hours_end_minute, demo_mode,
		                       created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Name, t.Slug, t.Timezone, t.SlotDurationMinutes, t.CatalogMode,
		t.QuietHours.StartMinute, t.QuietHours.EndMinute, t.DemoMode, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("tenant slug already in use")
		}
		return fmt.Errorf("create tenant: %w", err)
	}

	if err := r.replaceWeeklyHours(ctx, t.ID, t.WeeklyHours); err != nil {
		return err
	}
	return r.replaceCatalog(ctx, t.ID, t.Catalog)
}

// GetByID loads a tenant plus its weekly hours and catalog.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	var t Tenant
	var quietStart, quietEnd int
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, timezone, slot_duration_minutes, catalog_mode,
		        quiet_hours_start_minute, quiet_hours_end_minute, demo_mode, created_at, updated_at
		 FROM tenants WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Timezone, &t.SlotDurationMinutes, &t.CatalogMode,
		&quietStart, &quietEnd, &t.DemoMode, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("tenant not found")
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	t.QuietHours = QuietHours{StartMinute: quietStart, EndMinute: quietEnd}

	weekly, err := r.WeeklyHours(ctx, id)
	if err != nil {
		return nil, err
	}
	t.WeeklyHours = weekly

	catalog, err := r.loadCatalog(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Catalog = catalog

	binding, err := r.loadCalendarBinding(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Calendar = binding

	return &t, nil
}

// GetBySlug loads a tenant by its URL-safe slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT id FROM tenants WHERE slug = $1`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("tenant not found")
		}
		return nil, fmt.Errorf("lookup tenant by slug: %w", err)
	}
	return r.GetByID(ctx, id)
}

// WeeklyHours implements availability.TenantCalendar.
func (r *Repository) WeeklyHours(ctx context.Context, tenantID uuid.UUID) ([]availability.WeeklyHours, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT weekday, open_minute, close_minute FROM tenant_weekly_hours WHERE tenant_id = $1`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("load weekly hours: %w", err)
	}
	defer rows.Close()

	var hours []availability.WeeklyHours
	for rows.Next() {
		var weekday int
		var h availability.WeeklyHours
		if err := rows.Scan(&weekday, &h.OpenMinute, &h.CloseMinute); err != nil {
			return nil, fmt.Errorf("scan weekly hours: %w", err)
		}
		h.Weekday = time.Weekday(weekday)
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// DateOverrides implements availability.TenantCalendar.
func (r *Repository) DateOverrides(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]availability.DateOverride, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT date, closed, open_minute, close_minute FROM tenant_date_overrides
		 WHERE tenant_id = $1 AND date >= $2 AND date <= $3`,
		tenantID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("load date overrides: %w", err)
	}
	defer rows.Close()

	var overrides []availability.DateOverride
	for rows.Next() {
		var o availability.DateOverride
		if err := rows.Scan(&o.Date, &o.Closed, &o.OpenMinute, &o.CloseMinute); err != nil {
			return nil, fmt.Errorf("scan date override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// SetCalendarBinding stores an (already-encrypted) external-calendar
// credential for tenantID, replacing any existing binding.
func (r *Repository) SetCalendarBinding(ctx context.Context, tenantID uuid.UUID, binding CalendarBinding) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tenant_calendar_bindings (tenant_id, provider, calendar_id, encrypted_secret)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id) DO UPDATE
		   SET provider = EXCLUDED.provider, calendar_id = EXCLUDED.calendar_id, encrypted_secret = EXCLUDED.encrypted_secret`,
		tenantID, binding.Provider, binding.CalendarID, binding.EncryptedSecret,
	)
	if err != nil {
		return fmt.Errorf("set calendar binding: %w", err)
	}
	return nil
}

func (r *Repository) loadCalendarBinding(ctx context.Context, tenantID uuid.UUID) (*CalendarBinding, error) {
	var b CalendarBinding
	err := r.pool.QueryRow(ctx,
		`SELECT provider, calendar_id, encrypted_secret FROM tenant_calendar_bindings WHERE tenant_id = $1`,
		tenantID,
	).Scan(&b.Provider, &b.CalendarID, &b.EncryptedSecret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load calendar binding: %w", err)
	}
	return &b, nil
}

func (r *Repository) loadCatalog(ctx context.Context, tenantID uuid.UUID) ([]CatalogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name, duration_minutes, price_cents, description
		 FROM tenant_services WHERE tenant_id = $1 ORDER BY name`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	var services []CatalogEntry
	for rows.Next() {
		var s CatalogEntry
		if err := rows.Scan(&s.Name, &s.DurationMinutes, &s.PriceCents, &s.Description); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *Repository) replaceWeeklyHours(ctx context.Context, tenantID uuid.UUID, hours []availability.WeeklyHours) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM tenant_weekly_hours WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("clear weekly hours: %w", err)
	}
	for _, h := range hours {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tenant_weekly_hours (tenant_id, weekday, open_minute, close_minute) VALUES ($1, $2, $3, $4)`,
			tenantID, int(h.Weekday), h.OpenMinute, h.CloseMinute,
		)
		if err != nil {
			return fmt.Errorf("insert weekly hours: %w", err)
		}
	}
	return nil
}

func (r *Repository) replaceCatalog(ctx context.Context, tenantID uuid.UUID, catalog []CatalogEntry) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM tenant_services WHERE tenant_id = $1`, tenantID); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	for _, s := range catalog {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO tenant_services (tenant_id, name, duration_minutes, price_cents, description)
			 VALUES ($1, $2, $3, $4, $5)`,
			tenantID, s.Name, s.DurationMinutes, s.PriceCents, s.Description,
		)
		if err != nil {
			return fmt.Errorf("insert catalog entry: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
