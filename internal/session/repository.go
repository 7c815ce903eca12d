package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookingagent/platform/apperr"
)

// Repository persists Sessions and Customers.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetOrCreateSession implements the "created on first contact per
// (channel, external id)" lifecycle rule in spec.md's Session entity.
func (r *Repository) GetOrCreateSession(ctx context.Context, tenantID uuid.UUID, channel Channel, externalID string) (*Session, error) {
	existing, err := r.findSession(ctx, tenantID, channel, externalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Channel:        channel,
		ExternalID:     externalID,
		Metadata:       map[string]any{},
		CreatedAt:      now,
		UpdatedAt:      now,
		LastActivityAt: now,
	}
	metaBytes, _ := s.MarshalMetadata()
	_, err = r.pool.Exec(ctx,
		`INSERT INTO sessions (id, tenant_id, customer_id, channel, external_id, metadata,
		                        email_verified, message_count, booking_count,
		                        created_at, updated_at, last_activity_at)
		 VALUES ($1, $2, NULL, $3, $4, $5, false, 0, 0, $6, $6, $6)`,
		s.ID, s.TenantID, s.Channel, s.ExternalID, metaBytes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (r *Repository) findSession(ctx context.Context, tenantID uuid.UUID, channel Channel, externalID string) (*Session, error) {
	var s Session
	var metaBytes []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, customer_id, channel, external_id, metadata, email_verified,
		        message_count, booking_count, created_at, updated_at, last_activity_at
		 FROM sessions WHERE tenant_id = $1 AND channel = $2 AND external_id = $3`,
		tenantID, channel, externalID,
	).Scan(&s.ID, &s.TenantID, &s.CustomerID, &s.Channel, &s.ExternalID, &metaBytes, &s.EmailVerified,
		&s.MessageCount, &s.BookingCount, &s.CreatedAt, &s.UpdatedAt, &s.LastActivityAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metaBytes, &s.Metadata); err != nil {
		return nil, fmt.Errorf("decode session metadata: %w", err)
	}
	return &s, nil
}

// GetByID loads a session by id, scoped to tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Session, error) {
	var s Session
	var metaBytes []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, customer_id, channel, external_id, metadata, email_verified,
		        message_count, booking_count, created_at, updated_at, last_activity_at
		 FROM sessions WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&s.ID, &s.TenantID, &s.CustomerID, &s.Channel, &s.ExternalID, &metaBytes, &s.EmailVerified,
		&s.MessageCount, &s.BookingCount, &s.CreatedAt, &s.UpdatedAt, &s.LastActivityAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("session not found")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := json.Unmarshal(metaBytes, &s.Metadata); err != nil {
		return nil, fmt.Errorf("decode session metadata: %w", err)
	}
	return &s, nil
}

// Save persists mutations to an existing session (message append, FSM
// metadata update, verification flag, customer link, counters).
func (r *Repository) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now().UTC()
	metaBytes, err := s.MarshalMetadata()
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE sessions
		 SET customer_id = $2, metadata = $3, email_verified = $4,
		     message_count = $5, booking_count = $6, updated_at = $7, last_activity_at = $8
		 WHERE id = $1`,
		s.ID, s.CustomerID, metaBytes, s.EmailVerified, s.MessageCount, s.BookingCount, s.UpdatedAt, s.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return r.replaceMessages(ctx, s)
}

func (r *Repository) replaceMessages(ctx context.Context, s *Session) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM session_messages WHERE session_id = $1`, s.ID); err != nil {
		return fmt.Errorf("clear session messages: %w", err)
	}
	for _, m := range s.Messages {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO session_messages (session_id, role, content, created_at) VALUES ($1, $2, $3, $4)`,
			s.ID, m.Role, m.Content, m.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert session message: %w", err)
		}
	}
	return nil
}

// FindOrCreateCustomer links a session to a tenant-scoped customer
// identified by phone and/or email, creating one on first contact.
func (r *Repository) FindOrCreateCustomer(ctx context.Context, tenantID uuid.UUID, phone, email, displayName *string) (*Customer, error) {
	if phone == nil && email == nil {
		return nil, apperr.Validation("customer requires at least a phone or email")
	}

	if existing, err := r.findCustomerByContact(ctx, tenantID, phone, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	c := &Customer{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Phone:       phone,
		Email:       email,
		DisplayName: displayName,
		Preferences: map[string]any{},
		LastSeenAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO customers (id, tenant_id, phone, email, display_name, preferences,
		                         booking_count, last_seen_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, '{}'::jsonb, 0, $6, $6, $6)`,
		c.ID, c.TenantID, c.Phone, c.Email, c.DisplayName, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (r *Repository) findCustomerByContact(ctx context.Context, tenantID uuid.UUID, phone, email *string) (*Customer, error) {
	var c Customer
	var prefsBytes []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, phone, email, display_name, preferences, booking_count,
		        last_seen_at, deleted_at, created_at, updated_at
		 FROM customers
		 WHERE tenant_id = $1 AND deleted_at IS NULL
		   AND ((phone IS NOT NULL AND phone = $2) OR (email IS NOT NULL AND email = $3))
		 LIMIT 1`,
		tenantID, phone, email,
	).Scan(&c.ID, &c.TenantID, &c.Phone, &c.Email, &c.DisplayName, &prefsBytes, &c.BookingCount,
		&c.LastSeenAt, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(prefsBytes) > 0 {
		if err := json.Unmarshal(prefsBytes, &c.Preferences); err != nil {
			return nil, fmt.Errorf("decode customer preferences: %w", err)
		}
	}
	return &c, nil
}

// GetCustomerByID loads a customer by id, scoped to tenant.
func (r *Repository) GetCustomerByID(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error) {
	var c Customer
	var prefsBytes []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, phone, email, display_name, preferences, booking_count,
		        last_seen_at, deleted_at, created_at, updated_at
		 FROM customers WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&c.ID, &c.TenantID, &c.Phone, &c.Email, &c.DisplayName, &prefsBytes, &c.BookingCount,
		&c.LastSeenAt, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("customer not found")
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if len(prefsBytes) > 0 {
		if err := json.Unmarshal(prefsBytes, &c.Preferences); err != nil {
			return nil, fmt.Errorf("decode customer preferences: %w", err)
		}
	}
	return &c, nil
}

// SoftDeleteCustomer clears PII and unlinks sessions, preserving booking
// history per spec.md's Customer lifecycle rule.
func (r *Repository) SoftDeleteCustomer(ctx context.Context, tenantID, id uuid.UUID) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`UPDATE customers SET phone = NULL, email = NULL, display_name = NULL, deleted_at = $3
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, now,
	)
	if err != nil {
		return fmt.Errorf("soft delete customer: %w", err)
	}
	_, err = r.pool.Exec(ctx, `UPDATE sessions SET customer_id = NULL WHERE customer_id = $1`, id)
	if err != nil {
		return fmt.Errorf("unlink sessions from deleted customer: %w", err)
	}
	return nil
}

// IncrementBookingCount bumps a customer's lifetime booking counter.
func (r *Repository) IncrementBookingCount(ctx context.Context, tenantID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE customers SET booking_count = booking_count + 1, last_seen_at = now()
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return fmt.Errorf("increment customer booking count: %w", err)
	}
	return nil
}
