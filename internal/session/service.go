package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service wraps Repository with the session/customer mutation rules
// the chat router and tool executor call into.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetOrCreate(ctx context.Context, tenantID uuid.UUID, channel Channel, externalID string) (*Session, error) {
	return s.repo.GetOrCreateSession(ctx, tenantID, channel, externalID)
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Session, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// RecordTurn appends a message to the session and persists it.
func (s *Service) RecordTurn(ctx context.Context, sess *Session, role, content string) error {
	sess.AppendMessage(role, content, time.Now().UTC())
	return s.repo.Save(ctx, sess)
}

// MarkEmailVerified sets the session's verification flag, satisfying the
// Email Verification Gate's "session carries a verified-email marker"
// requirement.
func (s *Service) MarkEmailVerified(ctx context.Context, sess *Session) error {
	sess.EmailVerified = true
	return s.repo.Save(ctx, sess)
}

// LinkCustomer attaches a resolved customer identity to the session.
func (s *Service) LinkCustomer(ctx context.Context, sess *Session, phone, email, displayName *string) (*Customer, error) {
	customer, err := s.repo.FindOrCreateCustomer(ctx, sess.TenantID, phone, email, displayName)
	if err != nil {
		return nil, err
	}
	sess.CustomerID = &customer.ID
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *Service) GetCustomer(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error) {
	return s.repo.GetCustomerByID(ctx, tenantID, id)
}

// RecordBooking bumps both the session and customer booking counters.
func (s *Service) RecordBooking(ctx context.Context, sess *Session) error {
	sess.BookingCount++
	if err := s.repo.Save(ctx, sess); err != nil {
		return err
	}
	if sess.CustomerID != nil {
		return s.repo.IncrementBookingCount(ctx, sess.TenantID, *sess.CustomerID)
	}
	return nil
}

// ForgetCustomer soft-deletes a customer's PII while preserving booking
// history, per spec.md's Customer lifecycle rule.
func (s *Service) ForgetCustomer(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.SoftDeleteCustomer(ctx, tenantID, id)
}
