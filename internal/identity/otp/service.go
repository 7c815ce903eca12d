package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"bookingagent/internal/auth/token"
	"bookingagent/internal/email"
)

const (
	codeTTL        = 10 * time.Minute
	maxAttempts    = 5
	codeDigits     = 6
	perDestination = rate.Limit(1.0 / 60.0) // one send per destination per minute
	burstPerDest   = 1
)

// Service issues and verifies the 6-digit email OTP. It satisfies
// internal/agent/router.OTPGate.
type Service struct {
	repo   *Repository
	mailer email.Sender

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(repo *Repository, mailer email.Sender) *Service {
	return &Service{repo: repo, mailer: mailer, limiters: make(map[string]*rate.Limiter)}
}

// SendCode generates a fresh code, stores its hash, and emails it to
// destination. A destination sending too frequently is silently
// rate-limited (no error surfaced to the customer) rather than
// abandoning the attempt with a failure — the code already on file
// (if any) stays valid until it expires.
func (s *Service) SendCode(ctx context.Context, tenantID, sessionID uuid.UUID, destination string) error {
	if !s.allow(destination) {
		return nil
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate otp code: %w", err)
	}

	rec := Record{
		TenantID:    tenantID,
		SessionID:   sessionID,
		Destination: destination,
		CodeHash:    token.HashSHA256(code),
		ExpiresAt:   time.Now().UTC().Add(codeTTL),
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("store otp challenge: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendVerificationCode(ctx, destination, code); err != nil {
			return fmt.Errorf("send otp email: %w", err)
		}
	}
	return nil
}

// VerifyCode checks code against the stored challenge. A mismatch past
// maxAttempts invalidates the challenge outright, forcing a fresh
// SendCode rather than letting the customer keep guessing indefinitely.
func (s *Service) VerifyCode(ctx context.Context, tenantID, sessionID uuid.UUID, code string) (string, bool, error) {
	rec, err := s.repo.Get(ctx, tenantID, sessionID)
	if err != nil {
		if err == ErrNotFound {
			return "", false, nil
		}
		return "", false, err
	}

	if time.Now().UTC().After(rec.ExpiresAt) {
		_ = s.repo.Delete(ctx, tenantID, sessionID)
		return "", false, nil
	}

	if rec.Attempts >= maxAttempts {
		_ = s.repo.Delete(ctx, tenantID, sessionID)
		return "", false, nil
	}

	if token.HashSHA256(code) != rec.CodeHash {
		_ = s.repo.IncrementAttempts(ctx, tenantID, sessionID)
		return "", false, nil
	}

	_ = s.repo.Delete(ctx, tenantID, sessionID)
	return rec.Destination, true, nil
}

func (s *Service) allow(destination string) bool {
	s.mu.Lock()
	limiter, ok := s.limiters[destination]
	if !ok {
		limiter = rate.NewLimiter(perDestination, burstPerDest)
		s.limiters[destination] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
