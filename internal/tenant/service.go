package tenant

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"bookingagent/internal/auth/secretcrypto"
	"bookingagent/platform/apperr"
)

// Service wraps Repository with the validation and defaulting rules a
// tenant-creation or -update flow needs.
type Service struct {
	repo         *Repository
	secretEncKey []byte
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// WithSecretEncryptionKey configures the AES-256-GCM key used to seal
// external-calendar credentials before they reach the repository. A
// 32-byte key is required; a shorter/empty key disables calendar-binding
// writes rather than silently storing plaintext secrets.
func (s *Service) WithSecretEncryptionKey(key []byte) *Service {
	s.secretEncKey = key
	return s
}

// SetCalendarBinding encrypts rawSecret (an OAuth refresh token or
// equivalent provider credential) and stores the binding. Callers never
// persist a raw secret directly — encryption happens here, not at the
// HTTP boundary, so there is exactly one place the key is used.
func (s *Service) SetCalendarBinding(ctx context.Context, tenantID uuid.UUID, provider, calendarID, rawSecret string) error {
	if len(s.secretEncKey) != 32 {
		return apperr.Validation("calendar binding requires a configured SECRET_ENCRYPTION_KEY")
	}
	encrypted, err := secretcrypto.Encrypt(rawSecret, s.secretEncKey)
	if err != nil {
		return err
	}
	return s.repo.SetCalendarBinding(ctx, tenantID, CalendarBinding{
		Provider:        provider,
		CalendarID:      calendarID,
		EncryptedSecret: encrypted,
	})
}

// DecryptCalendarSecret reverses SetCalendarBinding's encryption, for a
// concrete CalendarProvider to use when authenticating to the external
// calendar API.
func (s *Service) DecryptCalendarSecret(binding CalendarBinding) (string, error) {
	if len(s.secretEncKey) != 32 {
		return "", apperr.Validation("calendar binding requires a configured SECRET_ENCRYPTION_KEY")
	}
	return secretcrypto.Decrypt(binding.EncryptedSecret, s.secretEncKey)
}

// Create validates and persists a new tenant. Slug is derived from Name
// when left blank.
func (s *Service) Create(ctx context.Context, t *Tenant) (*Tenant, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, apperr.Validation("tenant name is required")
	}
	if t.SlotDurationMinutes < 5 || t.SlotDurationMinutes > 480 {
		return nil, apperr.Validation("slot duration must be between 5 and 480 minutes")
	}
	if _, err := time.LoadLocation(t.Timezone); err != nil {
		return nil, apperr.Validation("unknown IANA timezone: " + t.Timezone)
	}
	if t.CatalogMode == "" {
		t.CatalogMode = Hybrid
	}
	if t.Slug == "" {
		t.Slug = Slugify(t.Name)
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// Slugify lowercases name, replaces runs of non-alphanumeric characters
// with a single hyphen, and trims leading/trailing hyphens.
func Slugify(name string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
