package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"bookingagent/internal/auth/secretcrypto"
	"bookingagent/platform/apperr"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Bright Smiles Dental":  "bright-smiles-dental",
		"  Acme & Co.  ":        "acme-co",
		"already-a-slug":        "already-a-slug",
		"Café René":             "café-rené",
		"---leading trailing--": "leading-trailing",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestQuietHoursContainsOvernight(t *testing.T) {
	q := QuietHours{StartMinute: 21 * 60, EndMinute: 8 * 60}
	if !q.Contains(22 * 60) {
		t.Error("expected 22:00 to be within an overnight quiet window")
	}
	if !q.Contains(1 * 60) {
		t.Error("expected 01:00 to be within an overnight quiet window")
	}
	if q.Contains(12 * 60) {
		t.Error("expected noon to be outside an overnight quiet window")
	}
}

func TestQuietHoursContainsSameDay(t *testing.T) {
	q := QuietHours{StartMinute: 12 * 60, EndMinute: 13 * 60}
	if !q.Contains(12*60 + 30) {
		t.Error("expected 12:30 to be within a same-day quiet window")
	}
	if q.Contains(14 * 60) {
		t.Error("expected 14:00 to be outside a same-day quiet window")
	}
}

func TestQuietHoursZeroWindowNeverQuiet(t *testing.T) {
	var q QuietHours
	if q.Contains(0) || q.Contains(12*60) {
		t.Error("expected a zero-length quiet window to never be active")
	}
}

func TestMatchServiceCatalogOnlyRejectsUnknown(t *testing.T) {
	tn := Tenant{
		CatalogMode: CatalogOnly,
		Catalog:     []CatalogEntry{{Name: "Teeth Whitening", DurationMinutes: 60}},
	}
	if _, ok := tn.MatchService("Root Canal"); ok {
		t.Error("expected catalog_only tenant to reject an unmatched description")
	}
	if _, ok := tn.MatchService("teeth whitening"); !ok {
		t.Error("expected a case-insensitive catalog match to succeed")
	}
}

func TestMatchServiceFreeTextAcceptsAnything(t *testing.T) {
	tn := Tenant{CatalogMode: FreeText}
	if _, ok := tn.MatchService("Anything at all"); !ok {
		t.Error("expected free_text tenant to accept an unmatched description")
	}
}

func TestSetCalendarBindingRejectsUnconfiguredKey(t *testing.T) {
	s := NewService(nil)
	err := s.SetCalendarBinding(context.Background(), uuid.New(), "google", "cal-1", "refresh-token")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected KindValidation, got %v", apperr.GetKind(err))
	}
}

func TestDecryptCalendarSecretRejectsUnconfiguredKey(t *testing.T) {
	s := NewService(nil)
	_, err := s.DecryptCalendarSecret(CalendarBinding{EncryptedSecret: "enc:v1:aa:bb:cc"})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected KindValidation, got %v", apperr.GetKind(err))
	}
}

func TestDecryptCalendarSecretRoundTripsSetCalendarBindingsEncryption(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	s := NewService(nil).WithSecretEncryptionKey(key)

	encrypted, err := secretcrypto.Encrypt("refresh-token", key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got, err := s.DecryptCalendarSecret(CalendarBinding{EncryptedSecret: encrypted})
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != "refresh-token" {
		t.Fatalf("got %q, want %q", got, "refresh-token")
	}
}
