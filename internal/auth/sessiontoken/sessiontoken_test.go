package sessiontoken

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	s := NewSigner([]byte("process-wide-secret"))
	tenantID := uuid.New()
	sessionID := uuid.New()

	token, err := s.Issue(tenantID, sessionID, nil, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(token, ".") != 1 {
		t.Fatalf("expected exactly one '.' separator, got %q", token)
	}

	payload, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if payload.TenantID != tenantID || payload.SessionID != sessionID {
		t.Fatal("verified payload does not match issued identity")
	}
	if payload.CustomerID != nil {
		t.Fatal("expected no customer id on an anonymous session")
	}
}

func TestIssueDefaultsTTL(t *testing.T) {
	s := NewSigner([]byte("secret"))
	token, err := s.Issue(uuid.New(), uuid.New(), nil, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	payload, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	gotTTL := time.Unix(payload.ExpiresAt, 0).Sub(time.Unix(payload.IssuedAt, 0))
	if gotTTL != DefaultTTL {
		t.Fatalf("expected default TTL %v, got %v", DefaultTTL, gotTTL)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	s := NewSigner([]byte("secret"))
	token, err := s.Issue(uuid.New(), uuid.New(), nil, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.SplitN(token, ".", 2)
	tampered := parts[0] + ".AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	if _, err := s.Verify(tampered); err == nil {
		t.Fatal("expected verify to reject a tampered signature")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewSigner([]byte("secret-a"))
	verifier := NewSigner([]byte("secret-b"))

	token, err := issuer.Issue(uuid.New(), uuid.New(), nil, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected verify to reject a token signed with a different secret")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	s := NewSigner([]byte("secret"))
	token, err := s.Issue(uuid.New(), uuid.New(), nil, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := s.Verify(token); err == nil {
		t.Fatal("expected verify to reject an expired token")
	}
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	s := NewSigner([]byte("secret"))
	if _, err := s.Verify("not-a-valid-token"); err == nil {
		t.Fatal("expected verify to reject a token with no separator")
	}
}

func TestIssueCarriesCustomerID(t *testing.T) {
	s := NewSigner([]byte("secret"))
	customerID := uuid.New()
	token, err := s.Issue(uuid.New(), uuid.New(), &customerID, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	payload, err := s.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if payload.CustomerID == nil || *payload.CustomerID != customerID {
		t.Fatal("expected verified payload to carry the customer id")
	}
}
