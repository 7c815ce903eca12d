// Package sessiontoken implements the customer-facing session token:
// "payload_b64url.signature_b64url", HMAC-SHA256 signed with a
// process-wide secret. This is deliberately not built on golang-jwt
// (which this module does not depend on) — the payload is a small fixed struct, not a
// general claims bag, so a hand-rolled format avoids dragging in JWT
// header/alg negotiation for something this narrow.
package sessiontoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the token lifetime used when Issue is not given an
// explicit override.
const DefaultTTL = 4 * time.Hour

// Payload is the signed claims set.
type Payload struct {
	TenantID   uuid.UUID  `json:"tid"`
	SessionID  uuid.UUID  `json:"sid"`
	CustomerID *uuid.UUID `json:"cid,omitempty"`
	IssuedAt   int64      `json:"iat"`
	ExpiresAt  int64      `json:"exp"`
}

// Signer issues and verifies session tokens with a single process-wide
// HMAC secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Issue produces a signed token for the given identity, valid for ttl (or
// DefaultTTL if ttl <= 0).
func (s *Signer) Issue(tenantID, sessionID uuid.UUID, customerID *uuid.UUID, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now().UTC()
	payload := Payload{
		TenantID:   tenantID,
		SessionID:  sessionID,
		CustomerID: customerID,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(ttl).Unix(),
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payloadBytes)

	sig := s.sign([]byte(payloadB64))
	sigB64 := base64.RawURLEncoding.EncodeToString(sig)

	return payloadB64 + "." + sigB64, nil
}

// Verify checks the signature and expiry and returns the decoded payload.
func (s *Signer) Verify(token string) (*Payload, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, errors.New("malformed session token")
	}
	payloadB64, sigB64 := parts[0], parts[1]

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, errors.New("malformed session token signature")
	}
	expected := s.sign([]byte(payloadB64))
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return nil, errors.New("invalid session token signature")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, errors.New("malformed session token payload")
	}
	var payload Payload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if time.Now().UTC().Unix() > payload.ExpiresAt {
		return nil, errors.New("session token expired")
	}

	return &payload, nil
}

func (s *Signer) sign(payloadB64 []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payloadB64)
	return mac.Sum(nil)
}
