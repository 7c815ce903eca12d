package otp

import (
	"testing"
)

func TestGenerateCodeIsSixDigitsZeroPadded(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		if len(code) != codeDigits {
			t.Fatalf("expected %d-digit code, got %q", codeDigits, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("expected all-numeric code, got %q", code)
			}
		}
	}
}

func TestServiceAllowRateLimitsPerDestination(t *testing.T) {
	s := New(nil, nil)
	dest := "someone@example.com"

	if !s.allow(dest) {
		t.Fatal("expected first send to be allowed")
	}
	if s.allow(dest) {
		t.Fatal("expected immediate second send to the same destination to be rate-limited")
	}

	other := "someone-else@example.com"
	if !s.allow(other) {
		t.Fatal("expected a different destination to have its own independent limiter")
	}
}
