package secretcrypto

import (
	"strings"
	"testing"
)

func testKey() []byte {
	return []byte("01234567890123456789012345678901")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	encoded, err := Encrypt("calendar-refresh-token", testKey())
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !strings.HasPrefix(encoded, "enc:v1:") {
		t.Fatalf("expected enc:v1 prefix, got %q", encoded)
	}

	plaintext, err := Decrypt(encoded, testKey())
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plaintext != "calendar-refresh-token" {
		t.Fatalf("expected round-tripped plaintext, got %q", plaintext)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	encoded, err := Encrypt("secret", testKey())
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	wrongKey := []byte("98765432109876543210987654321098")
	if _, err := Decrypt(encoded, wrongKey); err == nil {
		t.Fatal("expected decrypt to fail with the wrong key")
	}
}

func TestDecryptRejectsUnknownFormat(t *testing.T) {
	if _, err := Decrypt("plain-secret", testKey()); err == nil {
		t.Fatal("expected decrypt to reject a non enc:v1 payload")
	}
}
