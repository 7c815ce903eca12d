package session

import (
	"testing"
	"time"
)

func TestAppendMessageBumpsCounterAndActivity(t *testing.T) {
	s := &Session{}
	at := time.Date(2026, 2, 17, 15, 0, 0, 0, time.UTC)
	s.AppendMessage("user", "hello", at)

	if s.MessageCount != 1 {
		t.Fatalf("expected message count 1, got %d", s.MessageCount)
	}
	if len(s.Messages) != 1 || s.Messages[0].Content != "hello" {
		t.Fatal("expected the message to be recorded")
	}
	if !s.LastActivityAt.Equal(at) {
		t.Fatal("expected last activity to be updated")
	}
}

func TestMetadataStringRoundTrip(t *testing.T) {
	s := &Session{}
	if got := s.MetadataString("stage"); got != "" {
		t.Fatalf("expected empty string for absent key, got %q", got)
	}
	s.SetMetadata("stage", "collecting_intent")
	if got := s.MetadataString("stage"); got != "collecting_intent" {
		t.Fatalf("expected stored stage, got %q", got)
	}
}

func TestMetadataStringIgnoresNonStringValue(t *testing.T) {
	s := &Session{}
	s.SetMetadata("count", 3)
	if got := s.MetadataString("count"); got != "" {
		t.Fatalf("expected empty string for non-string metadata value, got %q", got)
	}
}

func TestMarshalMetadataEmptyIsEmptyObject(t *testing.T) {
	s := &Session{}
	b, err := s.MarshalMetadata()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "{}" {
		t.Fatalf("expected {}, got %q", b)
	}
}

func TestCustomerSoftDeleted(t *testing.T) {
	c := Customer{}
	if c.SoftDeleted() {
		t.Fatal("expected a fresh customer to not be soft-deleted")
	}
	now := time.Now().UTC()
	c.DeletedAt = &now
	if !c.SoftDeleted() {
		t.Fatal("expected DeletedAt to mark the customer soft-deleted")
	}
}

func TestCustomerMatchesIdentity(t *testing.T) {
	email := "person@example.com"
	phone := "+15551234567"
	c := Customer{Email: &email, Phone: &phone}

	if !c.MatchesIdentity("person@example.com", "") {
		t.Fatal("expected email match")
	}
	if !c.MatchesIdentity("", "+15551234567") {
		t.Fatal("expected phone match")
	}
	if c.MatchesIdentity("other@example.com", "") {
		t.Fatal("expected mismatched email to not match")
	}
}
