// Package session models the two tenant-scoped identities the chat
// router and tool executor operate against: the per-conversation Session
// and the Customer it may be linked to once identified.
package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Channel is the surface a session is conducted over.
type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelSMS   Channel = "sms"
	ChannelVoice Channel = "voice"
)

// Message is one turn in a session's ordered history.
type Message struct {
	Role      string // "user", "assistant", "tool"
	Content   string
	CreatedAt time.Time
}

// Session is per-conversation state. It is never deleted — message
// history and counters are an audit trail even after the conversation
// ends.
type Session struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	CustomerID      *uuid.UUID
	Channel         Channel
	ExternalID      string // phone number for sms/voice, browser session id for web
	Messages        []Message
	Metadata        map[string]any // FSM stage, pending-verification code, etc.
	EmailVerified   bool
	MessageCount    int
	BookingCount    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastActivityAt  time.Time
}

// AppendMessage records a turn and bumps the message counter.
func (s *Session) AppendMessage(role, content string, at time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, CreatedAt: at})
	s.MessageCount++
	s.LastActivityAt = at
}

// MetadataString reads a string value out of Metadata, returning "" when
// absent or not a string.
func (s *Session) MetadataString(key string) string {
	v, ok := s.Metadata[key]
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// SetMetadata writes a metadata value, initializing the map if needed.
func (s *Session) SetMetadata(key string, value any) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}
	s.Metadata[key] = value
}

// MarshalMetadata serializes Metadata for storage in a jsonb column.
func (s *Session) MarshalMetadata() ([]byte, error) {
	if s.Metadata == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.Metadata)
}

// Customer is a tenant-scoped contact identity, linked to zero or more
// sessions over time.
type Customer struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Phone         *string // normalized E.164
	Email         *string // lowercased
	DisplayName   *string
	Preferences   map[string]any
	BookingCount  int
	LastSeenAt    time.Time
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SoftDeleted reports whether the customer's PII has been cleared.
func (c Customer) SoftDeleted() bool {
	return c.DeletedAt != nil
}

// MatchesIdentity reports whether email or phone (whichever is
// non-empty) matches this customer's stored identity. Used by the
// cancel-verification decider's verified_session and phone_last4 paths.
func (c Customer) MatchesIdentity(email, phone string) bool {
	if email != "" && c.Email != nil && *c.Email == email {
		return true
	}
	if phone != "" && c.Phone != nil && *c.Phone == phone {
		return true
	}
	return false
}
