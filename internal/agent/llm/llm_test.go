package llm

import "testing"

func TestNewModelDispatchesByProvider(t *testing.T) {
	m, err := NewModel(Config{Provider: "mock"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name() != "mock" {
		t.Fatalf("expected mock model, got %q", m.Name())
	}
}

func TestNewModelDefaultsToMoonshot(t *testing.T) {
	m, err := NewModel(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil {
		t.Fatal("expected a non-nil default model")
	}
}

func TestNewModelRejectsUnknownProvider(t *testing.T) {
	if _, err := NewModel(Config{Provider: "not-a-real-provider"}); err == nil {
		t.Fatal("expected an error for an unrecognized provider")
	}
}

func TestClientMarksSessionSeenOnce(t *testing.T) {
	c := NewClient(NewMockModel(nil))
	if c.markSessionSeen("app", "user", "session-1") {
		t.Fatal("expected first sighting to report unseen")
	}
	if !c.markSessionSeen("app", "user", "session-1") {
		t.Fatal("expected second sighting of the same key to report seen")
	}
	if c.markSessionSeen("app", "user", "session-2") {
		t.Fatal("expected a different session id to report unseen")
	}
}
