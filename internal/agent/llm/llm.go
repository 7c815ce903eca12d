// Package llm wires the booking agent's language-model tool-use loop:
// a Config-selected google.golang.org/adk/model.LLM, an ephemeral
// google.golang.org/adk/agent/llmagent per conversation turn (tools
// change as tooldeps.Dependencies accumulate per-turn state), and an
// google.golang.org/adk/runner.Runner that drives the bounded
// tool-call round-trip. Grounded on the teacher's
// internal/leads/agent/responder.go and dispatcher.go, which build the
// same agent+runner+session triad per invocation and drain
// runner.Run's event stream for the assistant's final text.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/genai"

	"bookingagent/platform/ai/moonshot"
)

// Config selects and configures the backing model. Selection happens
// once at startup from configuration, never by runtime patching — the
// same dynamic-dispatch principle spec.md §11 names for calendar
// providers applies here to the model backend.
type Config struct {
	Provider string // "moonshot" (default) or "mock"
	APIKey   string
	Model    string
}

// NewModel is the startup-time dispatch point: it resolves Config into
// a concrete model.LLM. Callers hold onto the result for the process
// lifetime and hand it to every Client they construct.
func NewModel(cfg Config) (model.LLM, error) {
	switch cfg.Provider {
	case "", "moonshot":
		return moonshot.NewModel(moonshot.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		}), nil
	case "mock":
		return NewMockModel(nil), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// Client drives one bounded tool-use conversation turn. It holds the
// shared ADK in-memory session store so that repeated calls against
// the same AppName/UserID/SessionID see prior turns, even though each
// call rebuilds the llmagent+runner pair (our tool set is rebuilt each
// turn from the caller's tooldeps.Dependencies, which the teacher's
// agents never needed to do since theirs ran once per lead).
type Client struct {
	model          model.LLM
	sessionService session.Service

	mu           sync.Mutex
	seenSessions map[string]bool
}

// NewClient builds a Client around a resolved model.LLM.
func NewClient(m model.LLM) *Client {
	return &Client{
		model:          m,
		sessionService: session.InMemoryService(),
	}
}

// Request is one turn's input: the system prompt the Chat Router
// assembled (tenant facts, services, resolved date/time, error-taxonomy
// rules, identity lock), the live tool set for this conversation, and
// the customer's latest message.
type Request struct {
	AppName     string
	UserID      string
	SessionID   string
	Instruction string
	Tools       []tool.Tool
	UserMessage string
}

// Response is the assistant's final text after the tool-use loop
// settles (ADK has already dispatched and appended every intervening
// tool call/result by the time Run's event stream ends).
type Response struct {
	Text string
}

// Respond runs one turn to completion and returns the assistant's
// collected text output.
func (c *Client) Respond(ctx context.Context, req Request) (Response, error) {
	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        req.AppName,
		Model:       c.model,
		Description: "Booking agent conversational assistant.",
		Instruction: req.Instruction,
		Tools:       req.Tools,
	})
	if err != nil {
		return Response{}, fmt.Errorf("llm: build agent: %w", err)
	}

	r, err := runner.New(runner.Config{
		AppName:        req.AppName,
		Agent:          adkAgent,
		SessionService: c.sessionService,
	})
	if err != nil {
		return Response{}, fmt.Errorf("llm: build runner: %w", err)
	}

	if err := c.ensureSession(ctx, req.AppName, req.UserID, req.SessionID); err != nil {
		return Response{}, fmt.Errorf("llm: ensure session: %w", err)
	}

	userMessage := &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText(req.UserMessage)},
	}

	var out strings.Builder
	for event, err := range r.Run(ctx, req.UserID, req.SessionID, userMessage, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return Response{}, fmt.Errorf("llm: run: %w", err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			out.WriteString(part.Text)
		}
	}

	return Response{Text: out.String()}, nil
}

// ensureSession creates the ADK session on first use. A conversation
// spans many turns sharing the same SessionID, unlike the teacher's
// agents (which create-then-delete a session per single invocation),
// so Create runs only the first time an (app, user, session) key is
// seen; later calls return nil without touching the session service.
// The key is marked seen before Create runs, so a failed Create is
// returned once and not retried on later turns.
func (c *Client) ensureSession(ctx context.Context, appName, userID, sessionID string) error {
	seen := c.markSessionSeen(appName, userID, sessionID)
	if seen {
		return nil
	}
	_, err := c.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	return err
}

func (c *Client) markSessionSeen(appName, userID, sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seenSessions == nil {
		c.seenSessions = make(map[string]bool)
	}
	key := appName + "\x00" + userID + "\x00" + sessionID
	if c.seenSessions[key] {
		return true
	}
	c.seenSessions[key] = true
	return false
}
