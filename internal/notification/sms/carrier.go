// Package sms implements the Outbound SMS Pipeline of spec.md §4.10: a
// carrier HTTP client, the booking-confirmation sender the Tool-Executor
// calls synchronously, a worker that drains the outbox, and the
// carrier's delivery-status webhook.
//
// The carrier client is grounded on internal/whatsapp/client.go's
// SendMessage — same backoff-and-retry-once-on-transient-error shape —
// generalized from GoWA's JSON device API to the HTTP
// POST/form-encoded/basic-auth carrier contract spec.md §6 names.
package sms

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookingagent/platform/logger"
)

// Carrier sends a single SMS and reports the provider's message SID.
type Carrier interface {
	Send(ctx context.Context, to, body string) (providerSID string, simulated bool, err error)
}

// Client is the real HTTP carrier client: POST form-encoded, basic auth,
// per spec.md §4.10's "Send via carrier API (HTTP POST, form-encoded,
// basic auth). Timeout 15s."
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	fromNumber string
	http       *http.Client
	log        *logger.Logger
}

// Config carries the carrier credentials. An empty BaseURL or
// AccountSID means no carrier is configured — Client.Send then always
// returns a simulated send, matching spec.md §4.10's "when carrier
// credentials are absent" simulator mode.
type Config struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	FromNumber string
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// Configured reports whether carrier credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.accountSID != ""
}

func (c *Client) Send(ctx context.Context, to, body string) (string, bool, error) {
	if !c.Configured() {
		return simulatedSID(), true, nil
	}

	sid, err := c.doSend(ctx, to, body)
	if err != nil && isTransientSendError(err) {
		c.log.Warn("sms carrier send failed, retrying once", "error", err.Error())
		time.Sleep(2 * time.Second)
		sid, err = c.doSend(ctx, to, body)
	}
	if err != nil {
		return "", false, err
	}
	return sid, false, nil
}

func (c *Client) doSend(ctx context.Context, to, body string) (string, error) {
	form := url.Values{
		"To":   {to},
		"From": {c.fromNumber},
		"Body": {body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Messages", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build carrier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("carrier request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	sid, err := parseCarrierResponse(resp)
	if err != nil {
		return "", err
	}
	return sid, nil
}

func isTransientSendError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof") ||
		strings.Contains(msg, "timeout")
}

// simulatedSID mints a synthetic provider SID for simulator mode, per
// spec.md §4.10: "returns success with a synthetic SIM_* SID".
func simulatedSID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b) // crypto/rand.Read never errors on a fixed-size buffer
	return "SIM_" + strings.ToUpper(hex.EncodeToString(b))
}
