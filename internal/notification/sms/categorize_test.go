package sms

import (
	"errors"
	"net/http"
	"testing"
)

func TestCategorizeSendErrorByStatusCode(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   ErrorCategory
	}{
		{http.StatusUnauthorized, "", CategoryAuthFailure},
		{http.StatusForbidden, "", CategoryAuthFailure},
		{http.StatusTooManyRequests, "", CategoryRateLimit},
		{http.StatusBadRequest, "invalid phone number", CategoryInvalidNumber},
		{http.StatusBadRequest, "recipient opted out", CategoryOptOut},
		{http.StatusBadRequest, "unsubscribed", CategoryBlocked},
		{http.StatusInternalServerError, "", CategoryNetwork},
	}

	for _, tc := range cases {
		err := &sendError{statusCode: tc.status, body: tc.body}
		if got := categorizeSendError(err); got != tc.want {
			t.Errorf("status=%d body=%q: got %q, want %q", tc.status, tc.body, got, tc.want)
		}
	}
}

func TestCategorizeSendErrorTransient(t *testing.T) {
	err := errors.New("dial tcp: connection reset by peer")
	if got := categorizeSendError(err); got != CategoryNetwork {
		t.Fatalf("expected network category for transient error, got %q", got)
	}
}

func TestCategorizeSendErrorUnknownFallback(t *testing.T) {
	err := errors.New("something unexpected")
	if got := categorizeSendError(err); got != CategoryUnknown {
		t.Fatalf("expected unknown category fallback, got %q", got)
	}
}

func TestCategorizeProviderStatus(t *testing.T) {
	if got := categorizeProviderStatus("delivered", ""); got != "" {
		t.Errorf("delivered should not be a failure category, got %q", got)
	}
	if got := categorizeProviderStatus("undelivered", ""); got != CategoryUndelivered {
		t.Errorf("expected undelivered category, got %q", got)
	}
	if got := categorizeProviderStatus("failed", "invalid number"); got != CategoryInvalidNumber {
		t.Errorf("expected invalid_number category from error code text, got %q", got)
	}
	if got := categorizeProviderStatus("failed", ""); got != CategoryUnknown {
		t.Errorf("expected unknown category when no error code given, got %q", got)
	}
}
