package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookingagent/platform/logger"
)

func TestClientConfigured(t *testing.T) {
	unconfigured := NewClient(Config{}, logger.New("test"))
	if unconfigured.Configured() {
		t.Fatal("expected Configured() false with no base url or account sid")
	}

	configured := NewClient(Config{BaseURL: "https://carrier.test", AccountSID: "AC123"}, logger.New("test"))
	if !configured.Configured() {
		t.Fatal("expected Configured() true with base url and account sid set")
	}
}

func TestClientSendSimulatesWhenUnconfigured(t *testing.T) {
	client := NewClient(Config{}, logger.New("test"))
	sid, simulated, err := client.Send(context.Background(), "+15551234567", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !simulated {
		t.Fatal("expected simulated send when carrier is unconfigured")
	}
	if !strings.HasPrefix(sid, "SIM_") {
		t.Fatalf("expected synthetic SID prefixed SIM_, got %q", sid)
	}
}

func TestClientSendReal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("To") != "+15551234567" {
			t.Errorf("unexpected To: %q", r.PostForm.Get("To"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"sid":"SM123"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, AccountSID: "AC1", AuthToken: "tok"}, logger.New("test"))
	sid, simulated, err := client.Send(context.Background(), "+15551234567", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if simulated {
		t.Fatal("expected a non-simulated send against a configured carrier")
	}
	if sid != "SM123" {
		t.Fatalf("expected sid SM123, got %q", sid)
	}
}

func TestClientSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid phone number"))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, AccountSID: "AC1", AuthToken: "tok"}, logger.New("test"))
	_, _, err := client.Send(context.Background(), "+1555", "hello")
	if err == nil {
		t.Fatal("expected an error for a 400 response")
	}
	if categorizeSendError(err) != CategoryInvalidNumber {
		t.Fatalf("expected invalid_number category, got %q", categorizeSendError(err))
	}
}

func TestIsTransientSendError(t *testing.T) {
	if !isTransientSendError(errTimeout()) {
		t.Fatal("expected a timeout error to be treated as transient")
	}
}

func errTimeout() error {
	return &timeoutErr{}
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "request canceled (Client.Timeout exceeded)" }
