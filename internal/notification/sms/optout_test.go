package sms

import "testing"

func TestIsStopReply(t *testing.T) {
	cases := map[string]bool{
		"STOP":        true,
		"  stop  ":    true,
		"Cancel":      true,
		"unsubscribe": true,
		"Yes please":  false,
		"":            false,
	}
	for body, want := range cases {
		if got := IsStopReply(body); got != want {
			t.Errorf("IsStopReply(%q) = %v, want %v", body, got, want)
		}
	}
}
