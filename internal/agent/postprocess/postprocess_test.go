package postprocess

import (
	"strings"
	"testing"

	"bookingagent/internal/agent/router"
	"bookingagent/internal/session"
)

func TestGuardrailPrematureConfirmationReplacesWhenNotConfirmed(t *testing.T) {
	got := guardrailPrematureConfirmation("Great news, your appointment is confirmed for Tuesday.", false)
	if strings.Contains(strings.ToLower(got), "your appointment is confirmed") {
		t.Fatalf("expected the confirmation claim to be replaced, got %q", got)
	}
}

func TestGuardrailPrematureConfirmationLeavesTextWhenConfirmed(t *testing.T) {
	text := "Great news, your appointment is confirmed for Tuesday."
	got := guardrailPrematureConfirmation(text, true)
	if got != text {
		t.Fatalf("expected text unchanged when the booking actually succeeded, got %q", got)
	}
}

func TestGuardrailPhoneCallClaimsStripsCallPromises(t *testing.T) {
	got := guardrailPhoneCallClaims("No worries, I'll call you in five minutes to confirm.")
	if strings.Contains(got, "I'll call you") {
		t.Fatalf("expected the call claim to be stripped, got %q", got)
	}
}

func TestGuardrailLegacyBrandReplacesConfiguredNames(t *testing.T) {
	p := New(Config{LegacyBrandNames: []string{"OldCo Scheduling"}, CanonicalBrand: "BookWell"})
	got := p.guardrailLegacyBrand("Welcome to OldCo Scheduling, how can we help?")
	if !strings.Contains(got, "BookWell") || strings.Contains(got, "OldCo") {
		t.Fatalf("expected legacy brand swapped for canonical brand, got %q", got)
	}
}

func TestGuardrailLegacyBrandNoopWithoutConfig(t *testing.T) {
	p := New(Config{})
	text := "Welcome to OldCo Scheduling."
	if got := p.guardrailLegacyBrand(text); got != text {
		t.Fatalf("expected no-op without a canonical brand configured, got %q", got)
	}
}

func TestGuardrailCalendarDataURIStripsSentence(t *testing.T) {
	got := guardrailCalendarDataURI("Here's your invite: data:text/calendar;base64,AAAA. See you then!")
	if strings.Contains(got, "data:text/calendar") {
		t.Fatalf("expected the calendar data URI sentence removed, got %q", got)
	}
	if !strings.Contains(got, "See you then!") {
		t.Fatalf("expected the unrelated sentence to survive, got %q", got)
	}
}

func TestGuardrailExternalURLsKeepsLinkTextOnly(t *testing.T) {
	p := New(Config{})
	got := p.guardrailExternalURLs("Details are on our [booking page](https://example.com/book).")
	if strings.Contains(got, "https://") {
		t.Fatalf("expected the raw URL stripped, link text kept, got %q", got)
	}
	if !strings.Contains(got, "booking page") {
		t.Fatalf("expected the link text preserved, got %q", got)
	}
}

func TestGuardrailExternalURLsStripsBlockedDomain(t *testing.T) {
	p := New(Config{BlockedLinkDomains: []string{"spammylinks.example"}})
	got := p.guardrailExternalURLs("Follow us at https://spammylinks.example/promo for deals.")
	if strings.Contains(got, "spammylinks.example") {
		t.Fatalf("expected the blocked-domain URL stripped, got %q", got)
	}
}

func TestGuardrailBroadcastSignoffsStripsCloser(t *testing.T) {
	got := guardrailBroadcastSignoffs("Your slot is held. Thanks for watching, see you next time!")
	if strings.Contains(strings.ToLower(got), "thanks for watching") || strings.Contains(strings.ToLower(got), "see you next time") {
		t.Fatalf("expected broadcast sign-offs stripped, got %q", got)
	}
	if !strings.Contains(got, "Your slot is held.") {
		t.Fatalf("expected the substantive sentence preserved, got %q", got)
	}
}

func TestFormatForSMSStripsMarkdownAndRenumbersBullets(t *testing.T) {
	input := "# Your options\n\n**Tuesday 10am**\n- Haircut\n- Beard trim\n\nReply to pick one."
	got := formatForSMS(input)
	if strings.Contains(got, "#") || strings.Contains(got, "**") {
		t.Fatalf("expected markdown stripped, got %q", got)
	}
	if !strings.Contains(got, "1) Haircut") || !strings.Contains(got, "2) Beard trim") {
		t.Fatalf("expected bullets renumbered, got %q", got)
	}
}

func TestFormatForSMSCollapsesBlankLineRuns(t *testing.T) {
	got := formatForSMS("First line.\n\n\n\nSecond line.")
	if strings.Contains(got, "\n\n\n") {
		t.Fatalf("expected blank-line runs collapsed, got %q", got)
	}
}

func TestProcessAppliesChainAndChannelFormatting(t *testing.T) {
	p := New(Config{})
	out := p.Process(router.PostProcessInput{
		Text:                    "# Great\n\nYour appointment is confirmed! - Tuesday 10am\n- Bring ID",
		Channel:                 session.ChannelSMS,
		ConfirmBookingSucceeded: false,
	})
	if strings.Contains(out, "#") {
		t.Fatalf("expected markdown header stripped for SMS, got %q", out)
	}
	if strings.Contains(strings.ToLower(out), "your appointment is confirmed") {
		t.Fatalf("expected premature confirmation replaced, got %q", out)
	}
}

func TestProcessLeavesWebChannelUnformatted(t *testing.T) {
	p := New(Config{})
	out := p.Process(router.PostProcessInput{
		Text:    "**Bold** text stays as markdown on web.",
		Channel: session.ChannelWeb,
	})
	if !strings.Contains(out, "**Bold**") {
		t.Fatalf("expected markdown preserved on the web channel, got %q", out)
	}
}
