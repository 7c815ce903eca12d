// Package postprocess implements the Response Post-Processor of spec.md
// §4.8: a fixed-order chain of small, independently testable pure
// string-transform functions, each a no-op when its pattern doesn't
// match, grounded on the teacher's normalizeUrgencyLevel/normalizeLeadQuality
// family of normalization helpers (internal/leads/agent/tools.go) — same
// texture, applied to guardrail text instead of classification labels.
package postprocess

import (
	"regexp"
	"strconv"
	"strings"

	"bookingagent/internal/agent/router"
	"bookingagent/internal/session"
)

// Config carries the deployment-specific facts guardrails 5 and 7 need.
// spec.md names "forbidden predecessor brand names" and "known
// social/spam domains" without giving concrete strings — those are
// tenant/deployment configuration, not constants of the domain, so they
// are resolved here rather than hardcoded.
type Config struct {
	// LegacyBrandNames are replaced case-insensitively with CanonicalBrand.
	LegacyBrandNames []string
	CanonicalBrand   string
	// BlockedLinkDomains strips bare URLs pointing at these hosts.
	BlockedLinkDomains []string
}

// Processor runs the guardrail chain. It implements router.PostProcessor.
type Processor struct {
	cfg        Config
	brandRes   []*regexp.Regexp
	blockedRes []*regexp.Regexp
}

// New builds a Processor, precompiling the configured brand and domain
// patterns once so Process stays allocation-light per call.
func New(cfg Config) *Processor {
	p := &Processor{cfg: cfg}
	for _, name := range cfg.LegacyBrandNames {
		if name == "" {
			continue
		}
		p.brandRes = append(p.brandRes, wordBoundary(name))
	}
	for _, domain := range cfg.BlockedLinkDomains {
		if domain == "" {
			continue
		}
		p.blockedRes = append(p.blockedRes, regexp.MustCompile(`(?i)https?://[^\s]*`+regexp.QuoteMeta(domain)+`[^\s]*`))
	}
	return p
}

func wordBoundary(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`)
}

// Process runs the full fixed-order guardrail chain plus channel
// formatting, per spec.md §4.8.
func (p *Processor) Process(input router.PostProcessInput) string {
	text := input.Text
	text = guardrailPrematureConfirmation(text, input.ConfirmBookingSucceeded)
	text = guardrailPhoneCallClaims(text)
	text = p.guardrailLegacyBrand(text)
	text = guardrailCalendarDataURI(text)
	text = p.guardrailExternalURLs(text)
	text = guardrailBroadcastSignoffs(text)
	if input.Channel == session.ChannelSMS {
		text = formatForSMS(text)
	}
	return text
}

var confirmationClaimRes = []*regexp.Regexp{
	wordBoundary("your appointment is confirmed"),
	wordBoundary("appointment confirmed"),
	wordBoundary("successfully booked"),
	wordBoundary("you're all set"),
	wordBoundary("you are all set"),
	wordBoundary("booking confirmed"),
	wordBoundary("booked successfully"),
	wordBoundary("all booked"),
}

const safeConfirmationSubstitute = "I'm finishing up that booking now"

// guardrailPrematureConfirmation (Guardrail 3) replaces confirmation-
// claiming phrases with a safe equivalent unless confirm_booking actually
// succeeded this turn.
func guardrailPrematureConfirmation(text string, confirmed bool) string {
	if confirmed {
		return text
	}
	for _, re := range confirmationClaimRes {
		text = re.ReplaceAllString(text, safeConfirmationSubstitute)
	}
	return text
}

var phoneCallClaimRes = []*regexp.Regexp{
	wordBoundary("I'll call you"),
	wordBoundary("we'll call you"),
	wordBoundary("someone will call you"),
	wordBoundary("I'll give you a call"),
	wordBoundary("let me transfer you"),
	wordBoundary("I'll transfer you"),
	wordBoundary("connecting you now"),
	wordBoundary("I'll connect you"),
	wordBoundary("please hold while I transfer"),
}

// guardrailPhoneCallClaims (Guardrail 4) strips phrases implying the
// system can place or transfer a phone call — it has no phone-out
// capability.
func guardrailPhoneCallClaims(text string) string {
	for _, re := range phoneCallClaimRes {
		text = re.ReplaceAllString(text, "")
	}
	return collapseWhitespace(text)
}

// guardrailLegacyBrand (Guardrail 5) replaces forbidden predecessor
// brand names with the canonical brand.
func (p *Processor) guardrailLegacyBrand(text string) string {
	if p.cfg.CanonicalBrand == "" {
		return text
	}
	for _, re := range p.brandRes {
		text = re.ReplaceAllString(text, p.cfg.CanonicalBrand)
	}
	return text
}

var calendarDataURISentenceRe = regexp.MustCompile(`(?i)[^.!?\n]*data:text/calendar[^.!?\n]*[.!?]?`)

// guardrailCalendarDataURI (Guardrail 6) strips raw data:text/calendar
// links along with the sentence that introduced them — the UI renders
// its own add-to-calendar button from structured data, so surfacing the
// raw URI in chat text is always wrong.
func guardrailCalendarDataURI(text string) string {
	text = calendarDataURISentenceRe.ReplaceAllString(text, "")
	return collapseWhitespace(text)
}

var markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
var orphanVisitUsRe = regexp.MustCompile(`(?i)[^.!?\n]*\bvisit us at\s*[.!?]`)

// guardrailExternalURLs (Guardrail 7) replaces markdown links with their
// link text only, strips bare URLs to configured blocked domains, and
// cleans up "visit us at" sentences left orphaned by the stripping.
func (p *Processor) guardrailExternalURLs(text string) string {
	text = markdownLinkRe.ReplaceAllString(text, "$1")
	for _, re := range p.blockedRes {
		text = re.ReplaceAllString(text, "")
	}
	text = orphanVisitUsRe.ReplaceAllString(text, "")
	return collapseWhitespace(text)
}

var broadcastSignoffRes = []*regexp.Regexp{
	wordBoundary("don't forget to like and subscribe"),
	wordBoundary("like and subscribe"),
	wordBoundary("thanks for watching"),
	wordBoundary("thanks for listening"),
	wordBoundary("see you next time"),
	wordBoundary("until next time"),
	wordBoundary("smash that subscribe button"),
}

// guardrailBroadcastSignoffs (Guardrail 8) strips YouTube/podcast-style
// closers that have no place in a booking conversation.
func guardrailBroadcastSignoffs(text string) string {
	for _, re := range broadcastSignoffRes {
		text = re.ReplaceAllString(text, "")
	}
	return collapseWhitespace(text)
}

var (
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	headerRe     = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	bulletLineRe = regexp.MustCompile(`(?m)^\s*-\s+`)
	blankRunsRe  = regexp.MustCompile(`\n{3,}`)
)

// formatForSMS strips markdown emphasis and headers, renumbers bulleted
// lists as "1) / 2) / ...", and collapses blank-line runs — SMS has no
// markdown renderer on the other end.
func formatForSMS(text string) string {
	text = boldRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := boldRe.FindStringSubmatch(m)
		if sub[1] != "" {
			return sub[1]
		}
		return sub[2]
	})
	text = headerRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	n := 0
	for i, line := range lines {
		if bulletLineRe.MatchString(line) {
			n++
			lines[i] = strconv.Itoa(n) + ") " + bulletLineRe.ReplaceAllString(line, "")
		} else if strings.TrimSpace(line) == "" {
			n = 0
		}
	}
	text = strings.Join(lines, "\n")
	text = blankRunsRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var whitespaceRunRe = regexp.MustCompile(`[ \t]{2,}`)
var blankLineRunRe = regexp.MustCompile(`\n{3,}`)

// collapseWhitespace tidies up the gaps a removed phrase or sentence
// leaves behind without touching paragraph structure.
func collapseWhitespace(text string) string {
	text = whitespaceRunRe.ReplaceAllString(text, " ")
	text = blankLineRunRe.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
