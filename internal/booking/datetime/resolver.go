// Package datetime implements the Datetime Resolver: a pure function that
// maps a natural-language utterance to an absolute UTC instant, given the
// current time and a timezone. It never reads wall-clock time itself —
// "now" is always supplied by the caller via clock.Clock so results stay
// deterministic and testable.
package datetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"bookingagent/internal/booking/clock"
)

// Result is the resolver's output for a single utterance.
type Result struct {
	StartUTC   time.Time
	EndUTC     time.Time
	Confidence string // "high", "medium", or "low"
	Reasons    []string
}

// BusinessHours supplies the tenant's opening time for the "this morning"
// period keyword. Nil means "use the 09:00 default".
type BusinessHours struct {
	OpenHour   int
	OpenMinute int
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var (
	reHHMM     = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	reBareAMPM = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	reAtBare   = regexp.MustCompile(`\bat\s+(\d{1,2})\b`)
	reWeekday  = regexp.MustCompile(`\b(next|this|on)?\s*(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
)

// Resolve maps utterance to an absolute instant using now (from clk)
// projected into the effective timezone: clientTz when it is a valid IANA
// zone, else tenantTz. Returns nil when the utterance carries no date
// token, or a date token with no time/period token (insufficient to
// book), per the resolver's contract.
func Resolve(clk clock.Clock, utterance string, clientTz string, tenantTz string, businessHours *BusinessHours) *Result {
	tz := tenantTz
	if _, err := time.LoadLocation(clientTz); err == nil && clientTz != "" {
		tz = clientTz
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	now := clk.Now().In(loc)
	text := strings.ToLower(utterance)

	dateLocal, reasons, ok := resolveDate(text, now)
	if !ok {
		return nil
	}

	hour, minute, confidence, timeReasons, ok := resolveTime(text, businessHours)
	if !ok {
		return nil
	}
	reasons = append(reasons, timeReasons...)

	startLocal := time.Date(dateLocal.Year(), dateLocal.Month(), dateLocal.Day(), hour, minute, 0, 0, loc)
	startUTC := startLocal.UTC()
	endUTC := startUTC.Add(60 * time.Minute)

	return &Result{
		StartUTC:   startUTC,
		EndUTC:     endUTC,
		Confidence: confidence,
		Reasons:    reasons,
	}
}

// resolveDate finds the calendar date (in now's zone) the utterance refers
// to. Returns ok=false when no date token is present.
func resolveDate(text string, now time.Time) (time.Time, []string, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(text, "day after tomorrow"):
		return today.AddDate(0, 0, 2), []string{"relative day: day after tomorrow"}, true
	case strings.Contains(text, "tomorrow"):
		return today.AddDate(0, 0, 1), []string{"relative day: tomorrow"}, true
	case strings.Contains(text, "today"):
		return today, []string{"relative day: today"}, true
	}

	if m := reWeekday.FindStringSubmatch(text); m != nil {
		qualifier := m[1]
		target := weekdayNames[m[2]]
		diff := (int(target) - int(today.Weekday()) + 7) % 7
		date := today.AddDate(0, 0, diff)
		if qualifier == "next" {
			date = date.AddDate(0, 0, 7)
		}
		return date, []string{"named day: " + strings.TrimSpace(qualifier + " " + m[2])}, true
	}

	return time.Time{}, nil, false
}

// resolveTime finds the clock time (or period keyword) the utterance
// refers to. Returns ok=false when a date was found but no time/period
// token accompanies it.
func resolveTime(text string, businessHours *BusinessHours) (hour, minute int, confidence string, reasons []string, ok bool) {
	if m := reHHMM.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		ampm := m[3]
		h = applyAMPM(h, ampm)
		return h, min, "high", []string{"clock time: " + m[0]}, true
	}

	if m := reBareAMPM.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		h = applyAMPM(h, m[2])
		return h, 0, "high", []string{"clock time: " + m[0]}, true
	}

	if m := reAtBare.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		reason := "clock time: " + m[0] + " (presumed"
		if h >= 1 && h <= 7 {
			h += 12
			reason += " pm)"
		} else {
			reason += " am)"
		}
		return h % 24, 0, "medium", []string{reason}, true
	}

	switch {
	case strings.Contains(text, "morning"):
		if businessHours != nil {
			return businessHours.OpenHour, businessHours.OpenMinute, "medium", []string{"period keyword: morning"}, true
		}
		return 9, 0, "medium", []string{"period keyword: morning (default 09:00)"}, true
	case strings.Contains(text, "afternoon"):
		return 14, 0, "medium", []string{"period keyword: afternoon"}, true
	case strings.Contains(text, "evening"):
		return 17, 0, "medium", []string{"period keyword: evening"}, true
	}

	return 0, 0, "", nil, false
}

func applyAMPM(hour int, ampm string) int {
	switch ampm {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}
