// Package timekey normalizes free-form date/time expressions into the
// fixed-width YYYYMMDDHHMM key used to partition the log archive and to key
// cached search results.
package timekey

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Key is a canonical 12-digit YYYYMMDDHHMM archive partition key.
type Key string

// Layout is the reference layout a Key is formatted with.
const Layout = "200601021504"

// InvalidTimeError reports an input that matched no normalization rule or a
// 12-digit input with an out-of-range component. Its message is shown to
// users as-is.
type InvalidTimeError struct {
	Input  string
	Reason string
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("Could not parse date: %s. Please provide a valid date and time.", e.Input)
}

var canonicalPattern = regexp.MustCompile(`^\d{12}$`)

// absoluteLayouts are tried in order; the first match wins. Several forms
// share a separator (2006-01-02 vs 02-01-2006), so year-first layouts come
// before day-first layouts. Do not reorder.
var absoluteLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04",
	"2006/01/02",
	"02-01-2006 15:04",
	"02-01-2006",
	"02/01/2006 15:04",
	"02/01/2006",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
}

var monthYearPattern = regexp.MustCompile(`(?i)^(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+(\d{4})$`)

// Normalizer converts date/time expressions to Keys. The zero value uses the
// wall clock for relative keywords; tests inject Now for determinism.
type Normalizer struct {
	Now func() time.Time
}

// Normalize applies the normalization rules in order and returns the first
// success. No timezone conversion happens anywhere: inputs are taken to be
// in the archive's reference timezone already.
func (n Normalizer) Normalize(input string) (Key, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", &InvalidTimeError{Input: input, Reason: "empty input"}
	}

	// Rule 1: already canonical. An out-of-range component is a definitive
	// failure, not a fall-through.
	if canonicalPattern.MatchString(s) {
		return validateCanonical(s)
	}

	// Rule 2: relative keywords.
	if t, ok := n.relative(s); ok {
		return FromTime(t), nil
	}

	// Rule 3: fixed ordered layout list.
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}

	// Rule 4: month and year only resolve to day 01.
	if m := monthYearPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[2])
		month, ok := monthByName(m[1])
		if ok {
			return FromTime(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)), nil
		}
	}

	return "", &InvalidTimeError{Input: input, Reason: "unrecognized date format"}
}

// Normalize normalizes with the wall clock.
func Normalize(input string) (Key, error) {
	return Normalizer{}.Normalize(input)
}

// FromTime formats t as a canonical key, truncated to the minute. Date-only
// inputs parse to midnight, so their minute field comes out as 0000 by
// construction.
func FromTime(t time.Time) Key {
	return Key(t.Format(Layout))
}

func (n Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func (n Normalizer) relative(s string) (time.Time, bool) {
	switch strings.ToLower(s) {
	case "today", "now":
		return n.now(), true
	case "yesterday":
		return n.now().Add(-24 * time.Hour), true
	}
	return time.Time{}, false
}

func validateCanonical(s string) (Key, error) {
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])
	hour, _ := strconv.Atoi(s[8:10])
	minute, _ := strconv.Atoi(s[10:12])

	switch {
	case month < 1 || month > 12:
		return "", &InvalidTimeError{Input: s, Reason: fmt.Sprintf("invalid month: %d", month)}
	case day < 1 || day > 31:
		return "", &InvalidTimeError{Input: s, Reason: fmt.Sprintf("invalid day: %d", day)}
	case hour > 23:
		return "", &InvalidTimeError{Input: s, Reason: fmt.Sprintf("invalid hour: %d", hour)}
	case minute > 59:
		return "", &InvalidTimeError{Input: s, Reason: fmt.Sprintf("invalid minute: %d", minute)}
	}
	return Key(s), nil
}

func monthByName(name string) (time.Month, bool) {
	prefix := strings.ToLower(name)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	months := map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
	m, ok := months[prefix]
	return m, ok
}
