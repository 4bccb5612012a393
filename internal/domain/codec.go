package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Boolean token sets. The feed mixes French and English spellings depending on
// the export vintage, so both are accepted.
var (
	affirmativeTokens = map[string]bool{"oui": true, "true": true, "1": true, "vrai": true}
	negativeTokens    = map[string]bool{"non": true, "false": true, "0": true, "faux": true}
)

// dueDateLayouts are tried in order: ISO with an explicit offset, ISO without,
// then the space-separated forms with and without seconds. The export has
// shifted between all of these over time.
var dueDateLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// NormalizeHeader canonicalizes a CSV header cell: surrounding whitespace
// trimmed, lowercased, internal whitespace runs collapsed to a single
// underscore. "Nom Station" → "nom_station". Applied identically when
// registering aliases and when resolving headers, so accented and de-accented
// spellings both land on their registered form.
func NormalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// ParseInt converts a textual count into an int32 pointer, nil when the value
// is absent or unreadable. Counts sometimes arrive as textual decimals
// ("12.0"), so values go through a float parse and truncate toward zero.
// Never returns an error: an unreadable count is an unknown count.
func ParseInt(s string) *int32 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return int32FromFloat(f)
}

// ParseTriBool reads a locale-mixed boolean token, case-insensitively.
// Affirmative tokens map to true and negative tokens to false. Everything
// else, the empty string included, becomes nil: silence is not a "false"
// reading.
func ParseTriBool(s string) *bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case affirmativeTokens[s]:
		return boolPtr(true)
	case negativeTokens[s]:
		return boolPtr(false)
	default:
		return nil
	}
}

// ParseDueDate parses an observation timestamp. A trailing "Z" is rewritten to
// an explicit zero offset before parsing; any parsed offset is then discarded,
// so the result carries the wall-clock fields of the input, timezone-naive
// (represented in UTC).
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	for _, layout := range dueDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized due_date format %q", s)
}

// stringFromAny renders a scalar message value as a trimmed string. Numbers
// are formatted without an exponent so numeric station codes survive intact.
func stringFromAny(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// intFromAny applies the ParseInt policy to an untyped message value.
func intFromAny(v any) *int32 {
	switch t := v.(type) {
	case float64:
		return int32FromFloat(t)
	case string:
		return ParseInt(t)
	default:
		return nil
	}
}

// triBoolFromAny applies the ParseTriBool policy to an untyped message value.
// JSON booleans and the 0/1 numeric wire form are accepted directly.
func triBoolFromAny(v any) *bool {
	switch t := v.(type) {
	case bool:
		return boolPtr(t)
	case float64:
		if t == 0 {
			return boolPtr(false)
		}
		if t == 1 {
			return boolPtr(true)
		}
		return nil
	case string:
		return ParseTriBool(t)
	default:
		return nil
	}
}

func int32FromFloat(f float64) *int32 {
	f = math.Trunc(f)
	if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return nil
	}
	n := int32(f)
	return &n
}

func boolPtr(b bool) *bool { return &b }
