// Package search compiles untrusted search parameters into structured,
// engine-agnostic queries. Sanitizers are pure and total: malformed input
// degrades to "no filter" and never fails the request.
package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MinSize     = 1
	MaxSize     = 1000

	// MaxPage keeps the offset (page-1)*size within int range even at
	// MaxSize, so adversarial page numbers can never overflow into a
	// negative from.
	MaxPage = 1000000

	// MaxFreeTextLength bounds free text so adversarial input can never
	// appear unbounded in a built query.
	MaxFreeTextLength = 500

	// Length caps for term filters
	MaxServiceLength = 50
	MaxLogTypeLength = 50
	MaxUserIDLength  = 100
	MaxFieldLength   = 50
)

// validLevels is the closed set of accepted log levels.
var validLevels = map[string]bool{
	"DEBUG":    true,
	"INFO":     true,
	"WARNING":  true,
	"ERROR":    true,
	"CRITICAL": true,
}

// sortableFields is the closed set of fields accepted for sorting.
var sortableFields = map[string]bool{
	"@timestamp":    true,
	"amount":        true,
	"response_time": true,
	"fraud_score":   true,
}

var (
	// Characters allowed in free text: alphanumerics, whitespace, and a
	// small set of punctuation that appears in log payloads. Everything
	// else (script tags, SQL metacharacters, shell syntax) is replaced.
	disallowedText = regexp.MustCompile(`[^\w\s\-@.+'"]+`)
	repeatedSpace  = regexp.MustCompile(`\s+`)
	markupTag      = regexp.MustCompile(`<[^>]*>`)
)

// dateLayouts are tried in order; first match wins.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02 15:04:05",
}

// SanitizeLevel normalizes a log level to its canonical uppercase form.
// Levels outside the fixed enum are dropped.
func SanitizeLevel(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	level := strings.ToUpper(strings.TrimSpace(raw))
	if !validLevels[level] {
		return "", false
	}
	return level, true
}

// SanitizeFreeText strips disallowed characters, collapses repeated
// whitespace, and truncates to MaxFreeTextLength. An empty result means
// "match everything".
func SanitizeFreeText(raw string) string {
	if raw == "" {
		return ""
	}
	text := disallowedText.ReplaceAllString(raw, " ")
	text = stripUnprintable(text)
	text = strings.TrimSpace(repeatedSpace.ReplaceAllString(text, " "))
	if len(text) > MaxFreeTextLength {
		text = strings.TrimSpace(text[:MaxFreeTextLength])
	}
	return text
}

// SanitizeDate parses a date string against the accepted layouts and
// normalizes it to UTC ISO-8601 with a Z suffix. Unparseable dates are
// dropped, not errors.
func SanitizeDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format("2006-01-02T15:04:05") + "Z", true
		}
	}
	return "", false
}

// SanitizePage parses a page number, defaulting to 1 and clamping to
// [1, MaxPage].
func SanitizePage(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPage
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultPage
	}
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

// SanitizeSize parses a page size, defaulting to 20 and clamping to
// [MinSize, MaxSize].
func SanitizeSize(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSize
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultSize
	}
	if size < MinSize {
		return MinSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// SanitizeTerm cleans a generic string filter value: markup removed,
// unprintable characters stripped, whitespace collapsed, length capped.
// An empty result means the filter is omitted entirely.
func SanitizeTerm(raw string, maxLength int) (string, bool) {
	if raw == "" {
		return "", false
	}
	term := markupTag.ReplaceAllString(raw, " ")
	term = disallowedText.ReplaceAllString(term, " ")
	term = stripUnprintable(term)
	term = strings.TrimSpace(repeatedSpace.ReplaceAllString(term, " "))
	if len(term) > maxLength {
		term = strings.TrimSpace(term[:maxLength])
	}
	if term == "" {
		return "", false
	}
	return term, true
}

// SanitizeAmount parses a numeric bound. Negative bounds are treated as
// absent.
func SanitizeAmount(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || amount < 0 {
		return 0, false
	}
	return amount, true
}

// SanitizeSortField returns the requested field if it is in the sortable
// allow-list, else the default "@timestamp".
func SanitizeSortField(raw string) string {
	field := strings.TrimSpace(raw)
	if !sortableFields[field] {
		return "@timestamp"
	}
	return field
}

// SanitizeSortOrder returns "asc" or "desc", defaulting to "desc".
func SanitizeSortOrder(raw string) string {
	order := strings.ToLower(strings.TrimSpace(raw))
	if order != "asc" && order != "desc" {
		return "desc"
	}
	return order
}

// stripUnprintable drops control characters and other unprintable runes,
// keeping ordinary whitespace.
func stripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
