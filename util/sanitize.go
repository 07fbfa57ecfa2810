package util

import "regexp"

// MaxSanitizeLength caps input length before sanitization so a hostile
// collaborator error cannot blow up log volume.
const MaxSanitizeLength = 64 * 1024

var redactions = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	// Connection strings carry credentials in the userinfo part.
	{regexp.MustCompile(`(?:mongodb|redis|http|https)://[^\s"']+`), "[CONNECTION]"},

	// Key/value credential pairs.
	{regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+[^\s\n]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)(token|auth|authorization)[\s:=]+[^\s\n]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret)[\s:=]+[^\s\n]+`), "$1=REDACTED"},
	{regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-.]+`), "bearer REDACTED"},
}

// SanitizeError renders an error for logging with credentials and
// connection strings redacted. Collaborator clients (Redis, MongoDB,
// Elasticsearch) embed their target URIs in error text.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString redacts sensitive material from a string before logging.
func SanitizeString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > MaxSanitizeLength {
		s = s[:MaxSanitizeLength] + "... [truncated]"
	}
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}
