package redact

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens).
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Matches the API key header as it shows up in dumped requests.
	apiKeyHeaderRe = regexp.MustCompile(`(?i)\bX-API-Key\b\s*[:=]\s*[^\s"',}]+`)

	// Common key=value formats that sometimes leak in error strings. Values already
	// replaced with a <placeholder> are left alone.
	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|ventur[_-]?api[_-]?key)\b\s*[:=]\s*[^\s"'<][^\s"']*`)
)

// Secrets removes obvious secret-bearing substrings from error/log strings.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = apiKeyHeaderRe.ReplaceAllString(out, "X-API-Key: <redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	return strings.TrimSpace(out)
}

// Value masks a known secret inside s. Short or empty secrets are ignored.
func Value(s, secret string) string {
	secret = strings.TrimSpace(secret)
	if len(secret) < 4 || s == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "<redacted>")
}
