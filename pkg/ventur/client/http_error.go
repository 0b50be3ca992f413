package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/venturhq/ventur-connector/pkg/pipeline/redact"
)

// errorEnvelope covers the error shapes the API returns. Extra fields are ignored.
type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Code    string          `json:"code"`
}

// HTTPError is a sanitized summary of a non-2xx Ventur API response.
//
// Important: do not include raw response bodies here (can leak PII/keys).
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string
	Code       string

	// Snippet is a redacted, truncated hint for responses without a recognizable envelope.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "ventur http error"
	}
	parts := []string{
		fmt.Sprintf("ventur api error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Code) != "" {
		parts = append(parts, "code="+strings.TrimSpace(e.Code))
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "message="+strings.TrimSpace(e.Message))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}
	if h.Status == "" && h.StatusCode != 0 {
		h.Status = fmt.Sprintf("%d %s", h.StatusCode, http.StatusText(h.StatusCode))
	}

	// Best effort: parse the JSON error envelope.
	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		h.Code = strings.TrimSpace(env.Code)
		h.Message = redact.Secrets(firstNonEmpty(envelopeError(env.Error), env.Message, env.Detail))
		if h.Message != "" || h.Code != "" {
			return h
		}
	}

	// Fallback: include a small, redacted hint only.
	h.Snippet = redactAndTruncate(body)
	return h
}

// envelopeError accepts "error" as either a string or an object with a message.
func envelopeError(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	// Keep this small: response bodies can contain sensitive data.
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redact.Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
