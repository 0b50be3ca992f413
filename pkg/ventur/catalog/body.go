package catalog

import (
	"strings"
	"time"

	"github.com/venturhq/ventur-connector/pkg/pipeline/core"
)

// Body is the JSON object posted to an endpoint.
type Body map[string]any

// timestampLayout matches the millisecond UTC form the API expects (2024-05-01T09:30:00.000Z).
const timestampLayout = "2006-01-02T15:04:05.000Z"

// BuildBody assembles the request body for spec from values keyed by input field name.
//
// Required fields that are absent or blank fail with *core.MissingFieldError. Metadata
// fields fall back to now and DefaultSource only when absent or blank.
func BuildBody(spec Spec, values map[string]core.Value, now time.Time) (Body, error) {
	body := make(Body, len(spec.Required)+2)
	for _, f := range spec.Required {
		v, ok := present(values[f.Name])
		if !ok {
			return nil, &core.MissingFieldError{Field: f.Name}
		}
		body[f.Key] = v
	}

	if spec.TimestampField != "" {
		if v, ok := present(values[spec.TimestampField]); ok {
			body["timestamp"] = v
		} else {
			body["timestamp"] = FormatTimestamp(now)
		}
	}
	if spec.SourceField != "" {
		if v, ok := present(values[spec.SourceField]); ok {
			body["source"] = v
		} else {
			body["source"] = DefaultSource
		}
	}
	return body, nil
}

// FormatTimestamp renders t in the API's timestamp form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func present(v core.Value) (core.Value, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, false
		}
		return t, true
	case *string:
		if t == nil || strings.TrimSpace(*t) == "" {
			return nil, false
		}
		return *t, true
	default:
		return v, true
	}
}
