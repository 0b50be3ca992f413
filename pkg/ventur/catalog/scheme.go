package catalog

import (
	"fmt"
	"strings"
)

// Scheme decides which host field names feed each endpoint.
//
// The per-endpoint scheme gives every query-style endpoint its own field
// (webSearchQuery, peopleSnapshotQuery, ...). The shared scheme reads all of them
// from a single "query" field and nests metadata under additionalFields.
type Scheme struct {
	Name string

	// SharedQueryField, when set, replaces every per-endpoint query field.
	SharedQueryField string

	TimestampField string
	SourceField    string

	// SimplifyField is empty when the scheme does not expose the simplify toggle.
	SimplifyField string
}

var (
	SchemePerEndpoint = Scheme{
		Name:           "per-endpoint",
		TimestampField: "timestamp",
		SourceField:    "source",
	}

	SchemeShared = Scheme{
		Name:             "shared",
		SharedQueryField: "query",
		TimestampField:   "additionalFields.timestamp",
		SourceField:      "additionalFields.source",
		SimplifyField:    "simplify",
	}
)

// ParseScheme normalizes a user supplied scheme name. Empty selects per-endpoint.
func ParseScheme(raw string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "per-endpoint", "perendpoint", "v2":
		return SchemePerEndpoint, nil
	case "shared", "v1":
		return SchemeShared, nil
	default:
		return Scheme{}, fmt.Errorf("unknown naming scheme %q (want per-endpoint or shared)", raw)
	}
}

func (s Scheme) fieldFor(e Endpoint, r Role) string {
	if r != RoleQuery {
		return string(r)
	}
	if s.SharedQueryField != "" {
		return s.SharedQueryField
	}
	return string(e) + "Query"
}
