package local

import (
	"path/filepath"
	"strings"
)

// Format names an item or record file encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// NormalizeFormat maps user spellings onto a Format. Unknown values come back
// unchanged so callers can report them.
func NormalizeFormat(raw string) Format {
	s := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(raw)), ".")
	switch s {
	case "csv":
		return FormatCSV
	case "json":
		return FormatJSON
	case "jsonl", "ndjson", "jsonlines":
		return FormatJSONL
	case "yaml", "yml":
		return FormatYAML
	default:
		return Format(s)
	}
}

// FormatFromPath picks a format from an explicit value, falling back to the file
// extension and then to def.
func FormatFromPath(explicit, path string, def Format) Format {
	if strings.TrimSpace(explicit) != "" {
		return NormalizeFormat(explicit)
	}
	if ext := filepath.Ext(path); ext != "" {
		return NormalizeFormat(ext)
	}
	return def
}
