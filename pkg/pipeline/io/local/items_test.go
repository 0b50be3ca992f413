package local_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/venturhq/ventur-connector/pkg/pipeline/io/local"
)

func TestReadItems_CSV(t *testing.T) {
	t.Parallel()

	in := "\ufeffendpoint, webSearchQuery\nwebSearch,AI agents\nwebSearch,\n"
	items, err := local.ReadItems(strings.NewReader(in), local.FormatCSV)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []local.Item{
		{"endpoint": "webSearch", "webSearchQuery": "AI agents"},
		{"endpoint": "webSearch", "webSearchQuery": ""},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestReadItems_CSVErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{name: "empty header column", in: "a,,c\n1,2,3\n"},
		{name: "row wider than header", in: "a,b\n1,2,3\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := local.ReadItems(strings.NewReader(tt.in), local.FormatCSV); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestReadItems_EmptyCSV(t *testing.T) {
	t.Parallel()

	items, err := local.ReadItems(strings.NewReader(""), local.FormatCSV)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected no items, got %v err=%v", items, err)
	}
}

func TestReadItems_JSONFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format local.Format
		in     string
	}{
		{name: "json", format: local.FormatJSON, in: `[{"query":"Monzo","n":3},{"query":"Revolut"}]`},
		{name: "jsonl", format: local.FormatJSONL, in: "{\"query\":\"Monzo\",\"n\":3}\n\n{\"query\":\"Revolut\"}\n"},
		{name: "yaml", format: local.FormatYAML, in: "- query: Monzo\n  n: 3\n- query: Revolut\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			items, err := local.ReadItems(strings.NewReader(tt.in), tt.format)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(items) != 2 || items[0]["query"] != "Monzo" || items[1]["query"] != "Revolut" {
				t.Fatalf("unexpected items: %#v", items)
			}
		})
	}
}

func TestReadItems_JSONUsesNumbers(t *testing.T) {
	t.Parallel()

	items, err := local.ReadItems(strings.NewReader(`[{"n":12345678901234567}]`), local.FormatJSON)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n, ok := items[0]["n"].(json.Number); !ok || n.String() != "12345678901234567" {
		t.Fatalf("expected json.Number, got %#v", items[0]["n"])
	}
}

func TestReadItems_JSONLReportsLine(t *testing.T) {
	t.Parallel()

	_, err := local.ReadItems(strings.NewReader("{\"a\":1}\n{bad\n"), local.FormatJSONL)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}
}

func TestReadItems_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	if _, err := local.ReadItems(strings.NewReader(""), local.Format("xml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		explicit, path string
		want           local.Format
	}{
		{"", "items.csv", local.FormatCSV},
		{"", "items.ndjson", local.FormatJSONL},
		{"", "items.YML", local.FormatYAML},
		{"json", "items.csv", local.FormatJSON},
		{"", "items", local.FormatJSONL},
	}
	for _, tt := range tests {
		if got := local.FormatFromPath(tt.explicit, tt.path, local.FormatJSONL); got != tt.want {
			t.Fatalf("FormatFromPath(%q, %q)=%q want %q", tt.explicit, tt.path, got, tt.want)
		}
	}
}
