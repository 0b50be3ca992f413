package local_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/venturhq/ventur-connector/pkg/pipeline/io/local"
	"github.com/venturhq/ventur-connector/pkg/ventur/dispatch"
)

func sampleRecords() []dispatch.Record {
	return []dispatch.Record{
		{OK: true, Data: json.RawMessage(`{"results":[]}`)},
		{OK: false, Error: "missing required field webSearchQuery"},
	}
}

func TestWriteRecords_JSONL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := local.WriteRecords(&buf, sampleRecords(), local.FormatJSONL); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := `{"ok":true,"data":{"results":[]}}` + "\n" +
		`{"ok":false,"error":"missing required field webSearchQuery"}` + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteRecords_JSONArray(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := local.WriteRecords(&buf, sampleRecords(), local.FormatJSON); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0]["ok"] != true || got[1]["error"] != "missing required field webSearchQuery" {
		t.Fatalf("unexpected records: %#v", got)
	}
}

func TestWriteRecords_EmptyJSONIsArray(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := local.WriteRecords[dispatch.Record](&buf, nil, local.FormatJSON); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("expected [], got %q", buf.String())
	}
}

func TestRecordWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := local.NewRecordWriter(&buf)
	for _, rec := range sampleRecords() {
		if err := w.Write(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if w.Count() != 2 || strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("unexpected output (count=%d):\n%s", w.Count(), buf.String())
	}
}
