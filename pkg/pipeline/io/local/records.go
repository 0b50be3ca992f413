package local

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteRecords encodes records as a JSON array (json) or one object per line (jsonl).
func WriteRecords[T any](w io.Writer, records []T, format Format) error {
	switch format {
	case FormatJSON:
		if records == nil {
			records = []T{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for i, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("encode record %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// RecordWriter streams records as jsonl, one per call.
type RecordWriter struct {
	enc *json.Encoder
	n   int
}

// NewRecordWriter returns a RecordWriter that encodes to w.
func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{enc: json.NewEncoder(w)}
}

func (rw *RecordWriter) Write(rec any) error {
	if err := rw.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record %d: %w", rw.n, err)
	}
	rw.n++
	return nil
}

// Count returns the number of records written so far.
func (rw *RecordWriter) Count() int {
	return rw.n
}
