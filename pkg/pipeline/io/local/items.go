package local

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Item is one input row: host field name to raw value.
type Item map[string]any

// ReadItems decodes input items from r in the given format.
//
// csv uses the header row as field names. json expects an array of objects, jsonl
// one object per line, and yaml a sequence of mappings.
func ReadItems(r io.Reader, format Format) ([]Item, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatJSON:
		return readJSON(r)
	case FormatJSONL:
		return readJSONL(r)
	case FormatYAML:
		return readYAML(r)
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
}

func readCSV(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if header[i] == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
	}

	var items []Item
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("row %d has %d columns, header has %d", len(items)+1, len(rec), len(header))
		}
		item := make(Item, len(header))
		for i, v := range rec {
			item[header[i]] = v
		}
		items = append(items, item)
	}
	return items, nil
}

func readJSON(r io.Reader) ([]Item, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var items []Item
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("parse json items: %w", err)
	}
	return items, nil
}

func readJSONL(r io.Reader) ([]Item, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var items []Item
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var item Item
		if err := dec.Decode(&item); err != nil {
			return nil, fmt.Errorf("parse jsonl line %d: %w", line, err)
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return items, nil
}

func readYAML(r io.Reader) ([]Item, error) {
	var items []Item
	if err := yaml.NewDecoder(r).Decode(&items); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse yaml items: %w", err)
	}
	return items, nil
}
