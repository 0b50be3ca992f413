package local

import (
	"fmt"
	"strings"

	"github.com/venturhq/ventur-connector/pkg/pipeline/core"
)

// ItemResolver serves item fields to the dispatcher by index.
//
// Dotted names such as "additionalFields.timestamp" are looked up as a nested path
// first and as a literal column name second. Defaults fill fields an item leaves unset
// or blank, which covers empty CSV cells.
type ItemResolver struct {
	Items    []Item
	Defaults map[string]any
}

var _ core.FieldResolver = ItemResolver{}

func (r ItemResolver) Field(name string, index int) (core.Value, error) {
	if index < 0 || index >= len(r.Items) {
		return nil, fmt.Errorf("item index %d out of range (have %d)", index, len(r.Items))
	}
	if v, ok := lookup(r.Items[index], name); ok {
		return v, nil
	}
	if v, ok := r.Defaults[name]; ok {
		return v, nil
	}
	return nil, nil
}

func lookup(item Item, name string) (any, bool) {
	if item == nil {
		return nil, false
	}
	if strings.Contains(name, ".") {
		if v, ok := nested(map[string]any(item), strings.Split(name, ".")); ok {
			return v, true
		}
	}
	v, ok := item[name]
	if !ok || blank(v) {
		return nil, false
	}
	return v, true
}

func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

func nested(m map[string]any, path []string) (any, bool) {
	v, ok := m[path[0]]
	if !ok || blank(v) {
		return nil, false
	}
	if len(path) == 1 {
		return v, true
	}
	switch next := v.(type) {
	case map[string]any:
		return nested(next, path[1:])
	case Item:
		return nested(map[string]any(next), path[1:])
	default:
		return nil, false
	}
}
