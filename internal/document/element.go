// internal/document/element.go
package document

import "sort"

// Element is one item on the canvas. The engine only cares about identity;
// everything else lives in Props and is carried around opaquely.
type Element struct {
	ID    string         `json:"id"`
	Type  string         `json:"type,omitempty"`
	Props map[string]any `json:"props,omitempty"`
}

// CanvasSettings holds canvas-level state captured alongside elements.
type CanvasSettings struct {
	Background  string `json:"background,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	GridEnabled bool   `json:"grid_enabled,omitempty"`
	GridSize    int    `json:"grid_size,omitempty"`
}

// Clone returns a fully independent copy of the element.
func (e Element) Clone() Element {
	return Element{
		ID:    e.ID,
		Type:  e.Type,
		Props: cloneValue(e.Props).(map[string]any),
	}
}

// CloneElements deep-copies a whole element collection.
func CloneElements(elements []Element) []Element {
	if elements == nil {
		return nil
	}
	out := make([]Element, len(elements))
	for i, e := range elements {
		out[i] = e.Clone()
	}
	return out
}

// Clone returns an independent copy of the settings.
func (c *CanvasSettings) Clone() *CanvasSettings {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// ChangedProps returns the sorted names of properties whose values differ
// between e and other. Type changes count as a property change.
func (e Element) ChangedProps(other Element) []string {
	var changed []string
	if e.Type != other.Type {
		changed = append(changed, "type")
	}
	for k, v := range e.Props {
		ov, ok := other.Props[k]
		if !ok || !valueEqual(v, ov) {
			changed = append(changed, k)
		}
	}
	for k := range other.Props {
		if _, ok := e.Props[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// cloneValue copies the JSON-shaped value graphs elements are made of:
// maps, slices and scalars. Anything else is treated as a scalar.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return map[string]any(nil)
		}
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = cloneValue(item)
		}
		return m
	case []any:
		if val == nil {
			return []any(nil)
		}
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = cloneValue(item)
		}
		return s
	default:
		return v
	}
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, item := range av {
			other, ok := bv[k]
			if !ok || !valueEqual(item, other) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i, item := range av {
			if !valueEqual(item, bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
