// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metadata models typed event metadata: immutable fields, copy-on-write
// collections scoped to one catalog flavor, and the per-event list that merges
// the collections of every registered catalog adapter.
package metadata

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
	"time"
)

// Type is the declared value type of a field.
type Type string

const (
	TypeString     Type = "string"
	TypeStringList Type = "string_list"
	TypeDate       Type = "date"
	TypeNumber     Type = "number"
	TypeEnum       Type = "enumeration"
)

// Valid reports whether t is one of the known field types.
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeStringList, TypeDate, TypeNumber, TypeEnum:
		return true
	}
	return false
}

// DefaultDatePattern is the Go layout used by date fields without an explicit pattern.
const DefaultDatePattern = time.RFC3339

// Field is an immutable, typed metadata descriptor with an optional value.
// Changing a value yields a new Field; the receiver is never modified.
type Field struct {
	id         string
	label      string
	typ        Type
	value      any
	hasValue   bool
	collection map[string]string
	pattern    string
	readOnly   bool
	required   bool
}

// FieldOption customises a Field at construction time.
type FieldOption func(*Field)

// WithLabel sets the display label (usually a translation key).
func WithLabel(label string) FieldOption {
	return func(f *Field) { f.label = label }
}

// WithCollection sets the allowed values, keyed by value with a display label.
func WithCollection(c map[string]string) FieldOption {
	return func(f *Field) { f.collection = maps.Clone(c) }
}

// WithPattern sets the Go time layout for date fields.
func WithPattern(layout string) FieldOption {
	return func(f *Field) { f.pattern = layout }
}

// ReadOnly marks the field as not editable by clients.
func ReadOnly() FieldOption {
	return func(f *Field) { f.readOnly = true }
}

// Required marks the field as mandatory for clients.
func Required() FieldOption {
	return func(f *Field) { f.required = true }
}

// NewField constructs a field without a value.
func NewField(id string, typ Type, opts ...FieldOption) Field {
	f := Field{id: id, typ: typ}
	for _, opt := range opts {
		opt(&f)
	}
	if f.label == "" {
		f.label = id
	}
	return f
}

func (f Field) ID() string      { return f.id }
func (f Field) Label() string   { return f.label }
func (f Field) Type() Type      { return f.typ }
func (f Field) Pattern() string { return f.pattern }

// Value returns the normalised value: string, []string, time.Time or float64.
func (f Field) Value() (any, bool) {
	if !f.hasValue {
		return nil, false
	}
	if list, ok := f.value.([]string); ok {
		return append([]string(nil), list...), true
	}
	return f.value, true
}

// Collection returns a copy of the allowed values.
func (f Field) Collection() map[string]string {
	return maps.Clone(f.collection)
}

// WithValue validates v against the field declaration and returns a copy
// carrying the normalised value. A nil v clears the value.
func (f Field) WithValue(v any) (Field, error) {
	if v == nil {
		return f.Cleared(), nil
	}
	norm, empty, err := f.normalize(v)
	if err != nil {
		return f, err
	}
	if empty {
		return f.Cleared(), nil
	}
	out := f
	out.value = norm
	out.hasValue = true
	return out, nil
}

// WithAllowedValues returns a copy whose collection is replaced by c.
func (f Field) WithAllowedValues(c map[string]string) Field {
	out := f
	out.collection = maps.Clone(c)
	return out
}

// Cleared returns a copy without a value.
func (f Field) Cleared() Field {
	out := f
	out.value = nil
	out.hasValue = false
	return out
}

// String renders the value in its wire form ("" when unset).
func (f Field) String() string {
	if !f.hasValue {
		return ""
	}
	switch v := f.value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case time.Time:
		return v.Format(f.layout())
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(f.value)
}

func (f Field) layout() string {
	if f.pattern != "" {
		return f.pattern
	}
	return DefaultDatePattern
}

// normalize converts v to the canonical representation for the field type.
// empty reports a blank input that clears date and number fields.
func (f Field) normalize(v any) (norm any, empty bool, err error) {
	switch f.typ {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, false, invalidValue(f.id, v, "expected a string")
		}
		return s, false, nil

	case TypeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, false, invalidValue(f.id, v, "expected a string")
		}
		if _, allowed := f.collection[s]; !allowed {
			return nil, false, invalidValue(f.id, v, "value is not one of the allowed values")
		}
		return s, false, nil

	case TypeStringList:
		switch t := v.(type) {
		case string:
			if t == "" {
				return []string{}, false, nil
			}
			return []string{t}, false, nil
		case []string:
			return append([]string{}, t...), false, nil
		case []any:
			out := make([]string, 0, len(t))
			for _, item := range t {
				s, ok := item.(string)
				if !ok {
					return nil, false, invalidValue(f.id, v, "expected a list of strings")
				}
				out = append(out, s)
			}
			return out, false, nil
		}
		return nil, false, invalidValue(f.id, v, "expected a list of strings")

	case TypeNumber:
		var n float64
		switch t := v.(type) {
		case float64:
			n = t
		case float32:
			n = float64(t)
		case int:
			n = float64(t)
		case int64:
			n = float64(t)
		case json.Number:
			parsed, err := t.Float64()
			if err != nil {
				return nil, false, invalidValue(f.id, v, "not a number")
			}
			n = parsed
		case string:
			if strings.TrimSpace(t) == "" {
				return nil, true, nil
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil {
				return nil, false, invalidValue(f.id, v, "not a number")
			}
			n = parsed
		default:
			return nil, false, invalidValue(f.id, v, "not a number")
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, false, invalidValue(f.id, v, "not a finite number")
		}
		return n, false, nil

	case TypeDate:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), false, nil
		case string:
			if strings.TrimSpace(t) == "" {
				return nil, true, nil
			}
			parsed, err := time.Parse(f.layout(), t)
			if err != nil {
				return nil, false, invalidValue(f.id, v, fmt.Sprintf("does not match pattern %q", f.layout()))
			}
			return parsed.UTC(), false, nil
		}
		return nil, false, invalidValue(f.id, v, "expected a date string")
	}
	return nil, false, invalidValue(f.id, v, fmt.Sprintf("unsupported field type %q", f.typ))
}

type fieldJSON struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Type       Type              `json:"type"`
	Value      any               `json:"value"`
	ReadOnly   bool              `json:"readOnly"`
	Required   bool              `json:"required"`
	Collection map[string]string `json:"collection,omitempty"`
	Pattern    string            `json:"pattern,omitempty"`
}

// MarshalJSON renders the field for clients. Dates use the field pattern.
func (f Field) MarshalJSON() ([]byte, error) {
	out := fieldJSON{
		ID:         f.id,
		Label:      f.label,
		Type:       f.typ,
		ReadOnly:   f.readOnly,
		Required:   f.required,
		Collection: f.collection,
		Pattern:    f.pattern,
	}
	if f.hasValue {
		switch v := f.value.(type) {
		case time.Time:
			out.Value = v.Format(f.layout())
		default:
			out.Value = v
		}
	} else if f.typ == TypeStringList {
		out.Value = []string{}
	} else {
		out.Value = ""
	}
	return json.Marshal(out)
}
