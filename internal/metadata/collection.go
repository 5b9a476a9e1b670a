// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metadata

import (
	"encoding/json"
	"slices"
	"sort"
)

// Collection is an ordered, copy-on-write set of fields keyed by id.
// Every mutating method returns a new Collection and leaves the receiver
// untouched, so collections can be shared across goroutines freely.
// The zero value is an empty collection.
type Collection struct {
	order  []string
	fields map[string]Field
}

// NewCollection builds a collection. A later field with a duplicate id
// replaces the earlier one but keeps its position.
func NewCollection(fields ...Field) Collection {
	c := Collection{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if _, exists := c.fields[f.id]; !exists {
			c.order = append(c.order, f.id)
		}
		c.fields[f.id] = f
	}
	return c
}

func (c Collection) clone() Collection {
	out := Collection{
		order:  slices.Clone(c.order),
		fields: make(map[string]Field, len(c.fields)+1),
	}
	for k, v := range c.fields {
		out.fields[k] = v
	}
	return out
}

// Len returns the number of fields.
func (c Collection) Len() int { return len(c.order) }

// Field looks up a field by id.
func (c Collection) Field(id string) (Field, bool) {
	f, ok := c.fields[id]
	return f, ok
}

// Has reports whether the collection defines id.
func (c Collection) Has(id string) bool {
	_, ok := c.fields[id]
	return ok
}

// IDs returns the field ids in insertion order.
func (c Collection) IDs() []string { return slices.Clone(c.order) }

// Fields returns the fields in insertion order.
func (c Collection) Fields() []Field {
	out := make([]Field, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.fields[id])
	}
	return out
}

// With returns a collection containing f, replacing any field with the same id.
func (c Collection) With(f Field) Collection {
	out := c.clone()
	if _, exists := out.fields[f.id]; !exists {
		out.order = append(out.order, f.id)
	}
	out.fields[f.id] = f
	return out
}

// Remove returns a collection without id. Removing an absent id is a no-op.
func (c Collection) Remove(id string) Collection {
	if !c.Has(id) {
		return c
	}
	out := c.clone()
	delete(out.fields, id)
	out.order = slices.DeleteFunc(out.order, func(s string) bool { return s == id })
	return out
}

// Set validates v and returns a collection where field id carries it.
func (c Collection) Set(id string, v any) (Collection, error) {
	f, ok := c.fields[id]
	if !ok {
		return c, unknownField(id)
	}
	updated, err := f.WithValue(v)
	if err != nil {
		return c, err
	}
	return c.With(updated), nil
}

// Apply sets every key of values that the collection defines. Keys the
// collection does not define are ignored. Either every recognised value is
// applied or none is: on error the receiver is returned with the error of the
// first offending field in key order.
func (c Collection) Apply(values map[string]any) (Collection, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if c.Has(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return c, nil
	}
	sort.Strings(keys)

	out := c.clone()
	for _, k := range keys {
		updated, err := out.fields[k].WithValue(values[k])
		if err != nil {
			return c, err
		}
		out.fields[k] = updated
	}
	return out, nil
}

// Values returns id to value for fields that carry a value.
func (c Collection) Values() map[string]any {
	out := make(map[string]any, len(c.order))
	for _, id := range c.order {
		if v, ok := c.fields[id].Value(); ok {
			out[id] = v
		}
	}
	return out
}

// MarshalJSON renders the fields as an ordered array.
func (c Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Fields())
}
