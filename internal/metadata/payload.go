// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is a client metadata document. It arrives either as a flat object
// of field id to value, or as an array of catalog documents:
//
//	[{"flavor":"dublincore/episode","fields":[{"id":"title","value":"Lecture 1"}]}]
type Payload struct {
	Flat     map[string]any
	Catalogs []CatalogPayload
}

// CatalogPayload carries field values addressed to one catalog flavor.
type CatalogPayload struct {
	Flavor string         `json:"flavor"`
	Fields []FieldPayload `json:"fields"`
}

// FieldPayload is one field value inside a CatalogPayload.
type FieldPayload struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

// ParsePayload decodes either payload form. Blank input yields an empty payload.
func ParsePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Payload{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '{':
		var flat map[string]any
		if err := dec.Decode(&flat); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return Payload{Flat: flat}, nil
	case '[':
		var catalogs []CatalogPayload
		if err := dec.Decode(&catalogs); err != nil {
			return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return Payload{Catalogs: catalogs}, nil
	}
	return Payload{}, fmt.Errorf("%w: expected a JSON object or array", ErrMalformedPayload)
}

// valuesFor collects the values addressed to flavor. Flat values apply to
// every flavor; catalog entries only to their own.
func (p Payload) valuesFor(flavor string) map[string]any {
	out := make(map[string]any)
	for k, v := range p.Flat {
		out[k] = v
	}
	for _, cat := range p.Catalogs {
		if cat.Flavor != flavor {
			continue
		}
		for _, f := range cat.Fields {
			out[f.ID] = f.Value
		}
	}
	return out
}

// ApplyTo applies the values addressed to flavor onto c.
func (p Payload) ApplyTo(flavor string, c Collection) (Collection, error) {
	return c.Apply(p.valuesFor(flavor))
}
