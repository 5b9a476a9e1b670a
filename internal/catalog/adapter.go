// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog provides the schema adapters that translate between
// metadata collections and the catalog elements of a media package.
// Adapters are data: each one is a Definition scoped to an organisation.
package catalog

import (
	"fmt"
	"time"

	"github.com/ManuGH/lticast/internal/mediapackage"
	"github.com/ManuGH/lticast/internal/metadata"
)

// FieldSpec declares one field of an adapter's template.
type FieldSpec struct {
	ID         string            `yaml:"id"`
	Label      string            `yaml:"label"`
	Type       metadata.Type     `yaml:"type"`
	ReadOnly   bool              `yaml:"readOnly"`
	Required   bool              `yaml:"required"`
	Pattern    string            `yaml:"pattern"`
	Collection map[string]string `yaml:"collection"`
}

// Definition describes an adapter.
type Definition struct {
	Flavor       string      `yaml:"flavor"`
	Organization string      `yaml:"organization"`
	Title        string      `yaml:"title"`
	Common       bool        `yaml:"common"`
	Fields       []FieldSpec `yaml:"fields"`
}

// Adapter reads and writes one catalog flavor of a package.
type Adapter struct {
	def    Definition
	flavor mediapackage.Flavor
}

func newAdapter(def Definition) (Adapter, error) {
	flavor, err := mediapackage.ParseFlavor(def.Flavor)
	if err != nil {
		return Adapter{}, err
	}
	seen := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		if f.ID == "" {
			return Adapter{}, fmt.Errorf("adapter %s: field without id", def.Flavor)
		}
		if seen[f.ID] {
			return Adapter{}, fmt.Errorf("adapter %s: duplicate field %q", def.Flavor, f.ID)
		}
		seen[f.ID] = true
		if !f.Type.Valid() {
			return Adapter{}, fmt.Errorf("adapter %s: field %q has unknown type %q", def.Flavor, f.ID, f.Type)
		}
		if f.Pattern != "" && f.Type == metadata.TypeDate {
			if _, err := time.Parse(f.Pattern, time.Unix(0, 0).UTC().Format(f.Pattern)); err != nil {
				return Adapter{}, fmt.Errorf("adapter %s: field %q has unusable pattern: %w", def.Flavor, f.ID, err)
			}
		}
	}
	return Adapter{def: def, flavor: flavor}, nil
}

func (a Adapter) Flavor() string       { return a.def.Flavor }
func (a Adapter) Organization() string { return a.def.Organization }
func (a Adapter) Title() string        { return a.def.Title }
func (a Adapter) IsCommon() bool       { return a.def.Common }

// RawFields returns the empty field template.
func (a Adapter) RawFields() metadata.Collection {
	fields := make([]metadata.Field, 0, len(a.def.Fields))
	for _, fd := range a.def.Fields {
		opts := []metadata.FieldOption{metadata.WithLabel(fd.Label)}
		if fd.ReadOnly {
			opts = append(opts, metadata.ReadOnly())
		}
		if fd.Required {
			opts = append(opts, metadata.Required())
		}
		if fd.Pattern != "" {
			opts = append(opts, metadata.WithPattern(fd.Pattern))
		}
		if len(fd.Collection) > 0 {
			opts = append(opts, metadata.WithCollection(fd.Collection))
		}
		fields = append(fields, metadata.NewField(fd.ID, fd.Type, opts...))
	}
	return metadata.NewCollection(fields...)
}

// FieldsFrom fills the template from stored values. Unknown keys are ignored.
func (a Adapter) FieldsFrom(values map[string]any) (metadata.Collection, error) {
	c, err := a.RawFields().Apply(values)
	if err != nil {
		return metadata.Collection{}, fmt.Errorf("catalog %s: %w", a.def.Flavor, err)
	}
	return c, nil
}

// FieldsFor reads the adapter's catalog from mp. A package without the
// catalog yields the empty template.
func (a Adapter) FieldsFor(mp *mediapackage.MediaPackage) (metadata.Collection, error) {
	el, ok := mp.Catalog(a.flavor)
	if !ok {
		return a.RawFields(), nil
	}
	return a.FieldsFrom(el.Fields)
}

// StoreFields writes c onto mp as the adapter's catalog, replacing an
// existing catalog of the same flavor.
func (a Adapter) StoreFields(mp *mediapackage.MediaPackage, c metadata.Collection) {
	el, ok := mp.Catalog(a.flavor)
	if !ok {
		el = mediapackage.NewElement(mediapackage.KindCatalog, a.flavor)
		el.MimeType = "application/json"
	}
	el.Fields = StoredValues(c)
	mp.Add(el)
}

// StoredValues renders c into JSON-safe values: dates become strings in
// their field pattern, lists stay lists.
func StoredValues(c metadata.Collection) map[string]any {
	out := make(map[string]any, c.Len())
	for _, f := range c.Fields() {
		v, ok := f.Value()
		if !ok {
			continue
		}
		switch v.(type) {
		case time.Time:
			out[f.ID()] = f.String()
		default:
			out[f.ID()] = v
		}
	}
	return out
}
