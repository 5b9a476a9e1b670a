// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mediapackage models the bundle of tracks, attachments and metadata
// catalogs that makes up one event before and during processing.
package mediapackage

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an element.
type Kind string

const (
	KindTrack      Kind = "track"
	KindAttachment Kind = "attachment"
	KindCatalog    Kind = "catalog"
)

// Element is one item of a package. Catalog elements carry their field
// values inline in Fields; tracks and attachments reference stored bytes by URI.
type Element struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"kind"`
	Flavor   Flavor         `json:"flavor"`
	MimeType string         `json:"mimetype,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	URI      string         `json:"uri,omitempty"`
	Filename string         `json:"filename,omitempty"`
	Size     int64          `json:"size,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// NewElement returns an element with a fresh id.
func NewElement(kind Kind, flavor Flavor) Element {
	return Element{ID: uuid.NewString(), Kind: kind, Flavor: flavor}
}

// HasTag reports whether the element carries tag.
func (e Element) HasTag(tag string) bool { return slices.Contains(e.Tags, tag) }

// MediaPackage is a package in progress.
type MediaPackage struct {
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Elements []Element `json:"elements"`
}

// New returns an empty package with a fresh id.
func New(now time.Time) *MediaPackage {
	return &MediaPackage{ID: uuid.NewString(), Created: now.UTC()}
}

// Add appends e, replacing an element with the same id.
func (mp *MediaPackage) Add(e Element) {
	for i := range mp.Elements {
		if mp.Elements[i].ID == e.ID {
			mp.Elements[i] = e
			return
		}
	}
	mp.Elements = append(mp.Elements, e)
}

// Remove drops the element with id.
func (mp *MediaPackage) Remove(id string) {
	mp.Elements = slices.DeleteFunc(mp.Elements, func(e Element) bool { return e.ID == id })
}

// Element returns the element with id.
func (mp *MediaPackage) Element(id string) (Element, bool) {
	for _, e := range mp.Elements {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

// ByKind returns the elements of kind, in package order.
func (mp *MediaPackage) ByKind(kind Kind) []Element {
	var out []Element
	for _, e := range mp.Elements {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ByFlavor returns the elements of kind with flavor.
func (mp *MediaPackage) ByFlavor(kind Kind, flavor Flavor) []Element {
	var out []Element
	for _, e := range mp.Elements {
		if e.Kind == kind && e.Flavor == flavor {
			out = append(out, e)
		}
	}
	return out
}

func (mp *MediaPackage) Tracks() []Element      { return mp.ByKind(KindTrack) }
func (mp *MediaPackage) Attachments() []Element { return mp.ByKind(KindAttachment) }
func (mp *MediaPackage) Catalogs() []Element    { return mp.ByKind(KindCatalog) }

// Catalog returns the first catalog with flavor.
func (mp *MediaPackage) Catalog(flavor Flavor) (Element, bool) {
	cats := mp.ByFlavor(KindCatalog, flavor)
	if len(cats) == 0 {
		return Element{}, false
	}
	return cats[0], true
}

// Clone returns a deep copy.
func (mp *MediaPackage) Clone() *MediaPackage {
	out := &MediaPackage{ID: mp.ID, Created: mp.Created, Elements: make([]Element, len(mp.Elements))}
	for i, e := range mp.Elements {
		e.Tags = slices.Clone(e.Tags)
		if e.Fields != nil {
			fields := make(map[string]any, len(e.Fields))
			for k, v := range e.Fields {
				fields[k] = v
			}
			e.Fields = fields
		}
		out.Elements[i] = e
	}
	return out
}
