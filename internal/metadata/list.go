// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metadata

import (
	"encoding/json"
	"slices"
)

// Lock is the edit state of an event's metadata.
type Lock string

const (
	Unlocked        Lock = "UNLOCKED"
	WorkflowRunning Lock = "WORKFLOW_RUNNING"
)

// Catalog is one adapter's collection inside a List.
type Catalog struct {
	Flavor     string     `json:"flavor"`
	Title      string     `json:"title"`
	Collection Collection `json:"fields"`
}

// List holds at most one collection per catalog flavor, in the order they
// were first added. Collections themselves are immutable; the list swaps them.
type List struct {
	order   []string
	entries map[string]Catalog
	lock    Lock
}

// NewList returns an empty, unlocked list.
func NewList() *List {
	return &List{entries: make(map[string]Catalog), lock: Unlocked}
}

// Add stores c under flavor, replacing an existing collection in place.
func (l *List) Add(flavor, title string, c Collection) {
	if _, exists := l.entries[flavor]; !exists {
		l.order = append(l.order, flavor)
	}
	l.entries[flavor] = Catalog{Flavor: flavor, Title: title, Collection: c}
}

// Collection returns the collection stored for flavor.
func (l *List) Collection(flavor string) (Collection, bool) {
	e, ok := l.entries[flavor]
	return e.Collection, ok
}

// Flavors returns the catalog flavors in insertion order.
func (l *List) Flavors() []string { return slices.Clone(l.order) }

// Catalogs returns the catalogs in insertion order.
func (l *List) Catalogs() []Catalog {
	out := make([]Catalog, 0, len(l.order))
	for _, f := range l.order {
		out = append(out, l.entries[f])
	}
	return out
}

// Len returns the number of catalogs.
func (l *List) Len() int { return len(l.order) }

// LockState returns the current edit state.
func (l *List) LockState() Lock { return l.lock }

// MarkWorkflowRunning locks the list. Once locked it stays locked.
func (l *List) MarkWorkflowRunning() { l.lock = WorkflowRunning }

// ApplyPayload applies p across all catalogs. A flat key updates the field in
// every catalog that defines it; unknown keys and flavors are ignored. No
// catalog changes unless all values validate.
func (l *List) ApplyPayload(p Payload) error {
	if l.lock == WorkflowRunning {
		return ErrLocked
	}
	updated := make(map[string]Collection, len(l.order))
	for _, flavor := range l.order {
		next, err := p.ApplyTo(flavor, l.entries[flavor].Collection)
		if err != nil {
			return err
		}
		updated[flavor] = next
	}
	for flavor, c := range updated {
		e := l.entries[flavor]
		e.Collection = c
		l.entries[flavor] = e
	}
	return nil
}

// FromJSON parses data with ParsePayload and applies it.
func (l *List) FromJSON(data []byte) error {
	p, err := ParsePayload(data)
	if err != nil {
		return err
	}
	return l.ApplyPayload(p)
}

// MarshalJSON renders the lock state and catalogs.
func (l *List) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Locked   Lock      `json:"locked"`
		Catalogs []Catalog `json:"catalogs"`
	}{Locked: l.lock, Catalogs: l.Catalogs()})
}
