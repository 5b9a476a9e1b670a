// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoAdapter is returned when an organisation has no adapter for a role.
var ErrNoAdapter = errors.New("no catalog adapter registered")

// EpisodeFlavor is the flavor of the episode-level Dublin Core catalog.
const EpisodeFlavor = "dublincore/episode"

// AnyOrganization scopes a definition to every organisation.
const AnyOrganization = "*"

// Registry holds adapters keyed by organisation and flavor.
type Registry struct {
	mu       sync.RWMutex
	adapters []Adapter
}

// NewRegistry validates and registers defs.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds def. A second definition for the same organisation and
// flavor, or a second common adapter for one organisation, is rejected.
func (r *Registry) Register(def Definition) error {
	if def.Organization == "" {
		def.Organization = AnyOrganization
	}
	a, err := newAdapter(def)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.adapters {
		if existing.def.Organization != def.Organization {
			continue
		}
		if existing.def.Flavor == def.Flavor && existing.def.Common == def.Common {
			return fmt.Errorf("catalog adapter %s already registered for %s", def.Flavor, def.Organization)
		}
		if existing.def.Common && def.Common {
			return fmt.Errorf("organisation %s already has a common adapter", def.Organization)
		}
	}
	r.adapters = append(r.adapters, a)
	return nil
}

// ForOrganization returns the adapters visible to org in registration
// order. Organisation-specific adapters hide wildcard adapters of the same
// flavor and role.
func (r *Registry) ForOrganization(org string) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct {
		flavor string
		common bool
	}
	specific := make(map[key]bool)
	for _, a := range r.adapters {
		if a.def.Organization == org {
			specific[key{a.def.Flavor, a.def.Common}] = true
		}
	}

	var out []Adapter
	for _, a := range r.adapters {
		switch {
		case a.def.Organization == org:
			out = append(out, a)
		case a.def.Organization == AnyOrganization && !specific[key{a.def.Flavor, a.def.Common}]:
			if a.def.Common && hasCommon(r.adapters, org) {
				continue
			}
			out = append(out, a)
		}
	}
	return out
}

func hasCommon(adapters []Adapter, org string) bool {
	for _, a := range adapters {
		if a.def.Organization == org && a.def.Common {
			return true
		}
	}
	return false
}

// Common returns the event index's own adapter for org.
func (r *Registry) Common(org string) (Adapter, error) {
	for _, a := range r.ForOrganization(org) {
		if a.def.Common {
			return a, nil
		}
	}
	return Adapter{}, fmt.Errorf("%w: common adapter for %s", ErrNoAdapter, org)
}

// Episode returns the episode catalog adapter for org, preferring the
// common adapter when it carries the episode flavor.
func (r *Registry) Episode(org string) (Adapter, error) {
	var fallback *Adapter
	for _, a := range r.ForOrganization(org) {
		if a.def.Flavor != EpisodeFlavor {
			continue
		}
		if a.def.Common {
			return a, nil
		}
		if fallback == nil {
			a := a
			fallback = &a
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return Adapter{}, fmt.Errorf("%w: %s for %s", ErrNoAdapter, EpisodeFlavor, org)
}
