// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mediapackage

import (
	"fmt"
	"strings"
)

// Flavor describes what an element is, as "type/subtype".
type Flavor struct {
	Type    string
	Subtype string
}

var (
	FlavorPresenterSource = Flavor{Type: "presenter", Subtype: "source"}
	FlavorCaptionsVTTEn   = Flavor{Type: "vtt+en", Subtype: "captions"}
	FlavorEpisodeCatalog  = Flavor{Type: "dublincore", Subtype: "episode"}
)

// ParseFlavor parses "type/subtype".
func ParseFlavor(s string) (Flavor, error) {
	typ, sub, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || typ == "" || sub == "" || strings.Contains(sub, "/") {
		return Flavor{}, fmt.Errorf("invalid flavor %q", s)
	}
	return Flavor{Type: typ, Subtype: sub}, nil
}

// MustParseFlavor is ParseFlavor for constants.
func MustParseFlavor(s string) Flavor {
	f, err := ParseFlavor(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Flavor) String() string { return f.Type + "/" + f.Subtype }

func (f Flavor) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Flavor) UnmarshalText(b []byte) error {
	parsed, err := ParseFlavor(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
