// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/lticast/internal/metadata"
)

// Layouts used by the episode catalog.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Fields computed by the platform. They are dropped from the new-event template.
var ComputedFields = []string{"created", "duration", "identifier", "source", "startDate", "startTime", "location"}

var licenses = map[string]string{
	"ALLRIGHTS":   "EVENTS.LICENSE.ALLRIGHTS",
	"CC-BY":       "EVENTS.LICENSE.CCBY",
	"CC-BY-SA":    "EVENTS.LICENSE.CCBYSA",
	"CC-BY-ND":    "EVENTS.LICENSE.CCBYND",
	"CC-BY-NC":    "EVENTS.LICENSE.CCBYNC",
	"CC-BY-NC-SA": "EVENTS.LICENSE.CCBYNCSA",
	"CC-BY-NC-ND": "EVENTS.LICENSE.CCBYNCND",
	"CC0":         "EVENTS.LICENSE.CC0",
}

// EpisodeDefinition is the common Dublin Core episode adapter.
func EpisodeDefinition() Definition {
	return Definition{
		Flavor:       EpisodeFlavor,
		Organization: AnyOrganization,
		Title:        "EVENTS.EVENTS.DETAILS.CATALOG.EPISODE",
		Common:       true,
		Fields: []FieldSpec{
			{ID: "title", Label: "EVENTS.EVENTS.DETAILS.METADATA.TITLE", Type: metadata.TypeString, Required: true},
			{ID: "subject", Label: "EVENTS.EVENTS.DETAILS.METADATA.SUBJECT", Type: metadata.TypeStringList},
			{ID: "description", Label: "EVENTS.EVENTS.DETAILS.METADATA.DESCRIPTION", Type: metadata.TypeString},
			{ID: "language", Label: "EVENTS.EVENTS.DETAILS.METADATA.LANGUAGE", Type: metadata.TypeString},
			{ID: "rightsHolder", Label: "EVENTS.EVENTS.DETAILS.METADATA.RIGHTS", Type: metadata.TypeString},
			{ID: "license", Label: "EVENTS.EVENTS.DETAILS.METADATA.LICENSE", Type: metadata.TypeEnum, Collection: licenses},
			{ID: "isPartOf", Label: "EVENTS.EVENTS.DETAILS.METADATA.SERIES", Type: metadata.TypeString},
			{ID: "creator", Label: "EVENTS.EVENTS.DETAILS.METADATA.PRESENTERS", Type: metadata.TypeStringList},
			{ID: "contributor", Label: "EVENTS.EVENTS.DETAILS.METADATA.CONTRIBUTORS", Type: metadata.TypeStringList},
			{ID: "publisher", Label: "EVENTS.EVENTS.DETAILS.METADATA.PUBLISHER", Type: metadata.TypeString},
			{ID: "startDate", Label: "EVENTS.EVENTS.DETAILS.METADATA.START_DATE", Type: metadata.TypeDate, Pattern: DateLayout},
			{ID: "startTime", Label: "EVENTS.EVENTS.DETAILS.METADATA.START_TIME", Type: metadata.TypeDate, Pattern: TimeLayout},
			{ID: "duration", Label: "EVENTS.EVENTS.DETAILS.METADATA.DURATION", Type: metadata.TypeNumber, ReadOnly: true},
			{ID: "location", Label: "EVENTS.EVENTS.DETAILS.METADATA.LOCATION", Type: metadata.TypeString},
			{ID: "source", Label: "EVENTS.EVENTS.DETAILS.METADATA.SOURCE", Type: metadata.TypeString},
			{ID: "created", Label: "EVENTS.EVENTS.DETAILS.METADATA.CREATED", Type: metadata.TypeDate, ReadOnly: true},
			{ID: "identifier", Label: "EVENTS.EVENTS.DETAILS.METADATA.ID", Type: metadata.TypeString, ReadOnly: true},
		},
	}
}

type definitionsFile struct {
	Adapters []Definition `yaml:"adapters"`
}

// LoadDefinitions reads extra adapter definitions from a YAML file with a
// top-level "adapters" list. Unknown keys are rejected.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog definitions: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file definitionsFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse catalog definitions %s: %w", path, err)
	}
	return file.Adapters, nil
}

// DefaultRegistry registers the episode adapter plus extra.
func DefaultRegistry(extra ...Definition) (*Registry, error) {
	return NewRegistry(append([]Definition{EpisodeDefinition()}, extra...)...)
}
