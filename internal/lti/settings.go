// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lti

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// Property names accepted by Updated.
const (
	PropWorkflow              = "workflow"
	PropWorkflowConfiguration = "workflow-configuration"
	PropRetractWorkflowID     = "retract-workflow-id"
)

// DefaultRetractWorkflowID is used when no retraction workflow is configured.
const DefaultRetractWorkflowID = "retract"

// Settings is the workflow configuration every upload captures.
type Settings struct {
	Workflow              string
	WorkflowConfiguration map[string]string
	RetractWorkflowID     string
}

// Configured reports whether uploads can be accepted.
func (s *Settings) Configured() bool {
	return s != nil && s.Workflow != "" && s.WorkflowConfiguration != nil
}

// parameters returns the submission parameters: the configuration template
// plus the workflow definition id.
func (s *Settings) parameters() map[string]string {
	params := maps.Clone(s.WorkflowConfiguration)
	if params == nil {
		params = make(map[string]string, 1)
	}
	params["workflowDefinitionId"] = s.Workflow
	return params
}

// ParseSettings validates raw properties. The workflow and a JSON object
// workflow configuration are required.
func ParseSettings(props map[string]string) (Settings, error) {
	if props == nil {
		return Settings{}, fmt.Errorf("%w: no configuration specified", ErrNotConfigured)
	}
	workflow := strings.TrimSpace(props[PropWorkflow])
	if workflow == "" {
		return Settings{}, fmt.Errorf("%w: missing %q", ErrNotConfigured, PropWorkflow)
	}
	rawConfig, ok := props[PropWorkflowConfiguration]
	if !ok {
		return Settings{}, fmt.Errorf("%w: missing %q", ErrNotConfigured, PropWorkflowConfiguration)
	}
	config, err := parseWorkflowConfiguration(rawConfig)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: invalid %q: %v", ErrNotConfigured, PropWorkflowConfiguration, err)
	}
	retract := strings.TrimSpace(props[PropRetractWorkflowID])
	if retract == "" {
		retract = DefaultRetractWorkflowID
	}
	return Settings{Workflow: workflow, WorkflowConfiguration: config, RetractWorkflowID: retract}, nil
}

// parseWorkflowConfiguration decodes a JSON object. Scalar values are kept
// in their JSON text form; nested objects and arrays are rejected.
func parseWorkflowConfiguration(raw string) (map[string]string, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		case bool:
			if t {
				out[k] = "true"
			} else {
				out[k] = "false"
			}
		case nil:
			out[k] = ""
		default:
			return nil, fmt.Errorf("value of %q must be a scalar, got %v", k, v)
		}
	}
	return out, nil
}
