// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("workflow instance not found")
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrNoDefinition      = errors.New("workflow definition id is empty")
)

// DefinitionParameter is the parameter naming the workflow definition.
const DefinitionParameter = "workflowDefinitionId"

// Instance is one run of a workflow definition over a media package.
type Instance struct {
	ID             string
	DefinitionID   string
	MediaPackageID string
	Organization   string
	Creator        string
	State          State
	Parameters     map[string]string
	Created        time.Time
	Updated        time.Time
}

// Terminal reports whether the instance has finished.
func (i Instance) Terminal() bool { return TerminalStates().Contains(i.State) }
