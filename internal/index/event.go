// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package index keeps the searchable projection of events: one row per
// ingested media package with its common metadata and current workflow state.
package index

import (
	"errors"
	"maps"
	"time"

	"github.com/ManuGH/lticast/internal/workflow"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventLocked   = errors.New("event metadata is locked by a running workflow")
)

// Event statuses exposed to clients.
const (
	StatusIngesting  = "EVENTS.EVENTS.STATUS.INGESTING"
	StatusPending    = "EVENTS.EVENTS.STATUS.PENDING"
	StatusProcessing = "EVENTS.EVENTS.STATUS.PROCESSING"
	StatusPaused     = "EVENTS.EVENTS.STATUS.PAUSED"
	StatusProcessed  = "EVENTS.EVENTS.STATUS.PROCESSED"
	StatusFailed     = "EVENTS.EVENTS.STATUS.PROCESSING_FAILURE"
	StatusCancelled  = "EVENTS.EVENTS.STATUS.PROCESSING_CANCELED"
)

// Event is the indexed projection of one media package.
type Event struct {
	ID             string
	Organization   string
	MediaPackageID string
	Title          string
	SeriesID       string
	SeriesName     string
	Creator        string
	Created        time.Time
	WorkflowID     string
	WorkflowState  workflow.State
	Published      bool
	Metadata       map[string]any
}

// Status maps the workflow state to a client status key.
func (e Event) Status() string {
	switch e.WorkflowState {
	case workflow.StateInstantiated:
		return StatusPending
	case workflow.StateRunning, workflow.StateFailing:
		return StatusProcessing
	case workflow.StatePaused:
		return StatusPaused
	case workflow.StateSucceeded:
		return StatusProcessed
	case workflow.StateFailed:
		return StatusFailed
	case workflow.StateStopped:
		return StatusCancelled
	}
	return StatusIngesting
}

// CommonValues returns the stored common catalog values plus the fields the
// index derives itself.
func (e Event) CommonValues() map[string]any {
	out := maps.Clone(e.Metadata)
	if out == nil {
		out = make(map[string]any)
	}
	out["identifier"] = e.ID
	out["created"] = e.Created.UTC().Format(time.RFC3339)
	if e.SeriesID != "" {
		out["isPartOf"] = e.SeriesID
	}
	return out
}

// Query selects events. Empty fields do not filter.
type Query struct {
	Organization string
	Creator      string
	SeriesID     string
	SeriesName   string
}

// RemovalResult is the outcome of RemoveEvent.
type RemovalResult string

const (
	RemovalOK             RemovalResult = "OK"
	RemovalGeneralFailure RemovalResult = "GENERAL_FAILURE"
)
