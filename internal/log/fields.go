// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldEventID       = "event_id"
	FieldMediaPackage  = "mediapackage_id"
	FieldSeriesID      = "series_id"
	FieldSeriesName    = "series_name"
	FieldWorkflowID    = "workflow_id"
	FieldUser          = "user"
	FieldOrganization  = "organization"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStep      = "step"
	FieldFlavor    = "flavor"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath = "path"
	FieldURI  = "uri"
)
