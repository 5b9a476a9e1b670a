// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on LTI spans.
const (
	EventIDKey      = "lti.event_id"
	MediaPackageKey = "lti.mediapackage_id"
	SeriesIDKey     = "lti.series_id"
	SeriesNameKey   = "lti.series_name"
	UploadStepKey   = "lti.upload.step"
	WorkflowKey     = "lti.workflow"
	OrganizationKey = "lti.organization"
	JobsCountKey    = "lti.jobs.count"
	ErrorTypeKey    = "error.type"
)

// UploadAttributes describes an upload request. Empty values are skipped.
func UploadAttributes(seriesID, seriesName, workflow string, hasCaptions bool) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if seriesID != "" {
		attrs = append(attrs, attribute.String(SeriesIDKey, seriesID))
	}
	if seriesName != "" {
		attrs = append(attrs, attribute.String(SeriesNameKey, seriesName))
	}
	if workflow != "" {
		attrs = append(attrs, attribute.String(WorkflowKey, workflow))
	}
	return append(attrs, attribute.Bool("lti.upload.captions", hasCaptions))
}

// EventAttributes identifies the event an operation targets.
func EventAttributes(eventID, organization string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(EventIDKey, eventID)}
	if organization != "" {
		attrs = append(attrs, attribute.String(OrganizationKey, organization))
	}
	return attrs
}

// ErrorAttributes classifies a failure.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool("error", true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
