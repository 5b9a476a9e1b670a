// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lti

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/lticast/internal/index"
	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/metrics"
	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/telemetry"
)

// DeleteEvent removes the event through the index, retracting its
// publications with the configured retraction workflow first.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "lti.delete",
		trace.WithAttributes(telemetry.EventAttributes(eventID, security.OrganizationFromContext(ctx))...))
	defer func() { telemetry.EndSpan(span, err) }()

	logger := xglog.FromContext(ctx).With().Str(xglog.FieldEventID, eventID).Logger()

	ev, err := s.event(ctx, eventID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			metrics.RecordDeletion("not_found")
		case errors.Is(err, security.ErrNotAuthorized):
			metrics.RecordDeletion("forbidden")
		default:
			metrics.RecordDeletion("error")
		}
		return err
	}

	retract := DefaultRetractWorkflowID
	if settings := s.settings.Load(); settings != nil && settings.RetractWorkflowID != "" {
		retract = settings.RetractWorkflowID
	}

	result := s.index.RemoveEvent(ctx, ev, func() {
		logger.Debug().Str(xglog.FieldEvent, "event.retraction_pending").Msg("waiting for retraction")
	}, retract)
	if result == index.RemovalGeneralFailure {
		metrics.RecordDeletion("failed")
		logger.Error().Str(xglog.FieldEvent, "event.delete_failed").Str("retract_workflow", retract).Msg("event removal failed")
		return fmt.Errorf("%w: %s", ErrDeletionFailed, eventID)
	}
	metrics.RecordDeletion("deleted")
	logger.Info().Str(xglog.FieldEvent, "event.deleted").Msg("event deleted")
	return nil
}
