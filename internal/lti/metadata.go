// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lti

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/lticast/internal/catalog"
	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/metadata"
	"github.com/ManuGH/lticast/internal/metrics"
	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/telemetry"
)

const publisherField = "publisher"

// UpdateEventMetadata merges payload into the episode catalog of the event
// and hands the result to the index, which refuses it while a workflow is
// active.
func (s *Service) UpdateEventMetadata(ctx context.Context, eventID string, payload metadata.Payload) (err error) {
	ctx, span := s.tracer.Start(ctx, "lti.update_metadata",
		trace.WithAttributes(telemetry.EventAttributes(eventID, security.OrganizationFromContext(ctx))...))
	defer func() {
		metrics.RecordMetadataUpdate("episode", err)
		telemetry.EndSpan(span, err)
	}()

	ev, err := s.event(ctx, eventID)
	if err != nil {
		return err
	}
	episode, err := s.adapters.Episode(ev.Organization)
	if err != nil {
		return err
	}
	mp, err := s.index.EventMediaPackage(ctx, ev)
	if err != nil {
		return fmt.Errorf("load media package of %s: %w", eventID, err)
	}
	current, err := episode.FieldsFor(mp)
	if err != nil {
		return err
	}
	merged, err := payload.ApplyTo(episode.Flavor(), current)
	if err != nil {
		return err
	}

	list := metadata.NewList()
	list.Add(episode.Flavor(), episode.Title(), merged)
	if err := s.index.UpdateEventMetadata(ctx, eventID, list); err != nil {
		return err
	}
	xglog.FromContext(ctx).Info().
		Str(xglog.FieldEvent, "event.metadata_updated").
		Str(xglog.FieldEventID, eventID).
		Str(xglog.FieldFlavor, episode.Flavor()).
		Msg("event metadata updated")
	return nil
}

// GetEventMetadata returns every catalog of the event. The common catalog
// is built from the index projection and comes last. The list is locked
// while the event's workflow is active.
func (s *Service) GetEventMetadata(ctx context.Context, eventID string) (_ *metadata.List, err error) {
	ctx, span := s.tracer.Start(ctx, "lti.get_metadata",
		trace.WithAttributes(telemetry.EventAttributes(eventID, security.OrganizationFromContext(ctx))...))
	defer func() { telemetry.EndSpan(span, err) }()

	ev, err := s.event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	mp, err := s.index.EventMediaPackage(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("load media package of %s: %w", eventID, err)
	}

	list := metadata.NewList()
	for _, a := range s.adapters.ForOrganization(ev.Organization) {
		if a.IsCommon() {
			continue
		}
		c, err := a.FieldsFor(mp)
		if err != nil {
			return nil, err
		}
		list.Add(a.Flavor(), a.Title(), c)
	}

	common, err := s.adapters.Common(ev.Organization)
	if err != nil {
		return nil, err
	}
	fields, err := common.FieldsFrom(ev.CommonValues())
	if err != nil {
		return nil, err
	}
	list.Add(common.Flavor(), common.Title(), fields)

	if s.active.Contains(ev.WorkflowState) {
		list.MarkWorkflowRunning()
	}
	return list, nil
}

// GetNewEventMetadata returns the empty catalogs a new event starts from.
// Fields the platform computes are left out of the common catalog, and the
// publisher defaults to the caller.
func (s *Service) GetNewEventMetadata(ctx context.Context) (*metadata.List, error) {
	user, err := security.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	list := metadata.NewList()
	for _, a := range s.adapters.ForOrganization(user.Organization) {
		c := a.RawFields()
		if a.IsCommon() {
			c, err = newEventCommon(c, user)
			if err != nil {
				return nil, fmt.Errorf("catalog %s: %w", a.Flavor(), err)
			}
		}
		list.Add(a.Flavor(), a.Title(), c)
	}
	return list, nil
}

func newEventCommon(c metadata.Collection, user security.User) (metadata.Collection, error) {
	for _, id := range catalog.ComputedFields {
		c = c.Remove(id)
	}
	publisher, ok := c.Field(publisherField)
	if !ok {
		return c, nil
	}
	name := user.DisplayName()
	allowed := publisher.Collection()
	if allowed == nil {
		allowed = make(map[string]string, 1)
	}
	if _, ok := allowed[name]; !ok {
		allowed[name] = name
	}
	publisher, err := publisher.WithAllowedValues(allowed).WithValue(name)
	if err != nil {
		return c, err
	}
	return c.With(publisher), nil
}

// SetEventMetadataJSON applies a complete metadata document, flat or per
// catalog, across all catalogs of the event.
func (s *Service) SetEventMetadataJSON(ctx context.Context, eventID string, data []byte) (err error) {
	ctx, span := s.tracer.Start(ctx, "lti.set_metadata",
		trace.WithAttributes(telemetry.EventAttributes(eventID, security.OrganizationFromContext(ctx))...))
	defer func() {
		metrics.RecordMetadataUpdate("all", err)
		telemetry.EndSpan(span, err)
	}()

	if _, err := s.event(ctx, eventID); err != nil {
		return err
	}
	payload, err := metadata.ParsePayload(data)
	if err != nil {
		return err
	}
	if err := s.index.UpdateAllEventMetadata(ctx, eventID, payload); err != nil {
		return err
	}
	xglog.FromContext(ctx).Info().
		Str(xglog.FieldEvent, "event.metadata_replaced").
		Str(xglog.FieldEventID, eventID).
		Msg("event metadata updated")
	return nil
}
