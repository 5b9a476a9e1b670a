// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/lticast/internal/catalog"
	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/mediapackage"
	"github.com/ManuGH/lticast/internal/metadata"
	"github.com/ManuGH/lticast/internal/workflow"
)

// PackageRepository loads and stores media packages.
type PackageRepository interface {
	Get(ctx context.Context, id string) (*mediapackage.MediaPackage, error)
	Put(ctx context.Context, mp *mediapackage.MediaPackage) error
	Delete(ctx context.Context, id string) error
}

// Workflows starts and observes workflow instances.
type Workflows interface {
	Start(ctx context.Context, mediaPackageID, organization, creator string, params map[string]string) (workflow.Instance, error)
	AwaitTerminal(ctx context.Context, id string, interval time.Duration, onProgress func(workflow.Instance)) (workflow.Instance, error)
}

// SeriesTitles looks up series titles by identifier.
type SeriesTitles interface {
	Title(ctx context.Context, identifier string) (string, error)
}

// BlobStore removes stored element bytes.
type BlobStore interface {
	DeletePackage(mediaPackageID string) error
}

// Options wires a Service.
type Options struct {
	Store        *Store
	Packages     PackageRepository
	Workflows    Workflows
	Adapters     *catalog.Registry
	Series       SeriesTitles
	Blobs        BlobStore
	ActiveStates workflow.StateSet
	PollInterval time.Duration
}

// Service is the event index.
type Service struct {
	store     *Store
	packages  PackageRepository
	workflows Workflows
	adapters  *catalog.Registry
	series    SeriesTitles
	blobs     BlobStore
	active    workflow.StateSet
	poll      time.Duration
	logger    zerolog.Logger
}

// NewService returns an index service. ActiveStates defaults to
// workflow.ActiveStates and PollInterval to one second.
func NewService(opts Options) *Service {
	if opts.ActiveStates == nil {
		opts.ActiveStates = workflow.ActiveStates()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Service{
		store:     opts.Store,
		packages:  opts.Packages,
		workflows: opts.Workflows,
		adapters:  opts.Adapters,
		series:    opts.Series,
		blobs:     opts.Blobs,
		active:    opts.ActiveStates,
		poll:      opts.PollInterval,
		logger:    xglog.WithComponent("index"),
	}
}

// IndexPackage creates or refreshes the event for mp.
func (s *Service) IndexPackage(ctx context.Context, mp *mediapackage.MediaPackage, inst workflow.Instance) error {
	ev := Event{
		ID:             mp.ID,
		Organization:   inst.Organization,
		MediaPackageID: mp.ID,
		Creator:        inst.Creator,
		Created:        mp.Created,
		WorkflowID:     inst.ID,
		WorkflowState:  inst.State,
	}
	if existing, err := s.store.Get(ctx, mp.ID); err == nil {
		ev.Organization = existing.Organization
		ev.Creator = existing.Creator
		ev.Created = existing.Created
		ev.Published = existing.Published
	}
	if err := s.project(ctx, &ev, mp); err != nil {
		return err
	}
	if err := s.store.Upsert(ctx, ev); err != nil {
		return fmt.Errorf("index event %s: %w", ev.ID, err)
	}
	xglog.FromContext(ctx).Debug().
		Str(xglog.FieldEventID, ev.ID).
		Str(xglog.FieldWorkflowID, inst.ID).
		Msg("event indexed")
	return nil
}

// project copies the common catalog of mp onto ev.
func (s *Service) project(ctx context.Context, ev *Event, mp *mediapackage.MediaPackage) error {
	common, err := s.adapters.Common(ev.Organization)
	if err != nil {
		return err
	}
	fields, err := common.FieldsFor(mp)
	if err != nil {
		return err
	}
	values := catalog.StoredValues(fields)
	delete(values, "identifier")
	delete(values, "created")

	ev.Metadata = values
	ev.Title, _ = values["title"].(string)
	ev.SeriesID, _ = values["isPartOf"].(string)
	ev.SeriesName = ""
	if ev.SeriesID != "" && s.series != nil {
		title, err := s.series.Title(ctx, ev.SeriesID)
		if err != nil {
			xglog.FromContext(ctx).Debug().Err(err).Str(xglog.FieldSeriesID, ev.SeriesID).Msg("series title unavailable")
		}
		ev.SeriesName = title
	}
	return nil
}

// OnWorkflowTransition keeps the event's workflow state current. A
// successful workflow marks the event as published.
func (s *Service) OnWorkflowTransition(ctx context.Context, inst workflow.Instance) {
	published := inst.State == workflow.StateSucceeded
	found, err := s.store.SetWorkflow(ctx, inst.MediaPackageID, inst.ID, inst.State, published)
	if err != nil {
		s.logger.Error().Err(err).
			Str(xglog.FieldWorkflowID, inst.ID).
			Str(xglog.FieldMediaPackage, inst.MediaPackageID).
			Msg("failed to record workflow state on event")
		return
	}
	if found {
		s.logger.Debug().
			Str(xglog.FieldEventID, inst.MediaPackageID).
			Str(xglog.FieldNewState, string(inst.State)).
			Msg("event workflow state updated")
	}
}

// Query returns events matching q, newest first.
func (s *Service) Query(ctx context.Context, q Query) ([]Event, error) {
	q.SeriesID = strings.TrimSpace(q.SeriesID)
	q.SeriesName = strings.TrimSpace(q.SeriesName)
	return s.store.Find(ctx, q)
}

// GetEvent returns the event with id or ErrEventNotFound.
func (s *Service) GetEvent(ctx context.Context, id string) (Event, error) {
	return s.store.Get(ctx, id)
}

// EventMediaPackage loads the package behind ev.
func (s *Service) EventMediaPackage(ctx context.Context, ev Event) (*mediapackage.MediaPackage, error) {
	return s.packages.Get(ctx, ev.MediaPackageID)
}

// IsLocked reports whether ev's workflow forbids metadata edits.
func (s *Service) IsLocked(ev Event) bool {
	return s.active.Contains(ev.WorkflowState)
}

// EventMetadata builds the full metadata list of ev: every adapter of the
// event's organisation reads its catalog from the package.
func (s *Service) EventMetadata(ctx context.Context, ev Event) (*metadata.List, *mediapackage.MediaPackage, error) {
	mp, err := s.EventMediaPackage(ctx, ev)
	if err != nil {
		return nil, nil, err
	}
	list := metadata.NewList()
	for _, a := range s.adapters.ForOrganization(ev.Organization) {
		c, err := a.FieldsFor(mp)
		if err != nil {
			return nil, nil, err
		}
		list.Add(a.Flavor(), a.Title(), c)
	}
	if s.IsLocked(ev) {
		list.MarkWorkflowRunning()
	}
	return list, mp, nil
}

// UpdateEventMetadata writes every catalog of list onto the event's
// package and refreshes the projection.
func (s *Service) UpdateEventMetadata(ctx context.Context, id string, list *metadata.List) error {
	ev, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.IsLocked(ev) {
		return fmt.Errorf("%w: %s is %s", ErrEventLocked, id, ev.WorkflowState)
	}
	mp, err := s.EventMediaPackage(ctx, ev)
	if err != nil {
		return err
	}
	return s.write(ctx, ev, mp, list)
}

// UpdateAllEventMetadata applies a metadata document across all catalogs
// of the event.
func (s *Service) UpdateAllEventMetadata(ctx context.Context, id string, payload metadata.Payload) error {
	ev, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.IsLocked(ev) {
		return fmt.Errorf("%w: %s is %s", ErrEventLocked, id, ev.WorkflowState)
	}
	list, mp, err := s.EventMetadata(ctx, ev)
	if err != nil {
		return err
	}
	if err := list.ApplyPayload(payload); err != nil {
		return err
	}
	return s.write(ctx, ev, mp, list)
}

func (s *Service) write(ctx context.Context, ev Event, mp *mediapackage.MediaPackage, list *metadata.List) error {
	byFlavor := make(map[string]catalog.Adapter)
	for _, a := range s.adapters.ForOrganization(ev.Organization) {
		if _, seen := byFlavor[a.Flavor()]; !seen || a.IsCommon() {
			byFlavor[a.Flavor()] = a
		}
	}
	for _, cat := range list.Catalogs() {
		a, ok := byFlavor[cat.Flavor]
		if !ok {
			continue
		}
		a.StoreFields(mp, cat.Collection)
	}
	if err := s.packages.Put(ctx, mp); err != nil {
		return fmt.Errorf("store media package: %w", err)
	}
	if err := s.project(ctx, &ev, mp); err != nil {
		return err
	}
	return s.store.Upsert(ctx, ev)
}

// RemoveEvent retracts a published event and deletes it with its package.
// onProgress runs while the retraction workflow is still active.
func (s *Service) RemoveEvent(ctx context.Context, ev Event, onProgress func(), retractWorkflowID string) RemovalResult {
	logger := xglog.FromContext(ctx).With().Str(xglog.FieldEventID, ev.ID).Logger()

	if ev.Published {
		inst, err := s.workflows.Start(ctx, ev.MediaPackageID, ev.Organization, ev.Creator,
			map[string]string{workflow.DefinitionParameter: retractWorkflowID})
		if err != nil {
			logger.Error().Err(err).Msg("failed to start retraction")
			return RemovalGeneralFailure
		}
		final, err := s.workflows.AwaitTerminal(ctx, inst.ID, s.poll, func(workflow.Instance) {
			if onProgress != nil {
				onProgress()
			}
		})
		if err != nil {
			logger.Error().Err(err).Str(xglog.FieldWorkflowID, inst.ID).Msg("retraction did not finish")
			return RemovalGeneralFailure
		}
		if final.State != workflow.StateSucceeded {
			logger.Error().Str(xglog.FieldWorkflowID, inst.ID).Str("state", string(final.State)).Msg("retraction failed")
			return RemovalGeneralFailure
		}
	}

	if err := s.store.Delete(ctx, ev.ID); err != nil {
		logger.Error().Err(err).Msg("failed to delete event from index")
		return RemovalGeneralFailure
	}
	if err := s.packages.Delete(ctx, ev.MediaPackageID); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldMediaPackage, ev.MediaPackageID).Msg("failed to delete media package")
	}
	if s.blobs != nil {
		if err := s.blobs.DeletePackage(ev.MediaPackageID); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldMediaPackage, ev.MediaPackageID).Msg("failed to delete workspace files")
		}
	}
	return RemovalOK
}
