// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package lti implements the LTI tool surface: uploading events, reading
// and editing their metadata, deleting them and listing the caller's jobs.
// All state lives in the collaborators; the service only orchestrates.
package lti

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/lticast/internal/catalog"
	"github.com/ManuGH/lticast/internal/index"
	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/mediapackage"
	"github.com/ManuGH/lticast/internal/metadata"
	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/telemetry"
	"github.com/ManuGH/lticast/internal/workflow"
)

// Ingester creates packages and submits them for processing.
type Ingester interface {
	CreateMediaPackage(ctx context.Context) (*mediapackage.MediaPackage, error)
	AddTrack(ctx context.Context, r io.Reader, filename string, flavor mediapackage.Flavor, mp *mediapackage.MediaPackage) (*mediapackage.MediaPackage, error)
	Ingest(ctx context.Context, mp *mediapackage.MediaPackage, params map[string]string) (workflow.Instance, error)
}

// Workspace stores element bytes and returns their location.
type Workspace interface {
	Put(ctx context.Context, mediaPackageID, elementID, filename string, r io.Reader) (string, int64, error)
}

// SeriesResolver maps a series title to its identifier.
type SeriesResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// EventIndex is the searchable event projection.
type EventIndex interface {
	Query(ctx context.Context, q index.Query) ([]index.Event, error)
	GetEvent(ctx context.Context, id string) (index.Event, error)
	EventMediaPackage(ctx context.Context, ev index.Event) (*mediapackage.MediaPackage, error)
	UpdateEventMetadata(ctx context.Context, id string, list *metadata.List) error
	UpdateAllEventMetadata(ctx context.Context, id string, payload metadata.Payload) error
	RemoveEvent(ctx context.Context, ev index.Event, onProgress func(), retractWorkflowID string) index.RemovalResult
}

// Adapters resolves the catalog adapters visible to an organisation.
type Adapters interface {
	ForOrganization(org string) []catalog.Adapter
	Common(org string) (catalog.Adapter, error)
	Episode(org string) (catalog.Adapter, error)
}

// Options wires a Service. Settings may be nil; uploads then fail with
// ErrNotConfigured until Updated succeeds.
type Options struct {
	Ingest       Ingester
	Workspace    Workspace
	Series       SeriesResolver
	Index        EventIndex
	Adapters     Adapters
	ActiveStates workflow.StateSet
	Settings     *Settings
	Now          func() time.Time
}

// Service orchestrates the LTI operations.
type Service struct {
	ingest    Ingester
	workspace Workspace
	series    SeriesResolver
	index     EventIndex
	adapters  Adapters
	active    workflow.StateSet
	settings  atomic.Pointer[Settings]
	now       func() time.Time
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewService returns a Service. ActiveStates defaults to
// workflow.ActiveStates.
func NewService(opts Options) *Service {
	if opts.ActiveStates == nil {
		opts.ActiveStates = workflow.ActiveStates()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Service{
		ingest:    opts.Ingest,
		workspace: opts.Workspace,
		series:    opts.Series,
		index:     opts.Index,
		adapters:  opts.Adapters,
		active:    opts.ActiveStates,
		now:       opts.Now,
		tracer:    telemetry.Tracer("lticast/lti"),
		logger:    xglog.WithComponent("lti"),
	}
	if opts.Settings != nil {
		snapshot := *opts.Settings
		s.settings.Store(&snapshot)
	}
	return s
}

// Updated validates props and makes them the settings for subsequent
// requests. On error the previous settings stay in effect.
func (s *Service) Updated(props map[string]string) error {
	next, err := ParseSettings(props)
	if err != nil {
		s.logger.Error().Err(err).Str(xglog.FieldEvent, "lti.config_rejected").Msg("invalid lti configuration")
		return err
	}
	s.settings.Store(&next)
	s.logger.Info().
		Str(xglog.FieldEvent, "lti.configured").
		Str("workflow", next.Workflow).
		Str("retract_workflow", next.RetractWorkflowID).
		Msg("lti configuration applied")
	return nil
}

// Settings returns the current settings snapshot, or nil.
func (s *Service) Settings() *Settings {
	return s.settings.Load()
}

// event loads id and checks it belongs to the caller's organisation.
func (s *Service) event(ctx context.Context, id string) (index.Event, error) {
	user, err := security.RequireUser(ctx)
	if err != nil {
		return index.Event{}, err
	}
	ev, err := s.index.GetEvent(ctx, id)
	if errors.Is(err, index.ErrEventNotFound) {
		return index.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err != nil {
		return index.Event{}, fmt.Errorf("load event %s: %w", id, err)
	}
	if ev.Organization != user.Organization {
		return index.Event{}, fmt.Errorf("%w: event %s", security.ErrNotAuthorized, id)
	}
	return ev, nil
}
