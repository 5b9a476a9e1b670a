// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ingest creates media packages, stores their tracks and hands
// finished packages to the workflow service.
package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/mediapackage"
	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/workflow"
)

// Storage persists element bytes.
type Storage interface {
	Put(ctx context.Context, mediaPackageID, elementID, filename string, r io.Reader) (string, int64, error)
}

// WorkflowStarter starts processing for a package.
type WorkflowStarter interface {
	Start(ctx context.Context, mediaPackageID, organization, creator string, params map[string]string) (workflow.Instance, error)
}

// Indexer projects an ingested package into the event index.
type Indexer interface {
	IndexPackage(ctx context.Context, mp *mediapackage.MediaPackage, inst workflow.Instance) error
}

// Service is the ingest endpoint.
type Service struct {
	packages  *PackageStore
	storage   Storage
	workflows WorkflowStarter
	indexer   Indexer
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService wires the ingest endpoint.
func NewService(packages *PackageStore, storage Storage, workflows WorkflowStarter, indexer Indexer) *Service {
	return &Service{
		packages:  packages,
		storage:   storage,
		workflows: workflows,
		indexer:   indexer,
		now:       time.Now,
		logger:    xglog.WithComponent("ingest"),
	}
}

// CreateMediaPackage creates and persists an empty package.
func (s *Service) CreateMediaPackage(ctx context.Context) (*mediapackage.MediaPackage, error) {
	mp := mediapackage.New(s.now())
	if err := s.packages.Put(ctx, mp); err != nil {
		return nil, fmt.Errorf("persist media package: %w", err)
	}
	s.logger.Debug().Str(xglog.FieldMediaPackage, mp.ID).Msg("media package created")
	return mp, nil
}

// AddTrack stores r as a track of mp and returns the updated package.
// The caller's package is not modified.
func (s *Service) AddTrack(ctx context.Context, r io.Reader, filename string, flavor mediapackage.Flavor, mp *mediapackage.MediaPackage) (*mediapackage.MediaPackage, error) {
	filename = trackFilename(filename)

	el := mediapackage.NewElement(mediapackage.KindTrack, flavor)
	el.Filename = filename
	el.MimeType = mimeTypeFor(filename)

	uri, size, err := s.storage.Put(ctx, mp.ID, el.ID, filename, r)
	if err != nil {
		return nil, fmt.Errorf("store track: %w", err)
	}
	el.URI = uri
	el.Size = size

	out := mp.Clone()
	out.Add(el)
	if err := s.packages.Put(ctx, out); err != nil {
		return nil, fmt.Errorf("persist media package: %w", err)
	}
	xglog.FromContext(ctx).Info().
		Str(xglog.FieldEvent, "ingest.track_added").
		Str(xglog.FieldMediaPackage, mp.ID).
		Str(xglog.FieldFlavor, flavor.String()).
		Int64("bytes", size).
		Msg("track added")
	return out, nil
}

// Ingest persists the final package, starts the workflow named in params
// and indexes the resulting event. The caller identity on ctx becomes the
// event's organisation and creator.
func (s *Service) Ingest(ctx context.Context, mp *mediapackage.MediaPackage, params map[string]string) (workflow.Instance, error) {
	user, err := security.RequireUser(ctx)
	if err != nil {
		return workflow.Instance{}, err
	}
	if err := s.packages.Put(ctx, mp); err != nil {
		return workflow.Instance{}, fmt.Errorf("persist media package: %w", err)
	}
	inst, err := s.workflows.Start(ctx, mp.ID, user.Organization, user.Username, params)
	if err != nil {
		return workflow.Instance{}, fmt.Errorf("start workflow: %w", err)
	}
	if err := s.indexer.IndexPackage(ctx, mp, inst); err != nil {
		return inst, fmt.Errorf("index event: %w", err)
	}
	xglog.FromContext(ctx).Info().
		Str(xglog.FieldEvent, "ingest.submitted").
		Str(xglog.FieldMediaPackage, mp.ID).
		Str(xglog.FieldWorkflowID, inst.ID).
		Str("definition", inst.DefinitionID).
		Int("tracks", len(mp.Tracks())).
		Int("attachments", len(mp.Attachments())).
		Msg("media package ingested")
	return inst, nil
}

// trackFilename reduces a client supplied name to its last path element.
// Browsers on Windows may send the full path with backslashes.
func trackFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "track"
	}
	return name
}

// Media types missing from the built-in mime table on minimal hosts.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".vtt":  "text/vtt",
}

func mimeTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
