// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lti

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/mediapackage"
	"github.com/ManuGH/lticast/internal/metadata"
	"github.com/ManuGH/lticast/internal/metrics"
	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/telemetry"
)

const (
	captionsFilename = "captions.vtt"
	captionsMimeType = "text/vtt"
	captionsTag      = "lang:en"
	seriesField      = "isPartOf"
)

// Upload is one incoming recording. Captions holds WebVTT text; empty
// means the recording has none.
type Upload struct {
	Media      io.Reader
	SourceName string
	Captions   string
	SeriesID   string
	SeriesName string
	Metadata   metadata.Payload
}

// UpsertEvent updates the metadata of eventID when it is set and uploads a
// new event otherwise. It returns the event id.
func (s *Service) UpsertEvent(ctx context.Context, eventID string, u Upload) (string, error) {
	if id := strings.TrimSpace(eventID); id != "" {
		if err := s.UpdateEventMetadata(ctx, id, u.Metadata); err != nil {
			return "", err
		}
		return id, nil
	}
	return s.UploadEvent(ctx, u)
}

// UploadEvent builds a media package from u and submits it to the
// configured workflow. It returns the new event id.
//
// Configuration, identity and payload problems are reported before any
// collaborator is called. Failures after that are *UploadError values; the
// partially built package is left to the platform's cleanup.
func (s *Service) UploadEvent(ctx context.Context, u Upload) (id string, err error) {
	settings := s.settings.Load()
	ctx, span := s.tracer.Start(ctx, "lti.upload",
		trace.WithAttributes(telemetry.UploadAttributes(u.SeriesID, u.SeriesName, workflowOf(settings), u.Captions != "")...))
	defer func() { telemetry.EndSpan(span, err) }()

	logger := xglog.WithTraceContext(ctx).With().Str(xglog.FieldComponent, "lti").Logger()

	if !settings.Configured() {
		metrics.RecordUpload("not_configured")
		return "", ErrNotConfigured
	}
	user, err := security.RequireUser(ctx)
	if err != nil {
		metrics.RecordUpload("rejected")
		return "", err
	}
	if u.Media == nil {
		metrics.RecordUpload("rejected")
		return "", ErrMissingMedia
	}
	episode, err := s.adapters.Episode(user.Organization)
	if err != nil {
		metrics.RecordUpload("rejected")
		return "", err
	}
	if _, err := u.Metadata.ApplyTo(episode.Flavor(), episode.RawFields()); err != nil {
		metrics.RecordUpload("rejected")
		return "", err
	}

	p := &pipeline{svc: s, ctx: ctx}

	var mp *mediapackage.MediaPackage
	p.run(StepCreatePackage, func(ctx context.Context) error {
		created, err := s.ingest.CreateMediaPackage(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPackageCreation, err)
		}
		if created == nil {
			return ErrPackageCreation
		}
		mp = created
		p.mediaPackageID = mp.ID
		logger.Debug().Str(xglog.FieldEvent, "upload.package_created").Str(xglog.FieldMediaPackage, mp.ID).Msg("media package created")
		return nil
	})

	if u.Captions != "" {
		p.run(StepAttachCaptions, func(ctx context.Context) error {
			return s.attachCaptions(ctx, mp, u.Captions)
		})
	}

	seriesID := strings.TrimSpace(u.SeriesID)
	if seriesID == "" {
		p.run(StepResolveSeries, func(ctx context.Context) error {
			resolved, err := s.series.Resolve(ctx, u.SeriesName)
			if err != nil {
				return err
			}
			seriesID = resolved
			return nil
		})
	}

	var fields metadata.Collection
	p.run(StepMergeMetadata, func(context.Context) error {
		merged, err := u.Metadata.ApplyTo(episode.Flavor(), episode.RawFields())
		if err != nil {
			return err
		}
		fields, err = merged.Set(seriesField, seriesID)
		return err
	})

	p.run(StepStoreMetadata, func(context.Context) error {
		episode.StoreFields(mp, fields)
		return nil
	})

	p.run(StepAddTrack, func(ctx context.Context) error {
		withTrack, err := s.ingest.AddTrack(ctx, u.Media, u.SourceName, mediapackage.FlavorPresenterSource, mp)
		if err != nil {
			return err
		}
		mp = withTrack
		return nil
	})

	p.run(StepSubmit, func(ctx context.Context) error {
		inst, err := s.ingest.Ingest(ctx, mp, settings.parameters())
		if err != nil {
			return err
		}
		logger.Info().
			Str(xglog.FieldEvent, "upload.submitted").
			Str(xglog.FieldEventID, mp.ID).
			Str(xglog.FieldWorkflowID, inst.ID).
			Str(xglog.FieldSeriesID, seriesID).
			Str(xglog.FieldUser, user.Username).
			Msg("event uploaded")
		return nil
	})

	if p.err != nil {
		metrics.RecordUpload("failed")
		var uerr *UploadError
		if errors.As(p.err, &uerr) {
			logger.Error().Err(uerr.Err).
				Str(xglog.FieldEvent, "upload.failed").
				Str(xglog.FieldStep, uerr.Step).
				Str(xglog.FieldMediaPackage, uerr.MediaPackageID).
				Msg("upload aborted, media package left for cleanup")
		}
		return "", p.err
	}
	metrics.RecordUpload("success")
	return mp.ID, nil
}

func (s *Service) attachCaptions(ctx context.Context, mp *mediapackage.MediaPackage, captions string) error {
	el := mediapackage.NewElement(mediapackage.KindAttachment, mediapackage.FlavorCaptionsVTTEn)
	el.MimeType = captionsMimeType
	el.Tags = []string{captionsTag}
	el.Filename = captionsFilename

	uri, size, err := s.workspace.Put(ctx, mp.ID, el.ID, captionsFilename, strings.NewReader(captions))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCaptionAttach, err)
	}
	el.URI = uri
	el.Size = size
	mp.Add(el)
	return nil
}

// pipeline runs upload steps in order and stops at the first failure.
type pipeline struct {
	svc            *Service
	ctx            context.Context
	mediaPackageID string
	err            error
}

func (p *pipeline) run(step string, fn func(ctx context.Context) error) {
	if p.err != nil {
		return
	}
	ctx, span := p.svc.tracer.Start(p.ctx, "lti.upload."+step)
	start := time.Now()
	err := fn(ctx)
	metrics.ObserveUploadStep(step, err, time.Since(start))
	telemetry.EndSpan(span, err)
	if err != nil {
		p.err = &UploadError{Step: step, MediaPackageID: p.mediaPackageID, Err: err}
	}
}

func workflowOf(s *Settings) string {
	if s == nil {
		return ""
	}
	return s.Workflow
}
