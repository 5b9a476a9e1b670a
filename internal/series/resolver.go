// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package series

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/metrics"
	"github.com/ManuGH/lticast/internal/security"
)

// Directory looks up series by exact title.
type Directory interface {
	FindByTitle(ctx context.Context, title string) ([]Record, error)
}

// Resolver maps a series title to its canonical identifier. It never picks
// one of several candidates.
type Resolver struct {
	dir   Directory
	group singleflight.Group
}

// NewResolver returns a Resolver over dir.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns the identifier of the single series titled name.
// Concurrent resolutions of the same title within one organisation share a
// directory query.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	title := NormalizeTitle(name)
	logger := xglog.FromContext(ctx).With().
		Str(xglog.FieldComponent, "series").
		Str(xglog.FieldSeriesName, title).
		Logger()

	if title == "" {
		metrics.RecordSeriesResolution("not_found")
		return "", fmt.Errorf("%w: empty series name", ErrSeriesNotFound)
	}

	records, err := r.find(ctx, title)
	if err != nil {
		metrics.RecordSeriesResolution("error")
		return "", fmt.Errorf("query series directory: %w", err)
	}

	id, err := pick(title, records)
	if err != nil {
		metrics.RecordSeriesResolution(outcome(err))
		logger.Warn().Err(err).Str(xglog.FieldEvent, "series.resolve_failed").Msg("series resolution failed")
		return "", err
	}
	metrics.RecordSeriesResolution("resolved")
	logger.Debug().Str(xglog.FieldEvent, "series.resolved").Str(xglog.FieldSeriesID, id).Msg("series resolved")
	return id, nil
}

// find runs one shared directory query per organisation and title. The
// query is detached from the cancellation of whichever caller started it;
// each caller still stops waiting when its own ctx ends.
func (r *Resolver) find(ctx context.Context, title string) ([]Record, error) {
	key := security.OrganizationFromContext(ctx) + "\x00" + title
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.dir.FindByTitle(shared, title)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Record), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func pick(title string, records []Record) (string, error) {
	switch len(records) {
	case 0:
		return "", fmt.Errorf("%w: %q", ErrSeriesNotFound, title)
	case 1:
	default:
		return "", fmt.Errorf("%w: %d series titled %q", ErrAmbiguousSeries, len(records), title)
	}
	ids := records[0].Identifiers
	if len(ids) != 1 {
		return "", fmt.Errorf("%w: series %q has %d identifiers", ErrMalformedSeriesRecord, title, len(ids))
	}
	return ids[0], nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrSeriesNotFound):
		return "not_found"
	case errors.Is(err, ErrAmbiguousSeries):
		return "ambiguous"
	case errors.Is(err, ErrMalformedSeriesRecord):
		return "malformed"
	}
	return "error"
}
