// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lti

import (
	"context"
	"strings"
	"time"

	"github.com/ManuGH/lticast/internal/index"
	"github.com/ManuGH/lticast/internal/metrics"
	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/telemetry"
)

// Job is the caller-facing view of an event created today.
type Job struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ListJobs returns the caller's events in the given series that were
// created since local midnight, in index order. Blank series filters are
// ignored.
func (s *Service) ListJobs(ctx context.Context, seriesName, seriesID string) (_ []Job, err error) {
	ctx, span := s.tracer.Start(ctx, "lti.list_jobs")
	defer func() { telemetry.EndSpan(span, err) }()

	user, err := security.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	events, err := s.index.Query(ctx, index.Query{
		Organization: user.Organization,
		Creator:      user.Username,
		SeriesID:     strings.TrimSpace(seriesID),
		SeriesName:   strings.TrimSpace(seriesName),
	})
	if err != nil {
		return nil, err
	}

	since := startOfDay(s.now())
	jobs := make([]Job, 0, len(events))
	for _, ev := range events {
		if !ev.Created.After(since) {
			continue
		}
		jobs = append(jobs, Job{Title: ev.Title, Status: ev.Status()})
	}
	metrics.ObserveJobsListed(len(jobs))
	return jobs, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
