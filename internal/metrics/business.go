// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus instruments of the LTI service.
// Labels stay low-cardinality: no event, package or user ids.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lticast_uploads_total",
		Help: "Event uploads by outcome",
	}, []string{"outcome"}) // outcome=success|not_configured|failure

	uploadStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lticast_upload_step_duration_seconds",
		Help:    "Duration of each upload pipeline step",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"step", "outcome"})

	seriesResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lticast_series_resolutions_total",
		Help: "Series name resolutions by outcome",
	}, []string{"outcome"}) // outcome=resolved|not_found|ambiguous|malformed|error

	seriesCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lticast_series_cache_lookups_total",
		Help: "Series directory cache lookups by result",
	}, []string{"result"}) // result=hit|miss

	metadataUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lticast_metadata_updates_total",
		Help: "Event metadata updates by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=episode|full

	deletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lticast_event_deletions_total",
		Help: "Event deletions by outcome",
	}, []string{"outcome"}) // outcome=success|not_found|failure

	jobsListed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lticast_jobs_listed",
		Help:    "Number of jobs returned per listing",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	workflowTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lticast_workflow_transitions_total",
		Help: "Workflow state transitions by target state",
	}, []string{"state"})

	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lticast_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"})

	lastConfigReload = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lticast_config_last_reload_timestamp_seconds",
		Help: "Unix time of the last successful configuration reload",
	})
)

// RecordUpload counts a finished upload.
func RecordUpload(outcome string) {
	uploadsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUploadStep records how long a pipeline step took.
func ObserveUploadStep(step string, err error, d time.Duration) {
	uploadStepDuration.WithLabelValues(step, outcomeOf(err)).Observe(d.Seconds())
}

// RecordSeriesResolution counts a resolution attempt.
func RecordSeriesResolution(outcome string) {
	seriesResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordSeriesCache counts a directory cache lookup.
func RecordSeriesCache(hit bool) {
	if hit {
		seriesCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	seriesCacheTotal.WithLabelValues("miss").Inc()
}

// RecordMetadataUpdate counts a metadata write.
func RecordMetadataUpdate(kind string, err error) {
	metadataUpdatesTotal.WithLabelValues(kind, outcomeOf(err)).Inc()
}

// RecordDeletion counts a delete request.
func RecordDeletion(outcome string) {
	deletionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveJobsListed records a listing size.
func ObserveJobsListed(n int) {
	jobsListed.Observe(float64(n))
}

// RecordWorkflowTransition counts a workflow entering state.
func RecordWorkflowTransition(state string) {
	workflowTransitionsTotal.WithLabelValues(state).Inc()
}

// RecordConfigReload counts a reload attempt and stamps successful ones.
func RecordConfigReload(err error) {
	configReloadsTotal.WithLabelValues(outcomeOf(err)).Inc()
	if err == nil {
		lastConfigReload.SetToCurrentTime()
	}
}

func outcomeOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
