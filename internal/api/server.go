// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the LTI service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/lticast/internal/api/middleware"
	"github.com/ManuGH/lticast/internal/config"
	"github.com/ManuGH/lticast/internal/lti"
	"github.com/ManuGH/lticast/internal/metadata"
)

// BasePath is where the LMS front end mounts the service.
const BasePath = "/lti-service-gui"

// LTI is the operation set served by the HTTP surface. *lti.Service
// implements it.
type LTI interface {
	ListJobs(ctx context.Context, seriesName, seriesID string) ([]lti.Job, error)
	UpsertEvent(ctx context.Context, eventID string, u lti.Upload) (string, error)
	GetNewEventMetadata(ctx context.Context) (*metadata.List, error)
	GetEventMetadata(ctx context.Context, eventID string) (*metadata.List, error)
	SetEventMetadataJSON(ctx context.Context, eventID string, data []byte) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// ReadyCheck reports whether a backing store can serve requests.
type ReadyCheck func(ctx context.Context) error

// Server owns the router and the handlers.
type Server struct {
	cfg      config.APIConfig
	svc      LTI
	verifier middleware.TokenVerifier

	tracingService string
	metrics        bool
	readiness      map[string]ReadyCheck
	readyTimeout   time.Duration
}

// ServerOption customises a Server.
type ServerOption func(*Server)

// WithTracing enables otelhttp spans under serviceName.
func WithTracing(serviceName string) ServerOption {
	return func(s *Server) { s.tracingService = serviceName }
}

// WithMetricsEndpoint serves the Prometheus registry on /metrics.
func WithMetricsEndpoint() ServerOption {
	return func(s *Server) { s.metrics = true }
}

// WithReadyCheck adds a named dependency probe to /readyz.
func WithReadyCheck(name string, check ReadyCheck) ServerOption {
	return func(s *Server) { s.readiness[name] = check }
}

// New builds a Server. The verifier authenticates every LTI route.
func New(cfg config.APIConfig, svc LTI, verifier middleware.TokenVerifier, opts ...ServerOption) *Server {
	s := &Server{
		cfg:          cfg,
		svc:          svc,
		verifier:     verifier,
		readiness:    make(map[string]ReadyCheck),
		readyTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the configured HTTP handler with all routes and middleware applied.
func (s *Server) Handler() http.Handler {
	return s.routes()
}
