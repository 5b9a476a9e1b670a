// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/lticast/internal/api/middleware"
	"github.com/ManuGH/lticast/internal/api/problem"
)

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.tracingService,
		EnableLogging:         true,
		RateLimitRPS:          s.cfg.RateLimit.RPS,
		RateLimitBurst:        s.cfg.RateLimit.Burst,
	})

	s.registerPublicRoutes(r)
	r.Route(BasePath, s.registerLTIRoutes)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, "system/not_found", "Not Found", "NOT_FOUND", "", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed", "Method Not Allowed", "METHOD_NOT_ALLOWED", "", nil)
	})
	return r
}

func (s *Server) registerPublicRoutes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", s.handleReady)
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
}

func (s *Server) registerLTIRoutes(r chi.Router) {
	r.Use(middleware.Authenticate(s.verifier))

	r.Get("/jobs", s.handleListJobs)
	r.Get("/new/metadata", s.handleGetNewMetadata)
	r.With(middleware.UploadAdmission(float64(s.cfg.UploadLimit.RPS), s.cfg.UploadLimit.Burst)).
		Post("/", s.handleUpsert)
	r.Get("/{eventId}/metadata", s.handleGetMetadata)
	r.Post("/{eventId}/metadata", s.handleSetMetadata)
	r.Delete("/{eventId}", s.handleDelete)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyTimeout)
	defer cancel()

	names := make([]string, 0, len(s.readiness))
	for name := range s.readiness {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := make(map[string]string)
	for _, name := range names {
		if err := s.readiness[name](ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		problem.Write(w, r, http.StatusServiceUnavailable, "system/not_ready", "Service Unavailable", "NOT_READY", "",
			map[string]any{"checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
