// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/lticast/internal/lti"
)

// maxMetadataFormBytes bounds the metadata update form.
const maxMetadataFormBytes = 1 << 20

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobs, err := s.svc.ListJobs(r.Context(), q.Get("seriesName"), q.Get("seriesId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []lti.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetNewMetadata(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.GetNewEventMetadata(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.GetEventMetadata(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSetMetadata(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMetadataFormBytes)
	if err := parseForm(r); err != nil {
		writeError(w, r, err)
		return
	}
	data := strings.TrimSpace(r.FormValue("metadata"))
	if data == "" {
		writeError(w, r, badRequest("form field %q is required", "metadata"))
		return
	}
	if err := s.svc.SetEventMetadataJSON(r.Context(), chi.URLParam(r, "eventId"), []byte(data)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEvent(r.Context(), chi.URLParam(r, "eventId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseForm accepts both url-encoded and multipart bodies.
func parseForm(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	var err error
	if strings.HasPrefix(ct, "multipart/") {
		err = r.ParseMultipartForm(maxMetadataFormBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("invalid form body: %v", err)
	}
	return nil
}
