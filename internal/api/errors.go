// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/lticast/internal/api/problem"
	"github.com/ManuGH/lticast/internal/index"
	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/lti"
	"github.com/ManuGH/lticast/internal/metadata"
	"github.com/ManuGH/lticast/internal/security"
	"github.com/ManuGH/lticast/internal/series"
)

// errBadRequest marks malformed requests detected by the handlers.
var errBadRequest = errors.New("bad request")

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is ordered most specific first: an *lti.UploadError matches
// both its cause and lti.ErrUploadFailed.
var errorMappings = []errorMapping{
	{errBadRequest, http.StatusBadRequest, "BAD_REQUEST"},
	{lti.ErrNotConfigured, http.StatusServiceUnavailable, "LTI_NOT_CONFIGURED"},
	{lti.ErrMissingMedia, http.StatusBadRequest, "MISSING_MEDIA"},
	{security.ErrNotAuthorized, http.StatusForbidden, "FORBIDDEN"},
	{lti.ErrEventNotFound, http.StatusNotFound, "EVENT_NOT_FOUND"},
	{index.ErrEventNotFound, http.StatusNotFound, "EVENT_NOT_FOUND"},
	{series.ErrSeriesNotFound, http.StatusUnprocessableEntity, "SERIES_NOT_FOUND"},
	{series.ErrAmbiguousSeries, http.StatusUnprocessableEntity, "SERIES_AMBIGUOUS"},
	{series.ErrMalformedSeriesRecord, http.StatusUnprocessableEntity, "SERIES_MALFORMED"},
	{metadata.ErrUnknownField, http.StatusBadRequest, "UNKNOWN_FIELD"},
	{metadata.ErrInvalidFieldValue, http.StatusBadRequest, "INVALID_FIELD_VALUE"},
	{metadata.ErrMalformedPayload, http.StatusBadRequest, "MALFORMED_METADATA"},
	{index.ErrEventLocked, http.StatusConflict, "EVENT_LOCKED"},
	{metadata.ErrLocked, http.StatusConflict, "EVENT_LOCKED"},
	{lti.ErrPackageCreation, http.StatusBadGateway, "PACKAGE_CREATION_FAILED"},
	{lti.ErrCaptionAttach, http.StatusBadGateway, "CAPTION_ATTACH_FAILED"},
	{lti.ErrDeletionFailed, http.StatusBadGateway, "DELETION_FAILED"},
	{lti.ErrUploadFailed, http.StatusInternalServerError, "UPLOAD_FAILED"},
}

// writeError maps err onto a problem response. Server-side failures are
// logged with their cause and answered without it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status, code = http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE"
	} else {
		for _, m := range errorMappings {
			if errors.Is(err, m.target) {
				status, code = m.status, m.code
				break
			}
		}
	}

	extra := map[string]any{}
	var fieldErr *metadata.FieldError
	if errors.As(err, &fieldErr) {
		extra["field"] = fieldErr.Field
	}
	var uploadErr *lti.UploadError
	if errors.As(err, &uploadErr) {
		extra["step"] = uploadErr.Step
		if uploadErr.MediaPackageID != "" {
			extra["mediaPackageId"] = uploadErr.MediaPackageID
		}
	}

	logger := xglog.FromContext(r.Context())
	detail := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "request.failed").
			Str("code", code).
			Msg("request failed")
		if status == http.StatusInternalServerError {
			detail = "internal error"
		}
	} else {
		logger.Debug().Err(err).Str("code", code).Msg("request rejected")
	}

	problem.Write(w, r, status, "lti/"+strings.ToLower(code), http.StatusText(status), code, detail, extra)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
