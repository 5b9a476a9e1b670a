// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package problem

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/lticast/internal/log"
)

func TestWrite(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/lti-service-gui/e1/metadata", nil)
	req = req.WithContext(log.ContextWithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()

	Write(rec, req, http.StatusNotFound, "lti/not_found", "Not Found", "EVENT_NOT_FOUND", "no event e1",
		map[string]any{"eventId": "e1", "status": 200})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "lti/not_found", body["type"])
	assert.Equal(t, "EVENT_NOT_FOUND", body["code"])
	assert.Equal(t, "no event e1", body["detail"])
	assert.Equal(t, "/lti-service-gui/e1/metadata", body["instance"])
	assert.Equal(t, "req-1", body[JSONKeyRequestID])
	assert.Equal(t, "e1", body["eventId"])
	assert.EqualValues(t, 404, body["status"], "reserved keys are not overridden by extras")
}

func TestWrite_OmitsEmptyDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()

	Write(rec, req, http.StatusTeapot, "t", "T", "TEAPOT", "", nil)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, body, JSONKeyRequestID)
}
