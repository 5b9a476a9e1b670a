// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ManuGH/lticast/internal/api/problem"
	"github.com/ManuGH/lticast/internal/log"
)

const maxRequestIDLen = 128

// HeaderCorrelationID carries an id that spans several requests, e.g. all
// calls an LMS page makes for one upload.
const HeaderCorrelationID = "X-Correlation-ID"

// RequestID adds a unique ID to every request. A client supplied id is kept
// when it is short enough to be safe in logs. A correlation id is passed
// through to the logs under the same length limit.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(problem.HeaderRequestID)
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.New().String()
		}
		w.Header().Set(problem.HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		if cid := r.Header.Get(HeaderCorrelationID); cid != "" && len(cid) <= maxRequestIDLen {
			ctx = log.ContextWithCorrelationID(ctx, cid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
