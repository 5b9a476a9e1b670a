// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/ManuGH/lticast/internal/api/problem"
)

var uploadsRejected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "lticast",
	Name:      "upload_admission_rejected_total",
	Help:      "Uploads refused by the admission limiter",
})

// UploadAdmission caps how fast new uploads are accepted across all
// callers. Each upload holds a workspace write and an ingest submission, so
// this is a global token bucket rather than a per-IP window.
func UploadAdmission(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), max(burst, 1))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Reserve()
			if !res.OK() {
				reject(w, r, 1)
				return
			}
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				reject(w, r, int(math.Ceil(delay.Seconds())))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, retryAfter int) {
	uploadsRejected.Inc()
	w.Header().Set("Retry-After", strconv.Itoa(max(retryAfter, 1)))
	problem.Write(w, r, http.StatusServiceUnavailable, "lti/upload_busy", "Service Unavailable", "UPLOAD_BUSY",
		"too many concurrent uploads, retry later", nil)
}
