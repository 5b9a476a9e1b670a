// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"

	"github.com/ManuGH/lticast/internal/api/problem"
	"github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/security"
)

// TokenVerifier turns an Authorization header value into a caller identity.
type TokenVerifier interface {
	Verify(token string) (security.User, error)
}

// Authenticate requires a valid bearer token and stores the caller on the
// request context for the lti service.
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="lticast"`)
				problem.Write(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized", "UNAUTHORIZED",
					"missing bearer token", nil)
				return
			}

			user, err := v.Verify(header)
			if err != nil {
				logger := log.WithComponentFromContext(r.Context(), "auth")
				logger.Warn().
					Err(err).
					Str(log.FieldEvent, "auth.rejected").
					Str(log.FieldPath, r.URL.Path).
					Msg("bearer token rejected")
				w.Header().Set("WWW-Authenticate", `Bearer realm="lticast", error="invalid_token"`)
				problem.Write(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized", "UNAUTHORIZED",
					"invalid bearer token", nil)
				return
			}

			ctx := security.WithUser(r.Context(), user)
			logger := log.FromContext(ctx).With().
				Str(log.FieldUser, user.Username).
				Str(log.FieldOrganization, user.Organization).
				Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}
