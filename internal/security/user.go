// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package security carries the authenticated caller on the request context
// and verifies the bearer tokens issued by the learning platform.
package security

import (
	"context"
	"errors"
	"slices"
)

// ErrNotAuthorized is returned when the caller is unauthenticated or may not
// access the requested resource.
var ErrNotAuthorized = errors.New("not authorized")

// DefaultOrganization is used for callers whose token carries no organisation.
const DefaultOrganization = "mh_default_org"

// User is the authenticated caller.
type User struct {
	Username     string   `json:"username"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	Organization string   `json:"organization"`
	Roles        []string `json:"roles,omitempty"`
}

// HasRole reports whether the user carries role.
func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// DisplayName returns the full name, falling back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

type ctxKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the caller stored by WithUser.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}

// RequireUser returns the caller or ErrNotAuthorized.
func RequireUser(ctx context.Context) (User, error) {
	u, ok := UserFromContext(ctx)
	if !ok || u.Username == "" {
		return User{}, ErrNotAuthorized
	}
	return u, nil
}

// OrganizationFromContext returns the caller's organisation, or "" when anonymous.
func OrganizationFromContext(ctx context.Context) string {
	u, _ := UserFromContext(ctx)
	return u.Organization
}
