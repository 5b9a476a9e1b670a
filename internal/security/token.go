// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

// Claims are the JWT claims understood by the service.
type Claims struct {
	jwt.StandardClaims
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	Organization string   `json:"org,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// Authenticator signs and verifies HS256 tokens.
type Authenticator struct {
	secret     []byte
	issuer     string
	defaultOrg string
	now        func() time.Time
}

// NewAuthenticator returns an Authenticator for secret. An empty issuer
// accepts tokens from any issuer.
func NewAuthenticator(secret, issuer string) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer, defaultOrg: DefaultOrganization, now: time.Now}, nil
}

// WithDefaultOrganization returns a copy that assigns org to tokens
// without an organisation claim.
func (a *Authenticator) WithDefaultOrganization(org string) *Authenticator {
	out := *a
	if org != "" {
		out.defaultOrg = org
	}
	return &out
}

// Issue signs a token for u valid for ttl.
func (a *Authenticator) Issue(u User, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   u.Username,
			Issuer:    a.issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		Name:         u.Name,
		Email:        u.Email,
		Organization: u.Organization,
		Roles:        u.Roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates tokenString and returns the caller it names.
// Every failure unwraps to ErrNotAuthorized.
func (a *Authenticator) Verify(tokenString string) (User, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return User{}, fmt.Errorf("%w: token missing", ErrNotAuthorized)
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return User{}, fmt.Errorf("%w: invalid token: %v", ErrNotAuthorized, err)
	}
	if claims.Subject == "" {
		return User{}, fmt.Errorf("%w: token has no subject", ErrNotAuthorized)
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return User{}, fmt.Errorf("%w: unexpected issuer %q", ErrNotAuthorized, claims.Issuer)
	}

	org := claims.Organization
	if org == "" {
		org = a.defaultOrg
	}
	return User{
		Username:     claims.Subject,
		Name:         claims.Name,
		Email:        claims.Email,
		Organization: org,
		Roles:        claims.Roles,
	}, nil
}
