// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package series holds the series directory and resolves human-readable
// series titles to exactly one canonical series identifier.
package series

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrSeriesNotFound        = errors.New("series not found")
	ErrAmbiguousSeries       = errors.New("series title is ambiguous")
	ErrMalformedSeriesRecord = errors.New("series record has no unique identifier")
)

// Record is a series as returned by the directory. A well-formed record
// carries exactly one identifier.
type Record struct {
	Title        string    `json:"title"`
	Organization string    `json:"organization"`
	Identifiers  []string  `json:"identifiers"`
	Created      time.Time `json:"created"`
}

// NormalizeTitle returns the form titles are compared in: NFC with
// surrounding whitespace removed. Case is significant.
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}
