// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package series

import (
	"context"
	"time"

	"github.com/ManuGH/lticast/internal/cache"
	"github.com/ManuGH/lticast/internal/metrics"
	"github.com/ManuGH/lticast/internal/security"
)

// TitleLookup returns the title of a series by identifier.
type TitleLookup interface {
	Title(ctx context.Context, identifier string) (string, error)
}

// CachedTitles memoises identifier to title lookups for ttl. A series never
// changes title, so only found titles are cached; misses always reach the
// directory so newly created series show up at once.
//
// Resolver does not go through a cache: a cached FindByTitle result would
// hide a second series created later with the same title.
type CachedTitles struct {
	next  TitleLookup
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedTitles wraps next. A non-positive ttl disables caching.
func NewCachedTitles(next TitleLookup, c cache.Cache, ttl time.Duration) *CachedTitles {
	return &CachedTitles{next: next, cache: c, ttl: ttl}
}

func titleKey(ctx context.Context, identifier string) string {
	return "series:id:" + security.OrganizationFromContext(ctx) + ":" + identifier
}

func (d *CachedTitles) Title(ctx context.Context, identifier string) (string, error) {
	if d.ttl <= 0 {
		return d.next.Title(ctx, identifier)
	}
	key := titleKey(ctx, identifier)
	if raw, ok := d.cache.Get(ctx, key); ok {
		metrics.RecordSeriesCache(true)
		return string(raw), nil
	}
	metrics.RecordSeriesCache(false)

	title, err := d.next.Title(ctx, identifier)
	if err != nil {
		return "", err
	}
	d.cache.Set(ctx, key, []byte(title), d.ttl)
	return title, nil
}
