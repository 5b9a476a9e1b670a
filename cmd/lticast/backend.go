// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/lticast/internal/cache"
	"github.com/ManuGH/lticast/internal/catalog"
	"github.com/ManuGH/lticast/internal/config"
	"github.com/ManuGH/lticast/internal/index"
	"github.com/ManuGH/lticast/internal/ingest"
	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/lti"
	"github.com/ManuGH/lticast/internal/series"
	"github.com/ManuGH/lticast/internal/workflow"
	"github.com/ManuGH/lticast/internal/workspace"
)

// Database and directory names below the data dir.
const (
	indexDBName    = "index.db"
	workflowDBName = "workflow.db"
	seriesDBName   = "series.db"
	packagesDir    = "packages"
	workspaceDir   = "workspace"
)

// sqliteDatabases lists the SQLite files checked by storage verify.
var sqliteDatabases = []string{indexDBName, workflowDBName, seriesDBName}

// backend holds the wired collaborators of one daemon process.
type backend struct {
	events    *index.Store
	wfStore   *workflow.Store
	workflows *workflow.Service
	seriesDB  *series.Store
	packages  *ingest.PackageStore
	cache     cache.Cache
	service   *lti.Service

	closers []func() error
}

// buildBackend opens the stores below cfg.DataDir and wires the LTI service.
// The caller must call close.
func buildBackend(ctx context.Context, cfg config.AppConfig) (_ *backend, err error) {
	rt := &backend{}
	defer func() {
		if err != nil {
			_ = rt.close()
		}
	}()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	rt.events, err = index.OpenStore(filepath.Join(cfg.DataDir, indexDBName))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	rt.closers = append(rt.closers, rt.events.Close)

	rt.wfStore, err = workflow.OpenStore(filepath.Join(cfg.DataDir, workflowDBName))
	if err != nil {
		return nil, fmt.Errorf("open workflow store: %w", err)
	}
	rt.closers = append(rt.closers, rt.wfStore.Close)
	rt.workflows = workflow.NewService(rt.wfStore)

	rt.seriesDB, err = series.OpenStore(filepath.Join(cfg.DataDir, seriesDBName))
	if err != nil {
		return nil, fmt.Errorf("open series store: %w", err)
	}
	rt.closers = append(rt.closers, rt.seriesDB.Close)

	rt.packages, err = ingest.OpenPackageStore(filepath.Join(cfg.DataDir, packagesDir))
	if err != nil {
		return nil, fmt.Errorf("open package store: %w", err)
	}
	rt.closers = append(rt.closers, rt.packages.Close)

	ws, err := workspace.New(filepath.Join(cfg.DataDir, workspaceDir))
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	var extra []catalog.Definition
	if cfg.Catalogs != "" {
		extra, err = catalog.LoadDefinitions(cfg.Catalogs)
		if err != nil {
			return nil, fmt.Errorf("load catalog definitions: %w", err)
		}
	}
	adapters, err := catalog.DefaultRegistry(extra...)
	if err != nil {
		return nil, fmt.Errorf("build adapter registry: %w", err)
	}

	rt.cache, err = openCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, rt.cache.Close)

	idx := index.NewService(index.Options{
		Store:     rt.events,
		Packages:  rt.packages,
		Workflows: rt.workflows,
		Adapters:  adapters,
		Series:    series.NewCachedTitles(rt.seriesDB, rt.cache, cfg.Cache.TTL),
		Blobs:     ws,
	})
	rt.workflows.Subscribe(idx.OnWorkflowTransition)

	rt.service = lti.NewService(lti.Options{
		Ingest:    ingest.NewService(rt.packages, ws, rt.workflows, idx),
		Workspace: ws,
		Series:    series.NewResolver(rt.seriesDB),
		Index:     idx,
		Adapters:  adapters,
	})
	return rt, nil
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(time.Minute), nil
	}
	logger := xglog.Derive(func(c zerolog.Context) zerolog.Context {
		return c.Str(xglog.FieldComponent, "cache").Str("redis_addr", cfg.RedisAddr).Int("redis_db", cfg.RedisDB)
	})
	c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open redis cache: %w", err)
	}
	return c, nil
}

// close releases stores in reverse open order.
func (rt *backend) close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// ready probes the stores for /readyz.
func (rt *backend) ready(ctx context.Context) error {
	return errors.Join(rt.events.Ping(ctx), rt.wfStore.Ping(ctx), rt.seriesDB.Ping(ctx))
}
