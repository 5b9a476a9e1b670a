// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/metrics"
)

// ApplyFunc receives a freshly loaded configuration before it becomes
// current. Returning an error rejects the reload.
type ApplyFunc func(next AppConfig) error

// Holder holds configuration with atomic reloading capability.
// Readers get the snapshot current at the time of the call; a reload never
// changes a snapshot already handed out.
type Holder struct {
	current  atomic.Pointer[AppConfig]
	loader   *Loader
	logger   zerolog.Logger
	debounce time.Duration

	reloadMu sync.Mutex
	hooksMu  sync.RWMutex
	hooks    []ApplyFunc

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewHolder creates a holder with an initial configuration.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	h := &Holder{
		loader:   loader,
		logger:   xglog.WithComponent("config"),
		debounce: 500 * time.Millisecond,
	}
	h.current.Store(&initial)
	return h
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	return *h.current.Load()
}

// OnReload registers fn to validate and apply reloaded configurations.
// Hooks run in registration order.
func (h *Holder) OnReload(fn ApplyFunc) {
	h.hooksMu.Lock()
	defer h.hooksMu.Unlock()
	h.hooks = append(h.hooks, fn)
}

// Reload reloads configuration from file and validates it.
// If loading or any hook fails, the old configuration is kept and an
// error is returned.
func (h *Holder) Reload(_ context.Context) (err error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	defer func() { metrics.RecordConfigReload(err) }()

	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.hooksMu.RLock()
	hooks := append([]ApplyFunc(nil), h.hooks...)
	h.hooksMu.RUnlock()
	for _, hook := range hooks {
		if err := hook(next); err != nil {
			h.logger.Error().
				Err(err).
				Str("event", "config.apply_failed").
				Msg("new configuration was rejected")
			return fmt.Errorf("apply config: %w", err)
		}
	}

	old := h.current.Swap(&next)
	h.logChanges(*old, next)
	h.logger.Info().
		Str("event", "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// logChanges logs the settings that differ between two configurations.
func (h *Holder) logChanges(old, next AppConfig) {
	changed := func(key string, a, b any) {
		if a != b {
			h.logger.Info().
				Str("event", "config.changed").
				Str("key", key).
				Interface("old", a).
				Interface("new", b).
				Msg("configuration value changed")
		}
	}
	changed("logLevel", old.LogLevel, next.LogLevel)
	changed("lti.workflow", old.LTI.Workflow, next.LTI.Workflow)
	changed("lti.retractWorkflowId", old.LTI.RetractWorkflowID, next.LTI.RetractWorkflowID)
	changed("lti.organization", old.LTI.Organization, next.LTI.Organization)
	changed("cache.ttl", old.Cache.TTL, next.Cache.TTL)
	if old.LTI.WorkflowConfiguration != next.LTI.WorkflowConfiguration {
		h.logger.Info().
			Str("event", "config.changed").
			Str("key", "lti.workflowConfiguration").
			Msg("configuration value changed")
	}
}

// StartWatcher starts watching the config file for changes.
// If no file is configured, this is a no-op (config comes from ENV only).
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files by rename, which drops a watch on the file
	// itself. Watch the directory and filter by name instead.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}
	h.watcher = watcher
	h.done = make(chan struct{})

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", path).
		Msg("watching config file for changes")

	go h.watchLoop(ctx, filepath.Clean(path))
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, path string) {
	defer close(h.done)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			_ = h.watcher.Close()
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str("event", "config.file_changed").
				Str("op", event.Op.String()).
				Msg("config file changed")

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(h.debounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str("event", "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str("event", "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Stop stops the config watcher (if running) and waits for it to exit.
func (h *Holder) Stop() {
	if h.watcher == nil {
		return
	}
	_ = h.watcher.Close()
	<-h.done
}
