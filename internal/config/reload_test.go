// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestHolder(t *testing.T) (*Holder, string, map[string]interface{}) {
	t.Helper()
	dir := t.TempDir()
	raw := baseConfig(filepath.Join(dir, "data"))
	path := writeConfig(t, dir, raw)

	loader := NewLoader(path)
	initial, err := loader.Load()
	require.NoError(t, err)
	return NewHolder(initial, loader), dir, raw
}

func TestHolder_Reload(t *testing.T) {
	h, dir, raw := newTestHolder(t)

	var applied atomic.Value
	h.OnReload(func(next AppConfig) error {
		applied.Store(next.LTI.Workflow)
		return nil
	})

	raw["lti"].(map[string]interface{})["workflow"] = "slow"
	writeConfig(t, dir, raw)

	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, "slow", h.Get().LTI.Workflow)
	assert.Equal(t, "slow", applied.Load())
}

func TestHolder_RejectedReloadKeepsSnapshot(t *testing.T) {
	h, dir, raw := newTestHolder(t)
	before := h.Get()

	h.OnReload(func(next AppConfig) error {
		if next.LTI.Workflow == "broken" {
			return errors.New("unusable workflow")
		}
		return nil
	})

	raw["lti"].(map[string]interface{})["workflow"] = "broken"
	writeConfig(t, dir, raw)
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, before, h.Get())

	raw["logLevel"] = "chatty"
	raw["lti"].(map[string]interface{})["workflow"] = "fine"
	writeConfig(t, dir, raw)
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, before, h.Get(), "invalid files never become current")
}

func TestHolder_WatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	h, dir, raw := newTestHolder(t)
	h.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWatcher(ctx))

	raw["lti"].(map[string]interface{})["retractWorkflowId"] = "unpublish"
	writeConfig(t, dir, raw)

	assert.Eventually(t, func() bool {
		return h.Get().LTI.RetractWorkflowID == "unpublish"
	}, 5*time.Second, 10*time.Millisecond)

	h.Stop()
}

func TestHolder_WatcherDisabledWithoutFile(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader(""))
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}
