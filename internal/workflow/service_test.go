// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package workflow

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "workflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store)
}

func TestService_StartRequiresDefinition(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Start(context.Background(), "mp", "org", "alice", map[string]string{"foo": "bar"})
	require.ErrorIs(t, err, ErrNoDefinition)
}

func TestService_StartPersistsAndNotifies(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var seen []Instance
	svc.Subscribe(func(_ context.Context, inst Instance) { seen = append(seen, inst) })

	inst, err := svc.Start(ctx, "mp-1", "org", "alice", map[string]string{DefinitionParameter: "fast", "publish": "true"})
	require.NoError(t, err)
	assert.Equal(t, StateInstantiated, inst.State)
	assert.Equal(t, "fast", inst.DefinitionID)

	got, err := svc.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "true", got.Parameters["publish"])
	assert.Equal(t, "alice", got.Creator)

	require.Len(t, seen, 1)
	assert.Equal(t, inst.ID, seen[0].ID)
}

func TestService_TransitionEnforcesStateMachine(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	inst, err := svc.Start(ctx, "mp", "org", "alice", map[string]string{DefinitionParameter: "fast"})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, inst.ID, StateSucceeded)
	require.ErrorIs(t, err, ErrInvalidTransition)

	got, err := svc.Transition(ctx, inst.ID, StateRunning)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, got.State)

	got, err = svc.Transition(ctx, inst.ID, StateSucceeded)
	require.NoError(t, err)
	assert.True(t, got.Terminal())

	_, err = svc.Transition(ctx, inst.ID, StateRunning)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Transition(ctx, "missing", StateRunning)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_LatestAndPending(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	first, err := svc.Start(ctx, "mp", "org", "alice", map[string]string{DefinitionParameter: "fast"})
	require.NoError(t, err)
	second, err := svc.Start(ctx, "mp", "org", "alice", map[string]string{DefinitionParameter: "retract"})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, first.ID, StateStopped)
	require.NoError(t, err)

	latest, err := svc.Latest(ctx, "mp")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = svc.Latest(ctx, "other")
	require.ErrorIs(t, err, ErrNotFound)

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
}

func TestService_AwaitTerminal(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	inst, err := svc.Start(ctx, "mp", "org", "alice", map[string]string{DefinitionParameter: "retract"})
	require.NoError(t, err)

	var progress atomic.Int32
	done := make(chan Instance, 1)
	go func() {
		final, err := svc.AwaitTerminal(ctx, inst.ID, 5*time.Millisecond, func(Instance) { progress.Add(1) })
		assert.NoError(t, err)
		done <- final
	}()

	require.Eventually(t, func() bool { return progress.Load() > 0 }, time.Second, 5*time.Millisecond)
	_, err = svc.Transition(ctx, inst.ID, StateRunning)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, inst.ID, StateSucceeded)
	require.NoError(t, err)

	select {
	case final := <-done:
		assert.Equal(t, StateSucceeded, final.State)
	case <-ctx.Done():
		t.Fatal("AwaitTerminal did not return")
	}
}

func TestParseStateAndSets(t *testing.T) {
	st, err := ParseState(" running ")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, st)

	_, err = ParseState("DONE")
	require.Error(t, err)

	assert.True(t, ActiveStates().Contains(StatePaused))
	assert.False(t, ActiveStates().Contains(StateSucceeded))
	assert.True(t, TerminalStates().Contains(StateStopped))
}
