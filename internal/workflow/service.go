// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/metrics"
)

// Listener observes instances after they are created or change state.
type Listener func(ctx context.Context, inst Instance)

// Service starts and transitions workflow instances.
type Service struct {
	store  *Store
	now    func() time.Time
	logger zerolog.Logger

	mu        sync.RWMutex
	listeners []Listener
}

// NewService wraps store.
func NewService(store *Store) *Service {
	return &Service{
		store:  store,
		now:    time.Now,
		logger: xglog.WithComponent("workflow"),
	}
}

// Subscribe registers l for every subsequent start and transition.
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Service) notify(ctx context.Context, inst Instance) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(ctx, inst)
	}
}

// Start creates an INSTANTIATED instance of the definition named by
// params[DefinitionParameter] for the given package.
func (s *Service) Start(ctx context.Context, mediaPackageID, organization, creator string, params map[string]string) (Instance, error) {
	def := strings.TrimSpace(params[DefinitionParameter])
	if def == "" {
		return Instance{}, ErrNoDefinition
	}
	now := s.now().UTC()
	inst := Instance{
		ID:             uuid.NewString(),
		DefinitionID:   def,
		MediaPackageID: mediaPackageID,
		Organization:   organization,
		Creator:        creator,
		State:          StateInstantiated,
		Parameters:     maps.Clone(params),
		Created:        now,
		Updated:        now,
	}
	if err := s.store.insert(ctx, inst); err != nil {
		return Instance{}, err
	}

	s.logger.Info().
		Str(xglog.FieldEvent, "workflow.started").
		Str(xglog.FieldWorkflowID, inst.ID).
		Str("definition", def).
		Str(xglog.FieldMediaPackage, mediaPackageID).
		Msg("workflow instance created")
	metrics.RecordWorkflowTransition(string(StateInstantiated))
	s.notify(ctx, inst)
	return inst, nil
}

// Transition moves an instance to state to, enforcing the state machine.
func (s *Service) Transition(ctx context.Context, id string, to State) (Instance, error) {
	inst, from, err := s.store.transition(ctx, id, to, s.now().UTC())
	if err != nil {
		return Instance{}, err
	}
	s.logger.Info().
		Str(xglog.FieldEvent, "workflow.transition").
		Str(xglog.FieldWorkflowID, id).
		Str(xglog.FieldOldState, string(from)).
		Str(xglog.FieldNewState, string(to)).
		Msg("workflow state changed")
	metrics.RecordWorkflowTransition(string(to))
	s.notify(ctx, inst)
	return inst, nil
}

// Get returns the instance with id.
func (s *Service) Get(ctx context.Context, id string) (Instance, error) {
	return s.store.Get(ctx, id)
}

// Latest returns the newest instance started for a package.
func (s *Service) Latest(ctx context.Context, mediaPackageID string) (Instance, error) {
	all, err := s.store.ByMediaPackage(ctx, mediaPackageID)
	if err != nil {
		return Instance{}, err
	}
	if len(all) == 0 {
		return Instance{}, ErrNotFound
	}
	return all[0], nil
}

// Pending returns instances that have not reached a terminal state.
func (s *Service) Pending(ctx context.Context) ([]Instance, error) {
	states := make([]State, 0, 4)
	for st := range ActiveStates() {
		states = append(states, st)
	}
	return s.store.ByState(ctx, states...)
}

// AwaitTerminal polls until id reaches a terminal state or ctx ends.
// onProgress runs after every poll that finds the instance still active.
func (s *Service) AwaitTerminal(ctx context.Context, id string, interval time.Duration, onProgress func(Instance)) (Instance, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		inst, err := s.store.Get(ctx, id)
		if err != nil {
			return Instance{}, err
		}
		if inst.Terminal() {
			return inst, nil
		}
		if onProgress != nil {
			onProgress(inst)
		}
		select {
		case <-ctx.Done():
			return inst, ctx.Err()
		case <-ticker.C:
		}
	}
}
