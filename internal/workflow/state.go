// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package workflow tracks processing workflow instances started for media
// packages. It owns the state machine and the set of states that count as
// active; it does not execute operations itself.
package workflow

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a workflow instance.
type State string

const (
	StateInstantiated State = "INSTANTIATED"
	StateRunning      State = "RUNNING"
	StatePaused       State = "PAUSED"
	StateFailing      State = "FAILING"
	StateSucceeded    State = "SUCCEEDED"
	StateFailed       State = "FAILED"
	StateStopped      State = "STOPPED"
)

// ParseState accepts a state name in any case.
func ParseState(s string) (State, error) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown workflow state %q", s)
	}
	return st, nil
}

// StateSet is an explicit set of states.
type StateSet map[State]struct{}

// NewStateSet builds a set from states.
func NewStateSet(states ...State) StateSet {
	s := make(StateSet, len(states))
	for _, st := range states {
		s[st] = struct{}{}
	}
	return s
}

// Contains reports whether st is in the set.
func (s StateSet) Contains(st State) bool {
	_, ok := s[st]
	return ok
}

// ActiveStates returns the states during which an event's metadata is locked.
func ActiveStates() StateSet {
	return NewStateSet(StateInstantiated, StateRunning, StatePaused, StateFailing)
}

// TerminalStates returns the states no instance leaves.
func TerminalStates() StateSet {
	return NewStateSet(StateSucceeded, StateFailed, StateStopped)
}

var transitions = map[State][]State{
	StateInstantiated: {StateRunning, StateStopped, StateFailed},
	StateRunning:      {StatePaused, StateSucceeded, StateFailing, StateStopped},
	StatePaused:       {StateRunning, StateStopped},
	StateFailing:      {StateFailed},
	StateSucceeded:    nil,
	StateFailed:       nil,
	StateStopped:      nil,
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
