// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"context"

	"github.com/stratumdb/stratum/pkg/util/log"
	"github.com/stratumdb/stratum/pkg/util/syncutil"
)

// StateMachine is a thread-safe cell holding a single value of type S with an
// optional set of terminal values. Once a terminal value has been assigned,
// all further writes are rejected without consulting the caller's predicate.
//
// Every successful transition enqueues one notification per registered
// listener on the notification executor. Listeners run asynchronously and
// notifications for concurrent transitions may be observed out of order;
// listeners that care about ordering must re-read the current state.
type StateMachine[S comparable] struct {
	name     string
	executor Executor
	terminal map[S]struct{}

	mu struct {
		syncutil.Mutex
		current   S
		listeners []func(S)
		// waiters are completed (and cleared) by the next successful
		// transition, whatever the new value is.
		waiters []chan S
	}
}

// NewStateMachine creates a state machine starting at initial. Values listed
// in terminal absorb all subsequent writes.
func NewStateMachine[S comparable](
	name string, executor Executor, initial S, terminal ...S,
) *StateMachine[S] {
	sm := &StateMachine[S]{
		name:     name,
		executor: executor,
		terminal: make(map[S]struct{}, len(terminal)),
	}
	for _, s := range terminal {
		sm.terminal[s] = struct{}{}
	}
	sm.mu.current = initial
	return sm
}

// Get returns the current value.
func (sm *StateMachine[S]) Get() S {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.mu.current
}

// IsTerminal returns whether s is one of the machine's terminal values.
func (sm *StateMachine[S]) IsTerminal(s S) bool {
	_, ok := sm.terminal[s]
	return ok
}

// SetIf transitions to target if the current value is non-terminal and
// predicate(current) holds. It returns whether the transition fired. A
// transition to the value already held is a no-op and returns false.
func (sm *StateMachine[S]) SetIf(target S, predicate func(current S) bool) bool {
	var listeners []func(S)
	var waiters []chan S

	sm.mu.Lock()
	current := sm.mu.current
	if sm.IsTerminal(current) || !predicate(current) || current == target {
		sm.mu.Unlock()
		return false
	}
	sm.mu.current = target
	listeners = append(([]func(S))(nil), sm.mu.listeners...)
	waiters = sm.mu.waiters
	sm.mu.waiters = nil
	sm.mu.Unlock()

	for _, w := range waiters {
		w <- target
	}
	for _, l := range listeners {
		sm.notify(l, target)
	}
	return true
}

// AddListener registers a listener. The listener is fired once,
// asynchronously, with the value current at registration time, and then on
// every subsequent transition.
func (sm *StateMachine[S]) AddListener(listener func(S)) {
	sm.mu.Lock()
	sm.mu.listeners = append(sm.mu.listeners, listener)
	current := sm.mu.current
	sm.mu.Unlock()
	sm.notify(listener, current)
}

// AwaitChange returns a channel that receives the first value observed to
// differ from the given one. If the current value already differs, the
// channel is immediately ready.
func (sm *StateMachine[S]) AwaitChange(from S) <-chan S {
	ch := make(chan S, 1)
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.mu.current != from {
		ch <- sm.mu.current
		return ch
	}
	sm.mu.waiters = append(sm.mu.waiters, ch)
	return ch
}

// notify hands one listener invocation to the executor. Listener panics are
// contained; they never propagate into a mutator.
func (sm *StateMachine[S]) notify(listener func(S), value S) {
	sm.executor.Execute(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf(context.Background(), "%s: state listener panicked: %v", sm.name, r)
			}
		}()
		listener(value)
	})
}
