// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"sync"
	"testing"
	"time"

	"github.com/stratumdb/stratum/pkg/util/leaktest"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// executorFunc adapts a func to the Executor interface.
type executorFunc func(fn func())

func (f executorFunc) Execute(fn func()) { f(fn) }

// directExecutor runs notifications inline, making listener tests
// deterministic.
var directExecutor = executorFunc(func(fn func()) { fn() })

func TestStateMachineSetIf(t *testing.T) {
	defer leaktest.AfterTest(t)()
	sm := NewStateMachine("test", directExecutor, QueryQueued, TerminalQueryStates...)

	require.Equal(t, QueryQueued, sm.Get())
	require.True(t, sm.SetIf(QueryRunning, func(s QueryState) bool { return s == QueryQueued }))
	require.Equal(t, QueryRunning, sm.Get())

	// Predicate false: no transition.
	require.False(t, sm.SetIf(QueryFinished, func(s QueryState) bool { return s == QueryQueued }))
	require.Equal(t, QueryRunning, sm.Get())

	// Transition to the current value is a no-op.
	require.False(t, sm.SetIf(QueryRunning, func(QueryState) bool { return true }))
}

func TestStateMachineTerminalAbsorbs(t *testing.T) {
	defer leaktest.AfterTest(t)()
	sm := NewStateMachine("test", directExecutor, QueryQueued, TerminalQueryStates...)

	require.True(t, sm.SetIf(QueryFailed, func(QueryState) bool { return true }))

	// The predicate must not even be consulted once terminal.
	require.False(t, sm.SetIf(QueryFinished, func(QueryState) bool {
		t.Error("predicate consulted on terminal state")
		return true
	}))
	require.Equal(t, QueryFailed, sm.Get())
}

func TestStateMachineListenerFiresOnRegistration(t *testing.T) {
	defer leaktest.AfterTest(t)()
	sm := NewStateMachine("test", directExecutor, QueryPlanning, TerminalQueryStates...)

	var observed []QueryState
	sm.AddListener(func(s QueryState) { observed = append(observed, s) })
	require.Equal(t, []QueryState{QueryPlanning}, observed)

	require.True(t, sm.SetIf(QueryStarting, func(QueryState) bool { return true }))
	require.Equal(t, []QueryState{QueryPlanning, QueryStarting}, observed)
}

func TestStateMachineListenerPanicContained(t *testing.T) {
	defer leaktest.AfterTest(t)()
	sm := NewStateMachine("test", directExecutor, QueryQueued, TerminalQueryStates...)

	sm.AddListener(func(QueryState) { panic("listener boom") })
	require.NotPanics(t, func() {
		require.True(t, sm.SetIf(QueryRunning, func(QueryState) bool { return true }))
	})
	require.Equal(t, QueryRunning, sm.Get())
}

func TestStateMachineAwaitChange(t *testing.T) {
	defer leaktest.AfterTest(t)()
	sm := NewStateMachine("test", directExecutor, QueryQueued, TerminalQueryStates...)

	// Already-different completes immediately.
	ch := sm.AwaitChange(QueryRunning)
	select {
	case s := <-ch:
		require.Equal(t, QueryQueued, s)
	default:
		t.Fatal("expected immediate completion")
	}

	ch = sm.AwaitChange(QueryQueued)
	select {
	case <-ch:
		t.Fatal("completed without a transition")
	default:
	}
	require.True(t, sm.SetIf(QueryRunning, func(QueryState) bool { return true }))
	select {
	case s := <-ch:
		require.Equal(t, QueryRunning, s)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for state change")
	}
}

func TestStateMachineConcurrentTransitions(t *testing.T) {
	defer leaktest.AfterTest(t)()
	exec := NewNotificationExecutor(8)
	defer exec.Drain()
	sm := NewStateMachine("test", exec, QueryQueued, TerminalQueryStates...)

	// Many racing writers, one of which is terminal. Exactly one terminal
	// transition fires and the terminal value sticks.
	var g errgroup.Group
	var mu sync.Mutex
	var fired int
	for i := 0; i < 16; i++ {
		i := i
		g.Go(func() error {
			var ok bool
			if i%4 == 0 {
				ok = sm.SetIf(QueryFailed, func(s QueryState) bool { return !s.IsDone() })
			} else {
				ok = sm.SetIf(QueryRunning, func(s QueryState) bool { return s < QueryRunning })
			}
			if ok && i%4 == 0 {
				mu.Lock()
				fired++
				mu.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 1, fired)
	require.Equal(t, QueryFailed, sm.Get())
}
