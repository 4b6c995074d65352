// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"context"
	"sync"

	"github.com/marusama/semaphore"
	"github.com/stratumdb/stratum/pkg/util/log"
)

// Executor runs listener callbacks on behalf of the state machines. Mutators
// never invoke listeners directly; they hand them to the executor so that a
// slow or misbehaving listener cannot block a state transition.
type Executor interface {
	// Execute runs fn, possibly asynchronously.
	Execute(fn func())
}

// NotificationExecutor is the Executor used by query state machines in
// production. Each notification runs on its own goroutine; the number of
// in-flight notifications is bounded by a semaphore so that a storm of state
// changes cannot create an unbounded number of goroutines. When parallelism
// notifications are already in flight, Execute waits for one of them to
// finish, so the caller is held up until a slot frees.
type NotificationExecutor struct {
	sem semaphore.Semaphore
	wg  sync.WaitGroup
}

var _ Executor = (*NotificationExecutor)(nil)

// NewNotificationExecutor creates a NotificationExecutor allowing up to
// parallelism concurrent notifications.
func NewNotificationExecutor(parallelism int) *NotificationExecutor {
	return &NotificationExecutor{sem: semaphore.New(parallelism)}
}

// Execute implements Executor. Panics escaping fn are recovered and logged so
// a bad listener never takes down the notification pool.
func (e *NotificationExecutor) Execute(fn func()) {
	e.wg.Add(1)
	if err := e.sem.Acquire(context.Background(), 1); err != nil {
		e.wg.Done()
		return
	}
	go func() {
		defer e.wg.Done()
		defer e.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				log.Errorf(context.Background(), "panic in notification: %v", r)
			}
		}()
		fn()
	}()
}

// Drain blocks until all notifications enqueued so far have completed. Used
// by tests and during shutdown.
func (e *NotificationExecutor) Drain() {
	e.wg.Wait()
}
