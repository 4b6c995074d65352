// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package timeutil

import (
	"time"

	"github.com/stratumdb/stratum/pkg/util/syncutil"
)

// StopWatch is a utility stop watch that can be safely started and stopped
// multiple times and can be used concurrently.
type StopWatch struct {
	mu struct {
		syncutil.Mutex
		// started is true if the StopWatch has been started and haven't been
		// stopped after that.
		started bool
		// startedAt is the time when the StopWatch was started.
		startedAt time.Time
		// elapsed is the total time measured by the StopWatch, i.e. between
		// all Starts and Stops.
		elapsed time.Duration
	}
	// timeSource is the source of time used by the stop watch. It is always
	// timeutil.Now except for tests.
	timeSource func() time.Time
}

// NewStopWatch creates a new StopWatch.
func NewStopWatch() *StopWatch {
	return newStopWatch(Now)
}

// NewTestStopWatch creates a new StopWatch with the given time source. It is
// used for testing only.
func NewTestStopWatch(timeSource func() time.Time) *StopWatch {
	return newStopWatch(timeSource)
}

func newStopWatch(timeSource func() time.Time) *StopWatch {
	w := &StopWatch{}
	w.timeSource = timeSource
	return w
}

// Start starts the stop watch if it hasn't already been started.
func (w *StopWatch) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mu.started {
		w.mu.started = true
		w.mu.startedAt = w.timeSource()
	}
}

// Stop stops the stop watch if it hasn't already been stopped and accumulates
// the duration that elapsed since it was started. If the stop watch has
// already been stopped, it is a noop.
func (w *StopWatch) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mu.started {
		w.mu.started = false
		w.mu.elapsed += w.timeSource().Sub(w.mu.startedAt)
	}
}

// Elapsed returns the total time measured by the stop watch so far.
func (w *StopWatch) Elapsed() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mu.elapsed
}
