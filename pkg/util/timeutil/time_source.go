// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package timeutil

import (
	"time"

	"github.com/stratumdb/stratum/pkg/util/syncutil"
)

// TimeSource is used to interact with clocks. It is a narrow interface so
// that a manual clock can be plugged in for deterministic tests.
type TimeSource interface {
	Now() time.Time
}

// DefaultTimeSource is a TimeSource using the system clock.
type DefaultTimeSource struct{}

var _ TimeSource = DefaultTimeSource{}

// Now returns timeutil.Now().
func (DefaultTimeSource) Now() time.Time {
	return Now()
}

// TestTimeSource is a source of time that remembers when it was created and
// advances only when asked to. Safe for concurrent use.
type TestTimeSource struct {
	mu struct {
		syncutil.Mutex
		now time.Time
	}
}

var _ TimeSource = (*TestTimeSource)(nil)

// NewTestTimeSource constructs a new TestTimeSource anchored at the current
// time.
func NewTestTimeSource() *TestTimeSource {
	t := &TestTimeSource{}
	t.mu.now = Now()
	return t
}

// Now returns the current time as tracked by the TestTimeSource.
func (t *TestTimeSource) Now() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.now
}

// Advance forwards the TestTimeSource's clock by the given duration.
func (t *TestTimeSource) Advance(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.now = t.mu.now.Add(d)
}
