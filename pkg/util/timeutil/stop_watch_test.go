// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStopWatch(t *testing.T) {
	source := NewTestTimeSource()
	w := NewTestStopWatch(source.Now)

	w.Start()
	source.Advance(time.Second)
	w.Stop()
	require.Equal(t, time.Second, w.Elapsed())

	// Time passing while stopped is not accumulated.
	source.Advance(time.Minute)
	require.Equal(t, time.Second, w.Elapsed())

	// Elapsed accumulates across runs, and a duplicate Start or Stop is a
	// noop.
	w.Start()
	w.Start()
	source.Advance(2 * time.Second)
	w.Stop()
	w.Stop()
	require.Equal(t, 3*time.Second, w.Elapsed())
}

func TestTestTimeSource(t *testing.T) {
	source := NewTestTimeSource()
	start := source.Now()
	source.Advance(time.Hour)
	require.Equal(t, start.Add(time.Hour), source.Now())
}
