// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"time"

	"github.com/stratumdb/stratum/pkg/util/syncutil"
	"github.com/stratumdb/stratum/pkg/util/timeutil"
)

// queryStateTimer records when each lifecycle phase of a query began and
// derives phase durations by differencing those readings. Phase begins are
// last-write-wins; the end-of-query stamp is written once. All readings come
// from a single TimeSource so tests can drive the clock deterministically.
type queryStateTimer struct {
	source timeutil.TimeSource

	mu struct {
		syncutil.Mutex

		createTime time.Time

		beginWaitingForResources time.Time
		beginDispatching         time.Time
		beginPlanning            time.Time
		// executionStart is stamped on every request to enter STARTING,
		// whether or not the transition fires.
		executionStart time.Time
		beginFinishing time.Time
		endTime        time.Time

		lastHeartbeat time.Time

		// Analysis spans accumulate across begin/end pairs. A span left open
		// contributes nothing until its end is recorded.
		syntaxAnalysisTime       time.Duration
		analysisTime             time.Duration
		logicalPlanningTime      time.Duration
		distributedPlanningTime  time.Duration
		syntaxAnalysisStart      time.Time
		analysisStart            time.Time
		logicalPlanningStart     time.Time
		distributedPlanningStart time.Time
	}
}

func newQueryStateTimer(source timeutil.TimeSource) *queryStateTimer {
	t := &queryStateTimer{source: source}
	now := source.Now()
	t.mu.createTime = now
	t.mu.lastHeartbeat = now
	return t
}

func (t *queryStateTimer) beginWaitingForResources() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.beginWaitingForResources = t.source.Now()
}

func (t *queryStateTimer) beginDispatching() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.beginDispatching = t.source.Now()
}

func (t *queryStateTimer) beginPlanning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.beginPlanning = t.source.Now()
}

func (t *queryStateTimer) beginStarting() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.executionStart = t.source.Now()
}

func (t *queryStateTimer) beginFinishing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.beginFinishing = t.source.Now()
}

// endQuery stamps the end of the query. Only the first call takes effect.
func (t *queryStateTimer) endQuery() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mu.endTime.IsZero() {
		t.mu.endTime = t.source.Now()
	}
}

func (t *queryStateTimer) recordHeartbeat() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.lastHeartbeat = t.source.Now()
}

func (t *queryStateTimer) beginSyntaxAnalysis() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.syntaxAnalysisStart = t.source.Now()
}

func (t *queryStateTimer) endSyntaxAnalysis() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.mu.syntaxAnalysisStart.IsZero() {
		t.mu.syntaxAnalysisTime += t.source.Now().Sub(t.mu.syntaxAnalysisStart)
		t.mu.syntaxAnalysisStart = time.Time{}
	}
}

func (t *queryStateTimer) beginAnalysis() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.analysisStart = t.source.Now()
}

func (t *queryStateTimer) endAnalysis() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.mu.analysisStart.IsZero() {
		t.mu.analysisTime += t.source.Now().Sub(t.mu.analysisStart)
		t.mu.analysisStart = time.Time{}
	}
}

func (t *queryStateTimer) beginLogicalPlanning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.logicalPlanningStart = t.source.Now()
}

func (t *queryStateTimer) endLogicalPlanning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.mu.logicalPlanningStart.IsZero() {
		t.mu.logicalPlanningTime += t.source.Now().Sub(t.mu.logicalPlanningStart)
		t.mu.logicalPlanningStart = time.Time{}
	}
}

func (t *queryStateTimer) beginDistributedPlanning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.distributedPlanningStart = t.source.Now()
}

func (t *queryStateTimer) endDistributedPlanning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.mu.distributedPlanningStart.IsZero() {
		t.mu.distributedPlanningTime += t.source.Now().Sub(t.mu.distributedPlanningStart)
		t.mu.distributedPlanningStart = time.Time{}
	}
}

func (t *queryStateTimer) createTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.createTime
}

func (t *queryStateTimer) lastHeartbeat() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.lastHeartbeat
}

// executionStartTime returns the latest beginStarting stamp, or a zero time if
// beginStarting was never called.
func (t *queryStateTimer) executionStartTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.executionStart
}

// endTime returns the end-of-query stamp, or a zero time if the query has not
// ended.
func (t *queryStateTimer) endTime() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.endTime
}

// span measures from begin to the first non-zero candidate end, falling back
// to now. A zero begin yields zero.
func (t *queryStateTimer) span(begin time.Time, ends ...time.Time) time.Duration {
	if begin.IsZero() {
		return 0
	}
	for _, e := range ends {
		if !e.IsZero() {
			return clampDuration(e.Sub(begin))
		}
	}
	return clampDuration(t.source.Now().Sub(begin))
}

func clampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func (t *queryStateTimer) elapsedTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.span(t.mu.createTime, t.mu.endTime)
}

func (t *queryStateTimer) queuedTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.span(t.mu.createTime,
		t.mu.beginWaitingForResources, t.mu.beginDispatching, t.mu.beginPlanning,
		t.mu.executionStart, t.mu.endTime)
}

func (t *queryStateTimer) resourceWaitingTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.span(t.mu.beginWaitingForResources,
		t.mu.beginDispatching, t.mu.beginPlanning, t.mu.executionStart, t.mu.endTime)
}

func (t *queryStateTimer) dispatchingTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.span(t.mu.beginDispatching,
		t.mu.beginPlanning, t.mu.executionStart, t.mu.endTime)
}

func (t *queryStateTimer) planningTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.span(t.mu.beginPlanning, t.mu.executionStart, t.mu.endTime)
}

func (t *queryStateTimer) executionTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.span(t.mu.executionStart, t.mu.endTime)
}

func (t *queryStateTimer) finishingTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.span(t.mu.beginFinishing, t.mu.endTime)
}

func (t *queryStateTimer) syntaxAnalysisTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.syntaxAnalysisTime
}

func (t *queryStateTimer) analysisTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.analysisTime
}

func (t *queryStateTimer) logicalPlanningTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.logicalPlanningTime
}

func (t *queryStateTimer) distributedPlanningTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mu.distributedPlanningTime
}
