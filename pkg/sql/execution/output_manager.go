// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/stratumdb/stratum/pkg/util/syncutil"
)

// ColumnType is the SQL type name of an output column.
type ColumnType string

// QueryOutputInfo is an immutable snapshot of the query's output schema and
// the exchange locations of the output stage known so far. It is published to
// output-info listeners every time either part changes, and once more when
// NoMoreLocations latches.
type QueryOutputInfo struct {
	ColumnNames []string
	ColumnTypes []ColumnType
	// ExchangeLocations preserves insertion order.
	ExchangeLocations []TaskExchangeLocation
	NoMoreLocations   bool
}

// TaskExchangeLocation pairs a task with its output exchange location.
type TaskExchangeLocation struct {
	TaskID   TaskID
	Location TaskLocation
}

// TaskFailureListener observes failures of output-stage tasks.
type TaskFailureListener func(taskID TaskID, failure error)

// queryOutputManager tracks the evolving output schema and exchange locations
// of a query and fans updates out to late-binding subscribers. All state is
// guarded by one monitor; listeners are always invoked via the executor,
// outside the monitor.
type queryOutputManager struct {
	executor Executor

	mu struct {
		syncutil.Mutex

		columnsSet  bool
		columnNames []string
		columnTypes []ColumnType

		// locationOrder preserves insertion order of exchangeLocations.
		locationOrder     []TaskID
		exchangeLocations map[TaskID]TaskLocation
		noMoreLocations   bool

		outputInfoListeners []func(*QueryOutputInfo)

		taskFailureOrder     []TaskID
		outputTaskFailures   map[TaskID]error
		taskFailureListeners []TaskFailureListener
	}
}

func newQueryOutputManager(executor Executor) *queryOutputManager {
	m := &queryOutputManager{executor: executor}
	m.mu.exchangeLocations = make(map[TaskID]TaskLocation)
	m.mu.outputTaskFailures = make(map[TaskID]error)
	return m
}

// addOutputInfoListener registers a listener for output-info updates. If the
// output info is already publishable (columns known), the listener is fired
// once, asynchronously, with the current info.
func (m *queryOutputManager) addOutputInfoListener(listener func(*QueryOutputInfo)) {
	var info *QueryOutputInfo
	m.mu.Lock()
	m.mu.outputInfoListeners = append(m.mu.outputInfoListeners, listener)
	info = m.queryOutputInfoLocked()
	m.mu.Unlock()
	if info != nil {
		m.executor.Execute(func() { listener(info) })
	}
}

// addOutputTaskFailureListener registers a listener for output-stage task
// failures. Failures recorded before registration are replayed,
// asynchronously, in recording order.
func (m *queryOutputManager) addOutputTaskFailureListener(listener TaskFailureListener) {
	m.mu.Lock()
	m.mu.taskFailureListeners = append(m.mu.taskFailureListeners, listener)
	replayOrder := append([]TaskID(nil), m.mu.taskFailureOrder...)
	failures := make(map[TaskID]error, len(m.mu.outputTaskFailures))
	for id, err := range m.mu.outputTaskFailures {
		failures[id] = err
	}
	m.mu.Unlock()
	m.executor.Execute(func() {
		for _, id := range replayOrder {
			listener(id, failures[id])
		}
	})
}

// recordTaskFailure records a failure of an output-stage task and notifies
// task-failure listeners.
func (m *queryOutputManager) recordTaskFailure(taskID TaskID, failure error) {
	m.mu.Lock()
	if _, ok := m.mu.outputTaskFailures[taskID]; !ok {
		m.mu.taskFailureOrder = append(m.mu.taskFailureOrder, taskID)
	}
	m.mu.outputTaskFailures[taskID] = failure
	listeners := append([]TaskFailureListener(nil), m.mu.taskFailureListeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		l := l
		m.executor.Execute(func() { l(taskID, failure) })
	}
}

// setColumns sets the output schema. It must be called at most once; the
// names and types must agree in arity. Both violations are programmer errors.
func (m *queryOutputManager) setColumns(columnNames []string, columnTypes []ColumnType) {
	if len(columnNames) != len(columnTypes) {
		panic(errors.AssertionFailedf(
			"columnNames and columnTypes must be the same size: %d != %d",
			len(columnNames), len(columnTypes)))
	}

	var info *QueryOutputInfo
	var listeners []func(*QueryOutputInfo)
	m.mu.Lock()
	if m.mu.columnsSet {
		m.mu.Unlock()
		panic(errors.AssertionFailedf("output columns already set"))
	}
	m.mu.columnsSet = true
	m.mu.columnNames = append([]string(nil), columnNames...)
	m.mu.columnTypes = append([]ColumnType(nil), columnTypes...)
	info = m.queryOutputInfoLocked()
	listeners = append(([]func(*QueryOutputInfo))(nil), m.mu.outputInfoListeners...)
	m.mu.Unlock()

	m.fireOutputInfoChanged(info, listeners)
}

// updateOutputLocations adds locations to the exchange-location map and
// optionally latches the no-more-locations flag. Once the latch is set, only
// deltas that are subsets of the known locations are accepted (and ignored);
// anything else is a programmer error.
func (m *queryOutputManager) updateOutputLocations(
	newExchangeLocations map[TaskID]TaskLocation, noMoreExchangeLocations bool,
) {
	var info *QueryOutputInfo
	var listeners []func(*QueryOutputInfo)
	m.mu.Lock()
	if m.mu.noMoreLocations {
		for id, loc := range newExchangeLocations {
			known, ok := m.mu.exchangeLocations[id]
			if !ok || known != loc {
				m.mu.Unlock()
				panic(errors.AssertionFailedf(
					"new locations added after no more locations set"))
			}
		}
		m.mu.Unlock()
		return
	}

	// Map iteration order is not stable; sort the batch so that location
	// order is deterministic across snapshots.
	ids := make([]TaskID, 0, len(newExchangeLocations))
	for id := range newExchangeLocations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, ok := m.mu.exchangeLocations[id]; !ok {
			m.mu.locationOrder = append(m.mu.locationOrder, id)
		}
		m.mu.exchangeLocations[id] = newExchangeLocations[id]
	}
	m.mu.noMoreLocations = noMoreExchangeLocations
	info = m.queryOutputInfoLocked()
	listeners = append(([]func(*QueryOutputInfo))(nil), m.mu.outputInfoListeners...)
	m.mu.Unlock()

	m.fireOutputInfoChanged(info, listeners)
}

// resetForResume prepares for a restart from RECOVERING: exchange locations
// will be announced afresh by the rescheduled output stage.
func (m *queryOutputManager) resetForResume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mu.noMoreLocations = false
	m.mu.locationOrder = nil
	m.mu.exchangeLocations = make(map[TaskID]TaskLocation)
}

// queryOutputInfo returns the current output info, or nil if the columns are
// not known yet.
func (m *queryOutputManager) queryOutputInfo() *QueryOutputInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryOutputInfoLocked()
}

func (m *queryOutputManager) queryOutputInfoLocked() *QueryOutputInfo {
	m.mu.AssertHeld()
	if !m.mu.columnsSet {
		return nil
	}
	locations := make([]TaskExchangeLocation, 0, len(m.mu.locationOrder))
	for _, id := range m.mu.locationOrder {
		locations = append(locations, TaskExchangeLocation{
			TaskID:   id,
			Location: m.mu.exchangeLocations[id],
		})
	}
	return &QueryOutputInfo{
		ColumnNames:       append([]string(nil), m.mu.columnNames...),
		ColumnTypes:       append([]ColumnType(nil), m.mu.columnTypes...),
		ExchangeLocations: locations,
		NoMoreLocations:   m.mu.noMoreLocations,
	}
}

func (m *queryOutputManager) fireOutputInfoChanged(
	info *QueryOutputInfo, listeners []func(*QueryOutputInfo),
) {
	if info == nil {
		return
	}
	for _, l := range listeners {
		l := l
		m.executor.Execute(func() { l(info) })
	}
}
