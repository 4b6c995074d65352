// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

// QueryState is the lifecycle state of a query. The numeric order of the
// constants is meaningful: forward-only transitions are guarded by ordinal
// comparisons, so states must be declared in phase-progression order.
type QueryState int

const (
	// QueryQueued means the query has been accepted and is waiting to be
	// dispatched.
	QueryQueued QueryState = iota
	// QueryWaitingForResources means the query is waiting for resource-group
	// admission.
	QueryWaitingForResources
	// QueryDispatching means the query is being handed to a coordinator.
	QueryDispatching
	// QueryPlanning means the query is being planned.
	QueryPlanning
	// QueryStarting means stages are being scheduled.
	QueryStarting
	// QueryRunning means at least one stage is executing.
	QueryRunning
	// QuerySuspended means execution has been paused and can be resumed.
	QuerySuspended
	// QueryRecovering means a running query is being rescheduled following a
	// node-level snapshot; it re-enters QueryStarting.
	QueryRecovering
	// QueryFinishing means output is complete and the transaction is being
	// finalized.
	QueryFinishing
	// QueryFinished means the query completed successfully. Terminal.
	QueryFinished
	// QueryFailed means the query failed or was canceled. Terminal.
	QueryFailed
)

// TerminalQueryStates are the states that absorb all further transitions.
var TerminalQueryStates = []QueryState{QueryFinished, QueryFailed}

// IsDone returns true if the state is terminal.
func (s QueryState) IsDone() bool {
	return s == QueryFinished || s == QueryFailed
}

func (s QueryState) String() string {
	switch s {
	case QueryQueued:
		return "QUEUED"
	case QueryWaitingForResources:
		return "WAITING_FOR_RESOURCES"
	case QueryDispatching:
		return "DISPATCHING"
	case QueryPlanning:
		return "PLANNING"
	case QueryStarting:
		return "STARTING"
	case QueryRunning:
		return "RUNNING"
	case QuerySuspended:
		return "SUSPENDED"
	case QueryRecovering:
		return "RECOVERING"
	case QueryFinishing:
		return "FINISHING"
	case QueryFinished:
		return "FINISHED"
	case QueryFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}
