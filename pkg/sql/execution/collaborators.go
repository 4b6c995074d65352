// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import "math"

// TaskID identifies a task within a stage.
type TaskID string

// TaskLocation is the exchange location of a task's output buffer.
type TaskLocation struct {
	URI string
	// InstanceID distinguishes task attempts sharing a URI.
	InstanceID string
}

// TransactionManager mediates transaction lifecycle for queries. The query
// state machine requests commit and abort asynchronously and never blocks a
// transition on transaction work.
type TransactionManager interface {
	// Begin opens a new transaction and returns its id.
	Begin(autoCommit bool) TransactionID
	// TransactionExists reports whether the transaction is known and still
	// open.
	TransactionExists(id TransactionID) bool
	// IsAutoCommit reports whether the transaction was opened implicitly for
	// a single query.
	IsAutoCommit(id TransactionID) bool
	// AsyncCommit starts committing the transaction. The returned channel
	// receives the commit outcome exactly once.
	AsyncCommit(id TransactionID) <-chan error
	// AsyncAbort starts aborting the transaction. The returned channel
	// receives the abort outcome exactly once.
	AsyncAbort(id TransactionID) <-chan error
	// Fail marks the transaction failed so that it can only be rolled back.
	Fail(id TransactionID)
}

// Metadata is the subset of the metadata layer the query state machine needs:
// per-query cleanup of caches and accumulated metadata state.
type Metadata interface {
	CleanupQuery(session *Session) error
}

// TaskManager is the subset of the task layer the query state machine needs:
// teardown of the per-query task context.
type TaskManager interface {
	CleanupQueryContext(queryID QueryID)
}

// UnlimitedMemory is the SoftReservedMemory value meaning "no reservation
// limit".
const UnlimitedMemory int64 = math.MaxInt64

// ResourceGroupManager exposes the resource-group facts the query state
// machine samples at construction.
type ResourceGroupManager interface {
	IsGroupRegistered(group ResourceGroupID) bool
	// SoftReservedMemory returns the group's soft memory reservation in
	// bytes, or UnlimitedMemory.
	SoftReservedMemory(group ResourceGroupID) int64
}

// RecoveryState is the state of the query recovery collaborator.
type RecoveryState int

const (
	// RecoveryIdle means no recovery activity is in progress.
	RecoveryIdle RecoveryState = iota
	// RecoveryStoppingForReschedule means tasks are being stopped so the
	// query can be rescheduled from a snapshot.
	RecoveryStoppingForReschedule
	// RecoveryRescheduling means the query is being rescheduled.
	RecoveryRescheduling
)

// QueryRecoveryManager coordinates rescheduling a query from a node-level
// snapshot.
type QueryRecoveryManager interface {
	State() RecoveryState
	RescheduleQuery() error
}

// Warning is a non-fatal diagnostic accumulated during execution.
type Warning struct {
	Code    int
	Message string
}

// WarningCollector accumulates warnings for inclusion in query snapshots.
type WarningCollector interface {
	Warnings() []Warning
}

// Input identifies a table read by the query.
type Input struct {
	Catalog string
	Schema  string
	Table   string
	Columns []string
}

// Output identifies the table written by the query, if any.
type Output struct {
	Catalog string
	Schema  string
	Table   string
}
