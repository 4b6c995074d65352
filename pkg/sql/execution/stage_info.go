// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import "time"

// StageID identifies a stage of the distributed plan.
type StageID string

// StageState is the lifecycle state of a stage, as reported by the
// distributed scheduler.
type StageState int

const (
	// StagePlanned means the stage exists but has no tasks yet.
	StagePlanned StageState = iota
	// StageScheduling means tasks are being placed.
	StageScheduling
	// StageRunning means tasks are executing.
	StageRunning
	// StageFinished means the stage completed successfully.
	StageFinished
	// StageCanceled means the stage was canceled.
	StageCanceled
	// StageAborted means the stage was aborted because the query failed.
	StageAborted
	// StageFailed means the stage failed.
	StageFailed
	// StageRecovering means the stage was stopped so the query can be
	// rescheduled from a snapshot. Done for scheduling purposes, but a query
	// with a recovering stage is not considered scheduled.
	StageRecovering
)

// IsDone returns true once the stage can make no further progress.
func (s StageState) IsDone() bool {
	switch s {
	case StageFinished, StageCanceled, StageAborted, StageFailed, StageRecovering:
		return true
	default:
		return false
	}
}

func (s StageState) String() string {
	switch s {
	case StagePlanned:
		return "PLANNED"
	case StageScheduling:
		return "SCHEDULING"
	case StageRunning:
		return "RUNNING"
	case StageFinished:
		return "FINISHED"
	case StageCanceled:
		return "CANCELED"
	case StageAborted:
		return "ABORTED"
	case StageFailed:
		return "FAILED"
	case StageRecovering:
		return "RECOVERING"
	default:
		return "UNKNOWN"
	}
}

// PlanNodeKind is the coarse classification of a plan node carried in stage
// fragments. The query state machine only needs to recognize table scans.
type PlanNodeKind int

const (
	// PlanNodeTableScan reads a connector table.
	PlanNodeTableScan PlanNodeKind = iota
	// PlanNodeExchange reads the output of another stage.
	PlanNodeExchange
	// PlanNodeValues produces inline rows.
	PlanNodeValues
)

// PlanFragment is the slice of the plan executed by one stage.
type PlanFragment struct {
	ID string
	// PartitionedSources are the leaf sources the scheduler partitions work
	// over. Raw-input accounting applies only to stages with at least one
	// table-scan partitioned source.
	PartitionedSources []PlanNodeKind
}

// hasTableScanSource returns whether the fragment reads directly from a
// connector.
func (f *PlanFragment) hasTableScanSource() bool {
	if f == nil {
		return false
	}
	for _, k := range f.PartitionedSources {
		if k == PlanNodeTableScan {
			return true
		}
	}
	return false
}

// BlockedReason describes why drivers of a stage are blocked.
type BlockedReason int

const (
	// BlockedWaitingForMemory means the stage cannot reserve memory.
	BlockedWaitingForMemory BlockedReason = iota
	// BlockedWaitingForSplits means the stage has no work enumerated yet.
	BlockedWaitingForSplits
	// BlockedWaitingForOutput means consumers are not draining output.
	BlockedWaitingForOutput
)

// StageGCStatistics is per-stage garbage-collection telemetry reported by
// task runtimes.
type StageGCStatistics struct {
	StageID    StageID
	Tasks      int
	FullGCs    int
	FullGCTime time.Duration
}

// OperatorSummary is a roll-up of one operator's contribution to a stage.
type OperatorSummary struct {
	PlanNodeID   string
	OperatorType string
	InputRows    int64
	InputBytes   int64
	OutputRows   int64
	OutputBytes  int64
}

// TaskInfo is the per-task slice of stage telemetry retained in snapshots.
type TaskInfo struct {
	TaskID   TaskID
	Location TaskLocation
	Complete bool
}

// StageStats is the telemetry roll-up the scheduler supplies per stage. The
// query state machine aggregates these across the stage tree; it never
// computes them.
type StageStats struct {
	TotalTasks     int
	RunningTasks   int
	CompletedTasks int
	FailedTasks    int

	TotalDrivers     int
	QueuedDrivers    int
	RunningDrivers   int
	BlockedDrivers   int
	CompletedDrivers int

	CumulativeUserMemory       int64
	UserMemoryReservation      int64
	RevocableMemoryReservation int64
	TotalMemoryReservation     int64

	TotalScheduledTime time.Duration
	TotalCPUTime       time.Duration
	TotalBlockedTime   time.Duration
	FullyBlocked       bool
	BlockedReasons     []BlockedReason

	RawInputDataSize        int64
	RawInputPositions       int64
	ProcessedInputDataSize  int64
	ProcessedInputPositions int64
	OutputDataSize          int64
	OutputPositions         int64
	PhysicalWrittenDataSize int64

	GCInfo            StageGCStatistics
	OperatorSummaries []OperatorSummary
}

// StageInfo is one node of the stage tree handed to the query state machine
// by the distributed scheduler when assembling snapshots.
type StageInfo struct {
	StageID      StageID
	State        StageState
	Restoring    bool
	Self         string
	Plan         *PlanFragment
	Stats        StageStats
	Tasks        []TaskInfo
	SubStages    []*StageInfo
	FailureCause *Failure
}

// CompleteInfo reports whether the stage's telemetry is final: the stage is
// done and every task has reported its terminal stats.
func (s *StageInfo) CompleteInfo() bool {
	if !s.State.IsDone() {
		return false
	}
	for i := range s.Tasks {
		if !s.Tasks[i].Complete {
			return false
		}
	}
	return true
}

// AllStages returns the stage tree flattened in preorder. A nil root yields
// nil.
func AllStages(root *StageInfo) []*StageInfo {
	if root == nil {
		return nil
	}
	stages := []*StageInfo{root}
	for _, sub := range root.SubStages {
		stages = append(stages, AllStages(sub)...)
	}
	return stages
}

// BasicStageStats is the lightweight stage roll-up used for BasicQueryInfo.
// Unlike StageInfo it is already aggregated across the stage tree by the
// caller.
type BasicStageStats struct {
	Scheduled bool

	FailedTasks int

	TotalDrivers     int
	QueuedDrivers    int
	RunningDrivers   int
	CompletedDrivers int

	RawInputDataSize  int64
	RawInputPositions int64

	CumulativeUserMemory   int64
	UserMemoryReservation  int64
	TotalMemoryReservation int64

	TotalCPUTime       time.Duration
	TotalScheduledTime time.Duration

	FullyBlocked   bool
	BlockedReasons []BlockedReason

	// ProgressPercentage is negative when progress cannot be estimated.
	ProgressPercentage float64
}

// EmptyStageStats is the roll-up used when no stages exist yet.
var EmptyStageStats = BasicStageStats{ProgressPercentage: -1}
