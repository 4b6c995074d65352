// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"fmt"
	"time"

	"github.com/stratumdb/stratum/pkg/util/humanizeutil"
)

// QueryStats is the full telemetry roll-up embedded in QueryInfo. Byte
// quantities are raw counts; use String for a human-readable summary.
type QueryStats struct {
	CreateTime         time.Time
	ExecutionStartTime time.Time
	LastHeartbeat      time.Time
	EndTime            time.Time

	ElapsedTime             time.Duration
	QueuedTime              time.Duration
	ResourceWaitingTime     time.Duration
	DispatchingTime         time.Duration
	ExecutionTime           time.Duration
	SyntaxAnalysisTime      time.Duration
	AnalysisTime            time.Duration
	LogicalPlanningTime     time.Duration
	DistributedPlanningTime time.Duration
	PlanningTime            time.Duration
	FinishingTime           time.Duration

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
	PeakUserMemory             int64
	PeakRevocableMemory        int64
	PeakTotalMemory            int64
	PeakTaskUserMemory         int64
	PeakTaskRevocableMemory    int64
	PeakTaskTotalMemory        int64

	Scheduled bool

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

	StageGCStatistics []StageGCStatistics
	OperatorSummaries []OperatorSummary
}

func (s *QueryStats) String() string {
	return fmt.Sprintf(
		"elapsed %s, %d tasks (%d failed), %d drivers, input %s / %d rows, peak memory %s",
		s.ElapsedTime,
		s.TotalTasks,
		s.FailedTasks,
		s.TotalDrivers,
		humanizeutil.IBytes(s.RawInputDataSize),
		s.RawInputPositions,
		humanizeutil.IBytes(s.PeakTotalMemory),
	)
}

// QueryInfo is the immutable, complete view of a query composed by the query
// state machine on demand. Once a QueryInfo reporting final content has been
// captured in the one-shot final cell, only pruned variants of it may replace
// it.
type QueryInfo struct {
	QueryID                       QueryID
	Session                       SessionRepresentation
	State                         QueryState
	MemoryPool                    MemoryPoolID
	Scheduled                     bool
	Self                          string
	FieldNames                    []string
	Query                         string
	PreparedQuery                 string
	Stats                         QueryStats
	SetCatalog                    string
	SetSchema                     string
	SetPath                       string
	SetSessionProperties          map[string]string
	ResetSessionProperties        []string
	SetRoles                      map[string]SelectedRole
	AddedPreparedStatements       map[string]string
	DeallocatedPreparedStatements []string
	StartedTransactionID          *TransactionID
	ClearTransactionID            bool
	UpdateType                    string
	OutputStage                   *StageInfo
	FailureInfo                   *Failure
	ErrorCode                     ErrorCode
	Warnings                      []Warning
	Inputs                        []Input
	Output                        *Output
	CompleteInfo                  bool
	ResourceGroupID               ResourceGroupID
	RunningAsync                  bool
	RecoveryEnabled               bool
}

// FinalQueryInfo reports whether this snapshot can never change again: the
// query is done and every stage has reported complete telemetry.
func (q *QueryInfo) FinalQueryInfo() bool {
	return q.State.IsDone() && q.CompleteInfo
}

// AllStagesDone reports whether every stage in the snapshot is done. A
// snapshot without stages vacuously qualifies.
func (q *QueryInfo) AllStagesDone() bool {
	for _, stage := range AllStages(q.OutputStage) {
		if !stage.State.IsDone() {
			return false
		}
	}
	return true
}

// BasicQueryStats is the lightweight stats block of BasicQueryInfo.
type BasicQueryStats struct {
	CreateTime    time.Time
	EndTime       time.Time
	QueuedTime    time.Duration
	ElapsedTime   time.Duration
	ExecutionTime time.Duration

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
	PeakUserMemory         int64
	PeakTotalMemory        int64

	TotalCPUTime       time.Duration
	TotalScheduledTime time.Duration

	FullyBlocked   bool
	BlockedReasons []BlockedReason

	ProgressPercentage float64
}

// BasicQueryInfo is the lightweight view of a query used by pollers that do
// not need the full stage tree.
type BasicQueryInfo struct {
	QueryID         QueryID
	Session         SessionRepresentation
	ResourceGroupID ResourceGroupID
	State           QueryState
	MemoryPool      MemoryPoolID
	Scheduled       bool
	Self            string
	Query           string
	PreparedQuery   string
	Stats           BasicQueryStats
	ErrorCode       ErrorCode
	Failed          bool
	RecoveryEnabled bool
}

// isScheduled implements the scheduled predicate over a stage tree: the root
// must be present and every stage must be RUNNING or done, where RECOVERING,
// although done for the scheduler, does not count as scheduled.
func isScheduled(rootStage *StageInfo) bool {
	if rootStage == nil {
		return false
	}
	for _, stage := range AllStages(rootStage) {
		state := stage.State
		if state == StageRunning {
			continue
		}
		if state.IsDone() && state != StageRecovering {
			continue
		}
		return false
	}
	return true
}

// pruneStageInfo shrinks a stage for long-term retention: the plan, the task
// list and the sub-stage list are dropped, stats and identity survive.
func pruneStageInfo(stage *StageInfo) *StageInfo {
	if stage == nil {
		return nil
	}
	pruned := *stage
	pruned.Plan = nil
	pruned.Tasks = nil
	pruned.SubStages = nil
	return &pruned
}

// pruneQueryStats drops the operator summaries, which can retain a large
// amount of memory through exchange-client state. All scalar counters and
// timing data survive unchanged.
func pruneQueryStats(stats QueryStats) QueryStats {
	pruned := stats
	pruned.OperatorSummaries = nil
	return pruned
}

// pruneQueryInfo returns a structurally shrunken copy of info suitable for
// retention after the query is gone.
func pruneQueryInfo(info *QueryInfo) *QueryInfo {
	pruned := *info
	pruned.OutputStage = pruneStageInfo(info.OutputStage)
	pruned.Stats = pruneQueryStats(info.Stats)
	return &pruned
}
