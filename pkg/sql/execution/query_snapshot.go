// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"sort"
	"time"

	"github.com/stratumdb/stratum/pkg/util/log"
)

var updateQueryInfoLogEvery = log.Every(10 * time.Second)

// BasicQueryInfo composes the lightweight view of the query from the current
// state and an aggregated stage roll-up supplied by the scheduler. rootStage
// may be nil when no stages exist yet.
func (m *QueryStateMachine) BasicQueryInfo(rootStage *BasicStageStats) *BasicQueryInfo {
	// The query state must be captured first in order to provide a correct
	// view of the query. For example, building this information the query
	// could finish, and the stage telemetry would never be visible.
	state := m.state.Get()

	var errorCode ErrorCode
	var failed bool
	if state == QueryFailed {
		failed = true
		if cause := m.failureCause.Load(); cause != nil {
			errorCode = cause.Code
		}
	}

	stageStats := EmptyStageStats
	if rootStage != nil {
		stageStats = *rootStage
	}

	stats := BasicQueryStats{
		CreateTime:    m.timer.createTime(),
		EndTime:       m.timer.endTime(),
		QueuedTime:    m.timer.queuedTime(),
		ElapsedTime:   m.timer.elapsedTime(),
		ExecutionTime: m.timer.executionTime(),

		FailedTasks: stageStats.FailedTasks,

		TotalDrivers:     stageStats.TotalDrivers,
		QueuedDrivers:    stageStats.QueuedDrivers,
		RunningDrivers:   stageStats.RunningDrivers,
		CompletedDrivers: stageStats.CompletedDrivers,

		RawInputDataSize:  stageStats.RawInputDataSize,
		RawInputPositions: stageStats.RawInputPositions,

		CumulativeUserMemory:   stageStats.CumulativeUserMemory,
		UserMemoryReservation:  stageStats.UserMemoryReservation,
		TotalMemoryReservation: stageStats.TotalMemoryReservation,
		PeakUserMemory:         m.peakUserMemory.Load(),
		PeakTotalMemory:        m.peakTotalMemory.Load(),

		TotalCPUTime:       stageStats.TotalCPUTime,
		TotalScheduledTime: stageStats.TotalScheduledTime,

		FullyBlocked:   stageStats.FullyBlocked,
		BlockedReasons: stageStats.BlockedReasons,

		ProgressPercentage: stageStats.ProgressPercentage,
	}

	return &BasicQueryInfo{
		QueryID:         m.queryID,
		Session:         m.session.Representation(),
		ResourceGroupID: m.resourceGroup,
		State:           state,
		MemoryPool:      m.memoryPool.Load().ID,
		Scheduled:       stageStats.Scheduled,
		Self:            m.self,
		Query:           m.query,
		PreparedQuery:   m.preparedQuery,
		Stats:           stats,
		ErrorCode:       errorCode,
		Failed:          failed,
		RecoveryEnabled: m.recoveryEnabled,
	}
}

// QueryInfo composes the full immutable view of the query from the current
// state and the supplied stage tree. rootStage may be nil.
func (m *QueryStateMachine) QueryInfo(rootStage *StageInfo) *QueryInfo {
	// Capture the state first; see BasicQueryInfo.
	state := m.state.Get()

	var failureInfo *Failure
	var errorCode ErrorCode
	if state == QueryFailed {
		failureInfo = m.failureCause.Load()
		if failureInfo != nil {
			errorCode = failureInfo.Code
		}
	}

	completeInfo := true
	for _, stage := range AllStages(rootStage) {
		completeInfo = completeInfo && stage.CompleteInfo()
	}

	var fieldNames []string
	if outputInfo := m.output.queryOutputInfo(); outputInfo != nil {
		fieldNames = outputInfo.ColumnNames
	}

	var warnings []Warning
	if m.warnings != nil {
		warnings = m.warnings.Warnings()
	}

	m.mu.Lock()
	setCatalog := m.mu.setCatalog
	setSchema := m.mu.setSchema
	setPath := m.mu.setPath
	setSessionProperties := copyStringMap(m.mu.setSessionProperties)
	resetSessionProperties := sortedKeys(m.mu.resetSessionProperties)
	setRoles := make(map[string]SelectedRole, len(m.mu.setRoles))
	for k, v := range m.mu.setRoles {
		setRoles[k] = v
	}
	addedPreparedStatements := copyStringMap(m.mu.addedPreparedStatements)
	deallocatedPreparedStatements := sortedKeys(m.mu.deallocatedPreparedStatements)
	startedTransactionID := m.mu.startedTransactionID
	clearTransactionID := m.mu.clearTransactionID
	updateType := m.mu.updateType
	inputs := append([]Input(nil), m.mu.inputs...)
	output := m.mu.output
	m.mu.Unlock()

	return &QueryInfo{
		QueryID:                       m.queryID,
		Session:                       m.session.Representation(),
		State:                         state,
		MemoryPool:                    m.memoryPool.Load().ID,
		Scheduled:                     isScheduled(rootStage),
		Self:                          m.self,
		FieldNames:                    fieldNames,
		Query:                         m.query,
		PreparedQuery:                 m.preparedQuery,
		Stats:                         m.queryStats(rootStage),
		SetCatalog:                    setCatalog,
		SetSchema:                     setSchema,
		SetPath:                       setPath,
		SetSessionProperties:          setSessionProperties,
		ResetSessionProperties:        resetSessionProperties,
		SetRoles:                      setRoles,
		AddedPreparedStatements:       addedPreparedStatements,
		DeallocatedPreparedStatements: deallocatedPreparedStatements,
		StartedTransactionID:          startedTransactionID,
		ClearTransactionID:            clearTransactionID,
		UpdateType:                    updateType,
		OutputStage:                   rootStage,
		FailureInfo:                   failureInfo,
		ErrorCode:                     errorCode,
		Warnings:                      warnings,
		Inputs:                        inputs,
		Output:                        output,
		CompleteInfo:                  completeInfo,
		ResourceGroupID:               m.resourceGroup,
		RunningAsync:                  m.runningAsync.Load(),
		RecoveryEnabled:               m.recoveryEnabled,
	}
}

// queryStats aggregates stage telemetry across the supplied tree and combines
// it with the timer and memory watermarks.
func (m *QueryStateMachine) queryStats(rootStage *StageInfo) QueryStats {
	stats := QueryStats{
		CreateTime:         m.timer.createTime(),
		ExecutionStartTime: m.timer.executionStartTime(),
		LastHeartbeat:      m.timer.lastHeartbeat(),
		EndTime:            m.timer.endTime(),

		ElapsedTime:             m.timer.elapsedTime(),
		QueuedTime:              m.timer.queuedTime(),
		ResourceWaitingTime:     m.timer.resourceWaitingTime(),
		DispatchingTime:         m.timer.dispatchingTime(),
		ExecutionTime:           m.timer.executionTime(),
		SyntaxAnalysisTime:      m.timer.syntaxAnalysisTime(),
		AnalysisTime:            m.timer.analysisTime(),
		LogicalPlanningTime:     m.timer.logicalPlanningTime(),
		DistributedPlanningTime: m.timer.distributedPlanningTime(),
		PlanningTime:            m.timer.planningTime(),
		FinishingTime:           m.timer.finishingTime(),

		PeakUserMemory:          m.peakUserMemory.Load(),
		PeakRevocableMemory:     m.peakRevocableMemory.Load(),
		PeakTotalMemory:         m.peakTotalMemory.Load(),
		PeakTaskUserMemory:      m.peakTaskUserMemory.Load(),
		PeakTaskRevocableMemory: m.peakTaskRevocableMemory.Load(),
		PeakTaskTotalMemory:     m.peakTaskTotalMemory.Load(),

		Scheduled: isScheduled(rootStage),
	}

	fullyBlocked := rootStage != nil
	blockedReasons := make(map[BlockedReason]struct{})

	for _, stage := range AllStages(rootStage) {
		stageStats := &stage.Stats

		stats.TotalTasks += stageStats.TotalTasks
		stats.RunningTasks += stageStats.RunningTasks
		stats.CompletedTasks += stageStats.CompletedTasks
		stats.FailedTasks += stageStats.FailedTasks

		stats.TotalDrivers += stageStats.TotalDrivers
		stats.QueuedDrivers += stageStats.QueuedDrivers
		stats.RunningDrivers += stageStats.RunningDrivers
		stats.BlockedDrivers += stageStats.BlockedDrivers
		stats.CompletedDrivers += stageStats.CompletedDrivers

		stats.CumulativeUserMemory += stageStats.CumulativeUserMemory
		stats.UserMemoryReservation += stageStats.UserMemoryReservation
		stats.RevocableMemoryReservation += stageStats.RevocableMemoryReservation
		stats.TotalMemoryReservation += stageStats.TotalMemoryReservation

		stats.TotalScheduledTime += stageStats.TotalScheduledTime
		stats.TotalCPUTime += stageStats.TotalCPUTime
		stats.TotalBlockedTime += stageStats.TotalBlockedTime

		if !stage.State.IsDone() {
			fullyBlocked = fullyBlocked && stageStats.FullyBlocked
			for _, reason := range stageStats.BlockedReasons {
				blockedReasons[reason] = struct{}{}
			}
		}

		// Raw input is counted only for stages reading directly from a
		// connector; exchange-fed stages would double-count it.
		if stage.Plan.hasTableScanSource() {
			stats.RawInputDataSize += stageStats.RawInputDataSize
			stats.RawInputPositions += stageStats.RawInputPositions
			stats.ProcessedInputDataSize += stageStats.ProcessedInputDataSize
			stats.ProcessedInputPositions += stageStats.ProcessedInputPositions
		}

		stats.PhysicalWrittenDataSize += stageStats.PhysicalWrittenDataSize

		stats.StageGCStatistics = append(stats.StageGCStatistics, stageStats.GCInfo)
		stats.OperatorSummaries = append(stats.OperatorSummaries, stageStats.OperatorSummaries...)
	}

	if rootStage != nil {
		stats.OutputDataSize = rootStage.Stats.OutputDataSize
		stats.OutputPositions = rootStage.Stats.OutputPositions
	}

	stats.FullyBlocked = fullyBlocked
	if len(blockedReasons) > 0 {
		reasons := make([]BlockedReason, 0, len(blockedReasons))
		for reason := range blockedReasons {
			reasons = append(reasons, reason)
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
		stats.BlockedReasons = reasons
	}
	return stats
}

// UpdateQueryInfo assembles a full snapshot and records it in the one-shot
// final cell if it reports final content. If recovery is enabled and the
// recovery collaborator reports it is stopping for a reschedule with all
// stages done, the query transitions to RECOVERING and a reschedule is
// requested.
//
// The recovery transition couples this read path with the mutate path: it can
// race with external callers driving their own transitions, and the loser's
// transition is simply rejected by the state register. The race is inherent
// to sampling the recovery collaborator here and is deliberately left as is.
func (m *QueryStateMachine) UpdateQueryInfo(
	rootStage *StageInfo, recoveryManager QueryRecoveryManager,
) *QueryInfo {
	if updateQueryInfoLogEvery.ShouldLog() {
		log.VEventf(m.ctx, 2, "updating query info for %s in state %s", m.queryID, m.state.Get())
	}
	info := m.QueryInfo(rootStage)
	if info.FinalQueryInfo() {
		m.finalInfo.SetIf(info, func(current *QueryInfo) bool {
			return current == nil
		})
	} else if m.recoveryEnabled && recoveryManager != nil &&
		recoveryManager.State() == RecoveryStoppingForReschedule &&
		info.AllStagesDone() {
		m.TransitionToRecovering()
		if err := recoveryManager.RescheduleQuery(); err != nil {
			log.Warningf(m.ctx, "error rescheduling query: %v", err)
			m.TransitionToFailed(err)
		}
	}
	return info
}

// PruneQueryInfo replaces the final snapshot with a structurally shrunken
// variant, dropping the retained plan, task lists, sub-stage lists and
// operator summaries while keeping all scalar telemetry. The swap is a
// compare-and-set from the previously recorded snapshot.
func (m *QueryStateMachine) PruneQueryInfo() {
	finalInfo := m.finalInfo.Get()
	if finalInfo == nil || finalInfo.OutputStage == nil {
		return
	}
	pruned := pruneQueryInfo(finalInfo)
	m.finalInfo.SetIf(pruned, func(current *QueryInfo) bool {
		return current == finalInfo
	})
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(in map[string]struct{}) []string {
	out := make([]string, 0, len(in))
	for k := range in {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
