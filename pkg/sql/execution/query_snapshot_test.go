// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stratumdb/stratum/pkg/util/leaktest"
	"github.com/stratumdb/stratum/pkg/util/timeutil"
	"github.com/stretchr/testify/require"
)

// statsStage builds a stage with recognizable telemetry.
func statsStage(state StageState, scan bool) *StageInfo {
	sources := []PlanNodeKind{PlanNodeExchange}
	if scan {
		sources = []PlanNodeKind{PlanNodeTableScan}
	}
	return &StageInfo{
		StageID: "1",
		State:   state,
		Plan:    &PlanFragment{ID: "1", PartitionedSources: sources},
		Stats: StageStats{
			TotalTasks:       4,
			CompletedTasks:   4,
			TotalDrivers:     16,
			CompletedDrivers: 16,

			CumulativeUserMemory:   1 << 20,
			UserMemoryReservation:  1 << 20,
			TotalMemoryReservation: 2 << 20,

			TotalScheduledTime: 4 * time.Second,
			TotalCPUTime:       2 * time.Second,
			TotalBlockedTime:   time.Second,

			RawInputDataSize:        1 << 30,
			RawInputPositions:       1000,
			ProcessedInputDataSize:  1 << 29,
			ProcessedInputPositions: 500,
			OutputDataSize:          1 << 10,
			OutputPositions:         10,
			PhysicalWrittenDataSize: 1 << 20,

			GCInfo: StageGCStatistics{StageID: "1", Tasks: 4, FullGCs: 1},
			OperatorSummaries: []OperatorSummary{
				{PlanNodeID: "0", OperatorType: "TableScanOperator", OutputRows: 1000},
			},
		},
		Tasks: []TaskInfo{
			{TaskID: "1.0", Complete: state.IsDone()},
		},
	}
}

func TestQueryInfoStateCapturedFirst(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m, _ := newTestQuery(testQueryConfig{})
	require.True(t, m.TransitionToRunning())

	info := m.QueryInfo(statsStage(StageRunning, true /* scan */))
	require.Equal(t, QueryRunning, info.State)
	require.False(t, info.CompleteInfo)
	require.False(t, info.FinalQueryInfo())
}

func TestQueryStatsAggregation(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m, _ := newTestQuery(testQueryConfig{})

	root := statsStage(StageRunning, false /* scan */)
	child := statsStage(StageRunning, true /* scan */)
	child.StageID = "2"
	root.SubStages = []*StageInfo{child}

	stats := m.queryStats(root)
	require.Equal(t, 8, stats.TotalTasks)
	require.Equal(t, 32, stats.TotalDrivers)

	// Raw input is only counted for the table-scan stage; the exchange-fed
	// root would double-count it.
	require.Equal(t, int64(1<<30), stats.RawInputDataSize)
	require.Equal(t, int64(1000), stats.RawInputPositions)

	// Output comes from the root stage only.
	require.Equal(t, int64(1<<10), stats.OutputDataSize)
	require.Equal(t, int64(10), stats.OutputPositions)

	require.Equal(t, 8*time.Second, stats.TotalScheduledTime)
	require.Equal(t, 4*time.Second, stats.TotalCPUTime)
	require.Equal(t, 2*time.Second, stats.TotalBlockedTime)
	require.Len(t, stats.StageGCStatistics, 2)
	require.Len(t, stats.OperatorSummaries, 2)
}

func TestQueryStatsFullyBlocked(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m, _ := newTestQuery(testQueryConfig{})

	// No stages: not fully blocked.
	require.False(t, m.queryStats(nil).FullyBlocked)

	// All non-done stages blocked: fully blocked; done stages are ignored.
	root := statsStage(StageRunning, false)
	root.Stats.FullyBlocked = true
	root.Stats.BlockedReasons = []BlockedReason{BlockedWaitingForMemory}
	done := statsStage(StageFinished, true)
	done.Stats.FullyBlocked = false
	root.SubStages = []*StageInfo{done}
	stats := m.queryStats(root)
	require.True(t, stats.FullyBlocked)
	require.Equal(t, []BlockedReason{BlockedWaitingForMemory}, stats.BlockedReasons)

	// One unblocked running stage breaks the conjunction.
	running := statsStage(StageRunning, true)
	running.Stats.FullyBlocked = false
	root.SubStages = append(root.SubStages, running)
	require.False(t, m.queryStats(root).FullyBlocked)
}

func TestQueryInfoScheduledPredicate(t *testing.T) {
	defer leaktest.AfterTest(t)()
	require.False(t, isScheduled(nil))

	root := statsStage(StageRunning, true)
	require.True(t, isScheduled(root))

	pending := statsStage(StageScheduling, true)
	root.SubStages = []*StageInfo{pending}
	require.False(t, isScheduled(root))

	// Done stages count as scheduled, except RECOVERING.
	root.SubStages = []*StageInfo{statsStage(StageFinished, true)}
	require.True(t, isScheduled(root))
	root.SubStages = []*StageInfo{statsStage(StageRecovering, true)}
	require.False(t, isScheduled(root))
}

func TestBasicQueryInfo(t *testing.T) {
	defer leaktest.AfterTest(t)()
	source := timeutil.NewTestTimeSource()
	m, _ := newTestQuery(testQueryConfig{source: source})
	m.UpdateMemoryUsage(512, 0, 1024, 0, 0, 0)

	info := m.BasicQueryInfo(nil /* rootStage */)
	require.Equal(t, QueryQueued, info.State)
	require.False(t, info.Scheduled)
	require.Equal(t, float64(-1), info.Stats.ProgressPercentage)
	require.Equal(t, int64(512), info.Stats.PeakUserMemory)
	require.Equal(t, int64(1024), info.Stats.PeakTotalMemory)

	require.True(t, m.TransitionToFailed(NewQueryError(ErrorExceededMemoryLimit, "out of memory")))
	info = m.BasicQueryInfo(&BasicStageStats{Scheduled: true, FailedTasks: 2})
	require.True(t, info.Failed)
	require.Equal(t, ErrorExceededMemoryLimit, info.ErrorCode)
	require.Equal(t, 2, info.Stats.FailedTasks)
}

func TestPruneQueryInfoPreservesScalars(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m, _ := newTestQuery(testQueryConfig{})
	require.True(t, m.TransitionToRunning())
	require.True(t, m.TransitionToFinishing())

	root := statsStage(StageFinished, true)
	sub := statsStage(StageFinished, true)
	sub.StageID = "2"
	root.SubStages = []*StageInfo{sub}

	before := m.UpdateQueryInfo(root, nil)
	require.True(t, before.FinalQueryInfo())
	require.Same(t, before, m.FinalQueryInfo())

	m.PruneQueryInfo()
	after := m.FinalQueryInfo()
	require.NotSame(t, before, after)

	// Structure is gone.
	require.Nil(t, after.OutputStage.Plan)
	require.Nil(t, after.OutputStage.Tasks)
	require.Nil(t, after.OutputStage.SubStages)
	require.Nil(t, after.Stats.OperatorSummaries)

	// Scalar telemetry survives field by field.
	prunedStats := after.Stats
	expectedStats := before.Stats
	expectedStats.OperatorSummaries = nil
	require.Equal(t, expectedStats, prunedStats)
	require.Equal(t, before.OutputStage.Stats, after.OutputStage.Stats)
	require.Equal(t, before.State, after.State)
	require.Equal(t, before.QueryID, after.QueryID)

	// Pruning again is a no-op variant swap, never a content change.
	m.PruneQueryInfo()
	require.Equal(t, after.Stats, m.FinalQueryInfo().Stats)
}

func TestUpdateQueryInfoTriggersRecovery(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m, _ := newTestQuery(testQueryConfig{recoveryEnabled: true})
	require.True(t, m.TransitionToRunning())

	recovery := &testRecoveryManager{state: RecoveryStoppingForReschedule}

	// Stages not all done: no recovery transition yet.
	m.UpdateQueryInfo(statsStage(StageRunning, true), recovery)
	require.Equal(t, QueryRunning, m.State())
	require.Equal(t, int32(0), recovery.reschedules.Load())

	// All stages stopped: the snapshot path transitions to RECOVERING and
	// requests a reschedule.
	m.UpdateQueryInfo(statsStage(StageRecovering, true), recovery)
	require.Equal(t, QueryRecovering, m.State())
	require.Equal(t, int32(1), recovery.reschedules.Load())
}

func TestUpdateQueryInfoRescheduleFailureFailsQuery(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m, _ := newTestQuery(testQueryConfig{recoveryEnabled: true})
	require.True(t, m.TransitionToRunning())

	rescheduleErr := errors.New("no healthy nodes")
	recovery := &testRecoveryManager{
		state:         RecoveryStoppingForReschedule,
		rescheduleErr: rescheduleErr,
	}
	m.UpdateQueryInfo(statsStage(StageRecovering, true), recovery)
	require.Equal(t, QueryFailed, m.State())
	require.ErrorIs(t, m.FailureInfo().Cause, rescheduleErr)
}

func TestUpdateQueryInfoRecoveryDisabled(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m, _ := newTestQuery(testQueryConfig{recoveryEnabled: false})
	require.True(t, m.TransitionToRunning())

	recovery := &testRecoveryManager{state: RecoveryStoppingForReschedule}
	m.UpdateQueryInfo(statsStage(StageRecovering, true), recovery)
	require.Equal(t, QueryRunning, m.State())
	require.Equal(t, int32(0), recovery.reschedules.Load())
}

func TestQueryInfoSessionMutations(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m, _ := newTestQuery(testQueryConfig{})

	m.SetSetCatalog("hive")
	m.SetSetSchema("web")
	m.SetSetPath("a.b")
	m.AddSetSessionProperty("join_distribution_type", "BROADCAST")
	m.AddResetSessionProperty("task_concurrency")
	m.AddSetRole("hive", SelectedRole{Type: SelectedRoleRole, Role: "admin"})
	m.AddPreparedStatement("q1", "SELECT 1")
	m.SetUpdateType("INSERT")
	m.SetInputs([]Input{{Catalog: "hive", Schema: "web", Table: "clicks"}})
	m.SetOutput(&Output{Catalog: "hive", Schema: "web", Table: "clicks_copy"})

	info := m.QueryInfo(nil)
	require.Equal(t, "hive", info.SetCatalog)
	require.Equal(t, "web", info.SetSchema)
	require.Equal(t, "a.b", info.SetPath)
	require.Equal(t, map[string]string{"join_distribution_type": "BROADCAST"}, info.SetSessionProperties)
	require.Equal(t, []string{"task_concurrency"}, info.ResetSessionProperties)
	require.Equal(t, SelectedRole{Type: SelectedRoleRole, Role: "admin"}, info.SetRoles["hive"])
	require.Equal(t, map[string]string{"q1": "SELECT 1"}, info.AddedPreparedStatements)
	require.Equal(t, "INSERT", info.UpdateType)
	require.Len(t, info.Inputs, 1)
	require.NotNil(t, info.Output)
}
