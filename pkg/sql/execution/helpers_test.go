// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"context"
	"sync/atomic"

	"github.com/stratumdb/stratum/pkg/util/timeutil"
)

type testMetadata struct {
	cleanups atomic.Int32
	// cleanupErr, if set, is returned by every CleanupQuery call.
	cleanupErr error
}

func (m *testMetadata) CleanupQuery(*Session) error {
	m.cleanups.Add(1)
	return m.cleanupErr
}

type testTaskManager struct {
	contextCleanups atomic.Int32
}

func (m *testTaskManager) CleanupQueryContext(QueryID) {
	m.contextCleanups.Add(1)
}

type testWarningCollector struct {
	warnings []Warning
}

func (c *testWarningCollector) Warnings() []Warning {
	return append([]Warning(nil), c.warnings...)
}

type testResourceGroupManager struct {
	registered   bool
	softReserved int64
}

func (m *testResourceGroupManager) IsGroupRegistered(ResourceGroupID) bool {
	return m.registered
}

func (m *testResourceGroupManager) SoftReservedMemory(ResourceGroupID) int64 {
	return m.softReserved
}

type testRecoveryManager struct {
	state         RecoveryState
	rescheduleErr error
	reschedules   atomic.Int32
}

func (m *testRecoveryManager) State() RecoveryState {
	return m.state
}

func (m *testRecoveryManager) RescheduleQuery() error {
	m.reschedules.Add(1)
	return m.rescheduleErr
}

// testEnv bundles the collaborators backing one test query.
type testEnv struct {
	txns     *InMemoryTransactionManager
	metadata *testMetadata
	tasks    *testTaskManager
	warnings *testWarningCollector
}

type testQueryConfig struct {
	executor           Executor
	transactionControl bool
	recoveryEnabled    bool
	resourceGroups     ResourceGroupManager
	source             timeutil.TimeSource
	preparedStatements map[string]string
}

// newTestQuery builds a QueryStateMachine over in-memory collaborators.
func newTestQuery(cfg testQueryConfig) (*QueryStateMachine, *testEnv) {
	if cfg.executor == nil {
		cfg.executor = directExecutor
	}
	if cfg.source == nil {
		cfg.source = timeutil.DefaultTimeSource{}
	}
	env := &testEnv{
		txns:     NewInMemoryTransactionManager(),
		metadata: &testMetadata{},
		tasks:    &testTaskManager{},
		warnings: &testWarningCollector{},
	}
	session := &Session{
		QueryID:            "20260805_000000_00000_aaaaa",
		User:               "root",
		Catalog:            "tpch",
		Schema:             "sf1",
		PreparedStatements: cfg.preparedStatements,
		RecoveryEnabled:    cfg.recoveryEnabled,
		StartTime:          cfg.source.Now(),
	}
	m := beginQueryWithTimeSource(
		context.Background(),
		"SELECT * FROM lineitem",
		"", /* preparedQuery */
		session,
		"http://coordinator/v1/query/1",
		"global.default",
		cfg.resourceGroups,
		cfg.transactionControl,
		env.txns,
		env.metadata,
		env.tasks,
		cfg.executor,
		env.warnings,
		cfg.source,
	)
	return m, env
}

// runningStage builds a single-stage tree in the given state.
func runningStage(state StageState) *StageInfo {
	return &StageInfo{
		StageID: "1",
		State:   state,
		Self:    "http://coordinator/v1/stage/1",
		Plan: &PlanFragment{
			ID:                 "1",
			PartitionedSources: []PlanNodeKind{PlanNodeTableScan},
		},
	}
}
