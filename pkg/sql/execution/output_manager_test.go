// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stratumdb/stratum/pkg/util/leaktest"
	"github.com/stretchr/testify/require"
)

func TestOutputManagerLateListenerReplay(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m := newQueryOutputManager(directExecutor)

	m.setColumns([]string{"a", "b"}, []ColumnType{"bigint", "varchar"})
	m.updateOutputLocations(map[TaskID]TaskLocation{
		"1.0": {URI: "http://n1/task/1.0"},
	}, true /* noMoreExchangeLocations */)

	// A listener registered after everything was published receives exactly
	// one invocation carrying the full current info.
	var infos []*QueryOutputInfo
	m.addOutputInfoListener(func(info *QueryOutputInfo) { infos = append(infos, info) })

	require.Len(t, infos, 1)
	require.Equal(t, []string{"a", "b"}, infos[0].ColumnNames)
	require.Equal(t, []ColumnType{"bigint", "varchar"}, infos[0].ColumnTypes)
	require.Len(t, infos[0].ExchangeLocations, 1)
	require.Equal(t, TaskID("1.0"), infos[0].ExchangeLocations[0].TaskID)
	require.True(t, infos[0].NoMoreLocations)
}

func TestOutputManagerNoListenerBeforeColumns(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m := newQueryOutputManager(directExecutor)

	var fired int
	m.addOutputInfoListener(func(*QueryOutputInfo) { fired++ })
	require.Zero(t, fired)

	// Locations alone are not publishable.
	m.updateOutputLocations(map[TaskID]TaskLocation{
		"1.0": {URI: "http://n1/task/1.0"},
	}, false)
	require.Zero(t, fired)

	m.setColumns([]string{"a"}, []ColumnType{"bigint"})
	require.Equal(t, 1, fired)
}

func TestOutputManagerSetColumnsContract(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m := newQueryOutputManager(directExecutor)

	require.Panics(t, func() {
		m.setColumns([]string{"a"}, []ColumnType{"bigint", "varchar"})
	})
	m.setColumns([]string{"a"}, []ColumnType{"bigint"})
	require.Panics(t, func() {
		m.setColumns([]string{"a"}, []ColumnType{"bigint"})
	})
}

func TestOutputManagerNoMoreLocationsLatch(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m := newQueryOutputManager(directExecutor)
	m.setColumns([]string{"a"}, []ColumnType{"bigint"})

	loc := TaskLocation{URI: "http://n1/task/1.0"}
	m.updateOutputLocations(map[TaskID]TaskLocation{"1.0": loc}, true)

	// Idempotent subset: accepted and ignored.
	require.NotPanics(t, func() {
		m.updateOutputLocations(map[TaskID]TaskLocation{"1.0": loc}, true)
	})

	// New location after the latch: programmer error.
	require.Panics(t, func() {
		m.updateOutputLocations(map[TaskID]TaskLocation{
			"2.0": {URI: "http://n2/task/2.0"},
		}, true)
	})
}

func TestOutputManagerResetForResume(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m := newQueryOutputManager(directExecutor)
	m.setColumns([]string{"a"}, []ColumnType{"bigint"})
	m.updateOutputLocations(map[TaskID]TaskLocation{
		"1.0": {URI: "http://n1/task/1.0"},
	}, true)

	m.resetForResume()

	info := m.queryOutputInfo()
	require.NotNil(t, info)
	require.Empty(t, info.ExchangeLocations)
	require.False(t, info.NoMoreLocations)

	// Locations can be announced afresh.
	require.NotPanics(t, func() {
		m.updateOutputLocations(map[TaskID]TaskLocation{
			"1.1": {URI: "http://n2/task/1.1"},
		}, false)
	})
}

func TestOutputManagerLocationOrder(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m := newQueryOutputManager(directExecutor)
	m.setColumns([]string{"a"}, []ColumnType{"bigint"})

	m.updateOutputLocations(map[TaskID]TaskLocation{
		"2.0": {URI: "http://n2/task/2.0"},
	}, false)
	m.updateOutputLocations(map[TaskID]TaskLocation{
		"1.0": {URI: "http://n1/task/1.0"},
	}, false)

	info := m.queryOutputInfo()
	require.Equal(t,
		[]TaskID{"2.0", "1.0"},
		[]TaskID{info.ExchangeLocations[0].TaskID, info.ExchangeLocations[1].TaskID})
}

func TestOutputManagerTaskFailureReplay(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m := newQueryOutputManager(directExecutor)

	errA := errors.New("task 1.0 died")
	errB := errors.New("task 2.0 died")
	m.recordTaskFailure("1.0", errA)
	m.recordTaskFailure("2.0", errB)

	type failure struct {
		taskID TaskID
		err    error
	}
	var seen []failure
	m.addOutputTaskFailureListener(func(taskID TaskID, err error) {
		seen = append(seen, failure{taskID, err})
	})
	require.Equal(t, []failure{{"1.0", errA}, {"2.0", errB}}, seen)

	errC := errors.New("task 3.0 died")
	m.recordTaskFailure("3.0", errC)
	require.Equal(t, []failure{{"1.0", errA}, {"2.0", errB}, {"3.0", errC}}, seen)
}
