// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package execution contains the query lifecycle core of the stratum
// coordinator: the QueryStateMachine that owns a query's state from
// submission to terminal outcome, the generic state register it is built on,
// per-phase timing, output publication to subscribing consumers, and
// transaction finalization.
//
// Planning, scheduling and transport live elsewhere; they appear here only as
// collaborator interfaces feeding the state machine stage telemetry, failure
// signals and output locations.
package execution
