// Copyright 2026 The Stratum Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package execution

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/stratumdb/stratum/pkg/util/leaktest"
)

// TestTransitions exercises the transition table datadriven-style. Commands:
//
//	begin
//	  creates a fresh query state machine and prints its state
//	transition to=<state>
//	  attempts a transition and prints "<fired> <state>"
func TestTransitions(t *testing.T) {
	defer leaktest.AfterTest(t)()

	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		var m *QueryStateMachine
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "begin":
				m, _ = newTestQuery(testQueryConfig{})
				return m.State().String()
			case "transition":
				var to string
				d.ScanArgs(t, "to", &to)
				var fired bool
				switch to {
				case "waiting_for_resources":
					fired = m.TransitionToWaitingForResources()
				case "dispatching":
					fired = m.TransitionToDispatching()
				case "planning":
					fired = m.TransitionToPlanning()
				case "starting":
					fired = m.TransitionToStarting()
				case "running":
					fired = m.TransitionToRunning()
				case "suspend":
					fired = m.TransitionToSuspend()
				case "resume_running":
					fired = m.TransitionToResumeRunning()
				case "recovering":
					fired = m.TransitionToRecovering()
				case "finishing":
					fired = m.TransitionToFinishing()
				case "failed":
					fired = m.TransitionToFailed(errors.New("injected failure"))
				case "canceled":
					fired = m.TransitionToCanceled()
				default:
					t.Fatalf("unknown target state %q", to)
				}
				return fmt.Sprintf("%t %s", fired, m.State())
			default:
				t.Fatalf("unknown command %q", d.Cmd)
				return ""
			}
		})
	})
}
