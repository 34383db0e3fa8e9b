package supervisor

import (
	"strings"

	"github.com/zk/cargo-bsp/internal/bsp"
	"github.com/zk/cargo-bsp/internal/cargo"
)

// handleTestEvent drives the suite/test sub-tree from libtest's JSON
// stream
func (s *Supervisor) handleTestEvent(event *cargo.TestEvent) {
	if s.state.test == nil {
		s.logger.Warn("Test event outside a test request: %s/%s", event.Type, event.Event)
		return
	}

	switch event.Type {
	case "suite":
		s.handleSuiteEvent(event)
	case "test":
		s.handleSingleTestEvent(event)
	default:
		s.logger.Debug("Unknown test event type: %s", event.Type)
	}
}

func (s *Supervisor) handleSuiteEvent(event *cargo.TestEvent) {
	test := s.state.test

	switch event.Event {
	case "started":
		// The first suite event means compilation is over
		if !test.suiteStarted {
			s.finishCompile(bsp.StatusOK)
			test.suiteStarted = true
			s.taskStart(test.taskID, "", "", nil)
			s.taskStart(test.suiteTaskID, "", bsp.DataKindTestTask, bsp.TestTask{Target: s.primaryTarget()})
		}
		test.progress.total += int64(event.TestCount)

	case "ok", "failed":
		if !test.suiteStarted || test.suiteFinished {
			s.logger.Warn("Suite %s event without a running suite", event.Event)
			return
		}
		status := bsp.StatusOK
		if event.Event == "failed" {
			status = bsp.StatusError
		}
		report := bsp.TestReport{
			Target:  s.primaryTarget(),
			Passed:  event.Passed,
			Failed:  event.Failed,
			Ignored: event.Ignored,
			Skipped: event.FilteredOut,
			Time:    int64(event.ExecTime * 1000),
		}
		test.suiteFinished = true
		s.taskFinish(test.suiteTaskID, status, "", bsp.DataKindTestReport, report)

	default:
		s.logger.Debug("Unknown suite event: %s", event.Event)
	}
}

func (s *Supervisor) handleSingleTestEvent(event *cargo.TestEvent) {
	if event.Name == "" {
		return
	}
	test := s.state.test
	if !test.suiteStarted || test.suiteFinished {
		s.logger.Warn("Test event for %q outside a running suite", event.Name)
		return
	}

	switch event.Event {
	case "started":
		id := s.state.singleTestID(event.Name)
		s.taskStart(id, "", bsp.DataKindTestStart, bsp.TestStart{DisplayName: event.Name})

	case "ok", "failed", "ignored", "timeout":
		// Tolerate a missing started event by opening the task late
		if _, started := test.singleTestIDs[event.Name]; !started {
			id := s.state.singleTestID(event.Name)
			s.taskStart(id, "", bsp.DataKindTestStart, bsp.TestStart{DisplayName: event.Name})
		}
		id := s.state.singleTestID(event.Name)
		delete(test.singleTestIDs, event.Name)

		testStatus, taskStatus := mapTestOutcome(event.Event)
		s.taskFinish(id, taskStatus, "", bsp.DataKindTestFinish, bsp.TestFinish{
			DisplayName: event.Name,
			Message:     testMessage(event.Stdout),
			Status:      testStatus,
		})

		test.progress.done++
		s.taskProgress(test.suiteTaskID, test.progress.done, test.progress.total, "tests")

	default:
		s.logger.Debug("Unknown test event: %s", event.Event)
	}
}

// mapTestOutcome maps a libtest event onto the BSP test status and
// the status of the per-test task finish
func mapTestOutcome(event string) (bsp.TestStatus, bsp.StatusCode) {
	switch event {
	case "ok":
		return bsp.TestPassed, bsp.StatusOK
	case "failed":
		return bsp.TestFailed, bsp.StatusError
	case "ignored":
		return bsp.TestIgnored, bsp.StatusOK
	case "timeout":
		return bsp.TestFailed, bsp.StatusError
	default:
		return bsp.TestFailed, bsp.StatusError
	}
}

// testMessage extracts the interesting part of a test's captured
// stdout. libtest folds the panic output into stdout; everything from
// the last thread-panic marker on is the failure, anything before is
// the test's own prints.
func testMessage(stdout string) string {
	if stdout == "" {
		return ""
	}
	if idx := strings.LastIndex(stdout, "thread '"); idx >= 0 {
		return stdout[idx:]
	}
	return stdout
}
