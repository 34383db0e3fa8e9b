package supervisor

import (
	"time"

	"github.com/google/uuid"
	"github.com/zk/cargo-bsp/internal/bsp"
)

// RequestKind selects what the supervisor drives
type RequestKind int

const (
	KindCompile RequestKind = iota
	KindRun
	KindTest
	KindCheck // workspace-wide cargo check backing rustWorkspace
)

// newTaskID allocates a child task whose parent chain terminates at
// the root task
func newTaskID(parent bsp.TaskID) bsp.TaskID {
	parents := make([]string, 0, len(parent.Parents)+1)
	parents = append(parents, parent.ID)
	parents = append(parents, parent.Parents...)
	return bsp.TaskID{ID: uuid.NewString(), Parents: parents}
}

// compileState accumulates the compile task's counters
type compileState struct {
	taskID          bsp.TaskID
	errors          int
	warnings        int
	startTime       time.Time
	finished        bool
	compilationStep int64
	totalSteps      int64
	progressKnown   bool // set once a unit graph was received
}

// suiteProgress tracks done/total test cases for the suite task
type suiteProgress struct {
	done  int64
	total int64
}

// testState is live only for test requests
type testState struct {
	taskID        bsp.TaskID
	suiteTaskID   bsp.TaskID
	suiteStarted  bool
	suiteFinished bool
	progress      suiteProgress
	singleTestIDs map[string]bsp.TaskID
}

// runState is live only for run requests
type runState struct {
	taskID  bsp.TaskID
	started bool
}

// state is the supervisor's task-tree state machine data. The root,
// unit-graph, compile, run, test and suite task ids are allocated up
// front; per-test ids are allocated on first sight. Whether a TaskStart
// was emitted is tracked alongside so finishes always pair with starts.
type state struct {
	rootTaskID      bsp.TaskID
	unitGraphTaskID bsp.TaskID
	compile         compileState
	run             *runState
	test            *testState
}

// newState allocates the task tree for one request. The root id is
// the client's originId when present, otherwise fresh.
func newState(kind RequestKind, originID string) *state {
	rootID := originID
	if rootID == "" {
		rootID = uuid.NewString()
	}
	root := bsp.TaskID{ID: rootID}

	s := &state{
		rootTaskID:      root,
		unitGraphTaskID: newTaskID(root),
		compile: compileState{
			taskID:     newTaskID(root),
			totalSteps: -1,
		},
	}

	switch kind {
	case KindRun:
		s.run = &runState{taskID: newTaskID(root)}
	case KindTest:
		testTaskID := newTaskID(root)
		s.test = &testState{
			taskID:        testTaskID,
			suiteTaskID:   newTaskID(testTaskID),
			singleTestIDs: make(map[string]bsp.TaskID),
		}
	}
	return s
}

// setUnitGraph records the probe result and arms progress reporting
func (s *state) setUnitGraph(totalSteps int64) {
	s.compile.totalSteps = totalSteps
	s.compile.compilationStep = 0
	s.compile.progressKnown = true
}

// stepCompleted advances compile progress, clamped to the known
// total. Returns false when progress reporting is unarmed.
func (s *state) stepCompleted() (progress, total int64, ok bool) {
	if !s.compile.progressKnown || s.compile.compilationStep >= s.compile.totalSteps {
		return 0, 0, false
	}
	s.compile.compilationStep++
	return s.compile.compilationStep, s.compile.totalSteps, true
}

// singleTestID returns the per-test task id for a test name,
// allocating one as a child of the test task on first sight
func (s *state) singleTestID(name string) bsp.TaskID {
	if id, ok := s.test.singleTestIDs[name]; ok {
		return id
	}
	id := newTaskID(s.test.taskID)
	s.test.singleTestIDs[name] = id
	return id
}
