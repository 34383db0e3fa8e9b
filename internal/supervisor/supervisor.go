// Package supervisor implements the request-scoped driver behind
// compile, run, test and rustWorkspace requests: it sequences the
// unit-graph probe and the real cargo command, translates cargo's
// message stream into task notifications, and honours mid-flight
// cancellation by killing the subprocess group.
package supervisor

import (
	"fmt"
	"sync"

	"github.com/zk/cargo-bsp/internal/bsp"
	"github.com/zk/cargo-bsp/internal/cargo"
	"github.com/zk/cargo-bsp/internal/jsonrpc"
	"github.com/zk/cargo-bsp/internal/workspace"
)

// Logger is the logging interface the supervisor depends on
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// CargoHandle is the slice of cargo.Handle the supervisor drives.
// Tests substitute in-memory fakes.
type CargoHandle interface {
	Messages() <-chan cargo.StreamLine
	Cancel()
	Join() (int, error)
}

// SpawnFunc launches one assembled invocation
type SpawnFunc func(cargo.Invocation) (CargoHandle, error)

// Params configures one supervisor
type Params struct {
	Kind      RequestKind
	RequestID jsonrpc.ID
	OriginID  string
	Targets   []bsp.BuildTargetIdentifier
	Arguments []string
	Workspace *workspace.Workspace
	CargoBin  string
	CargoEnv  []string
	RootDir   string
}

// Supervisor drives one in-flight request on its own goroutine. All
// client-bound traffic leaves through the out channel, so the main
// loop serializes it with everything else.
type Supervisor struct {
	kind      RequestKind
	requestID jsonrpc.ID
	originID  string
	targets   []bsp.BuildTargetIdentifier
	arguments []string
	ws        *workspace.Workspace
	cargoBin  string
	cargoEnv  []string
	rootDir   string

	out    chan<- jsonrpc.Message
	logger Logger
	spawn  SpawnFunc

	state          *state
	responded      bool
	publishedDiags map[diagKey]bool
	executables    []string
	buildData      map[string]*workspace.PackageBuildData

	cancelChan chan struct{}
	done       chan struct{}
}

// Handle is what the main loop keeps for routing $/cancelRequest
type Handle struct {
	RequestID  jsonrpc.ID
	cancelOnce sync.Once
	cancelChan chan struct{}
	done       <-chan struct{}
}

// Cancel delivers the one-shot cancel signal. Safe to call more than
// once; a cancel after completion has no effect.
func (h *Handle) Cancel() {
	h.cancelOnce.Do(func() { close(h.cancelChan) })
}

// Done closes when the supervisor has delivered its response and
// exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Spawn starts a supervisor for one request and returns its handle.
// spawn may be nil, in which case real cargo subprocesses are used.
func Spawn(params Params, out chan<- jsonrpc.Message, logger Logger, spawn SpawnFunc) *Handle {
	if spawn == nil {
		spawn = func(inv cargo.Invocation) (CargoHandle, error) {
			return cargo.Spawn(inv, logger)
		}
	}

	s := &Supervisor{
		kind:           params.Kind,
		requestID:      params.RequestID,
		originID:       params.OriginID,
		targets:        params.Targets,
		arguments:      params.Arguments,
		ws:             params.Workspace,
		cargoBin:       params.CargoBin,
		cargoEnv:       params.CargoEnv,
		rootDir:        params.RootDir,
		out:            out,
		logger:         logger,
		spawn:          spawn,
		state:          newState(params.Kind, params.OriginID),
		publishedDiags: make(map[diagKey]bool),
		buildData:      make(map[string]*workspace.PackageBuildData),
		cancelChan:     make(chan struct{}),
		done:           make(chan struct{}),
	}

	handle := &Handle{
		RequestID:  params.RequestID,
		cancelChan: s.cancelChan,
		done:       s.done,
	}

	go s.run()
	return handle
}

// run is the supervisor goroutine. A panic anywhere below is caught
// here and reported as a failed request instead of taking the server
// down.
func (s *Supervisor) run() {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Supervisor panic for request %s: %v", s.requestID.String(), r)
			s.taskFinish(s.state.rootTaskID, bsp.StatusError, fmt.Sprintf("internal error: %v", r), "", nil)
			s.respondError(jsonrpc.CodeInternalError, fmt.Sprintf("internal error: %v", r))
		}
	}()

	// An empty selection completes without touching cargo
	if s.kind != KindCheck && len(s.targets) == 0 {
		s.taskStart(s.state.rootTaskID, "started", "", nil)
		s.taskFinish(s.state.rootTaskID, bsp.StatusOK, "", "", nil)
		s.respondStatus(bsp.StatusOK)
		return
	}

	var details []workspace.TargetDetails
	if s.kind != KindCheck {
		var err error
		details, err = s.ws.TargetsDetails(s.targets)
		if err != nil {
			s.respondError(jsonrpc.CodeInvalidParams, err.Error())
			return
		}
	}

	s.taskStart(s.state.rootTaskID, "started", "", nil)

	// The unit-graph probe is advisory and skipped for check runs
	if s.kind != KindCheck {
		if finished := s.runUnitGraph(details); finished {
			return
		}
	}

	s.runExecution(details)
}

// cancelRequested is the non-blocking cancel poll run before every
// blocking receive, so a cancel beats queued cargo messages
func (s *Supervisor) cancelRequested() bool {
	select {
	case <-s.cancelChan:
		return true
	default:
		return false
	}
}

func (s *Supervisor) commandKind() cargo.CommandKind {
	switch s.kind {
	case KindRun:
		return cargo.KindRun
	case KindTest:
		return cargo.KindTest
	case KindCheck:
		return cargo.KindCheck
	default:
		return cargo.KindBuild
	}
}

// primaryTarget is the build target reported in compile-task data.
// Multi-target requests report the first selected target.
func (s *Supervisor) primaryTarget() bsp.BuildTargetIdentifier {
	if len(s.targets) > 0 {
		return s.targets[0]
	}
	return bsp.BuildTargetIdentifier{}
}

// buildDataFor returns the mutable per-package record for check runs
func (s *Supervisor) buildDataFor(pkgID string) *workspace.PackageBuildData {
	if data, ok := s.buildData[pkgID]; ok {
		return data
	}
	data := &workspace.PackageBuildData{}
	s.buildData[pkgID] = data
	return data
}

// runUnitGraph is phase A: probe the unit graph for the progress
// denominator. The probe's failure is not the request's failure;
// phase B runs regardless. Returns true when the request is already
// finished (cancel or spawn failure).
func (s *Supervisor) runUnitGraph(details []workspace.TargetDetails) bool {
	s.taskStart(s.state.unitGraphTaskID, "Started unit graph command", "", nil)

	inv := cargo.AssembleUnitGraph(s.cargoBin, s.commandKind(), details, s.rootDir)
	inv.Env = s.cargoEnv
	handle, err := s.spawn(inv)
	if err != nil {
		s.taskFinish(s.state.unitGraphTaskID, bsp.StatusError, err.Error(), "", nil)
		s.taskFinish(s.state.rootTaskID, bsp.StatusError, "", "", nil)
		s.respondError(jsonrpc.CodeInternalError, err.Error())
		return true
	}

	received := false
	for {
		if s.cancelRequested() {
			return s.cancelUnitGraph(handle)
		}
		select {
		case <-s.cancelChan:
			return s.cancelUnitGraph(handle)

		case line, ok := <-handle.Messages():
			if !ok {
				s.finishUnitGraph(handle, received)
				return false
			}
			if line.Source == cargo.Stderr {
				s.logger.Debug("Unit graph stderr: %s", line.Text)
				continue
			}
			if received {
				s.logger.Warn("Unexpected stdout after unit graph: %s", line.Text)
				continue
			}
			if msg, ok := cargo.ParseMessage(line.Text); ok {
				if graph, isGraph := msg.(*cargo.UnitGraph); isGraph {
					s.state.setUnitGraph(graph.TotalCompilationSteps())
					received = true
					continue
				}
			}
			s.logger.Warn("Could not parse unit graph line: %s", line.Text)
		}
	}
}

func (s *Supervisor) cancelUnitGraph(handle CargoHandle) bool {
	handle.Cancel()
	s.taskFinish(s.state.unitGraphTaskID, bsp.StatusCancelled, "", "", nil)
	s.taskFinish(s.state.rootTaskID, bsp.StatusCancelled, "", "", nil)
	s.respondCancelled()
	return true
}

func (s *Supervisor) finishUnitGraph(handle CargoHandle, received bool) {
	if _, err := handle.Join(); err != nil {
		s.logger.Debug("Unit graph command failed: %v", err)
	}

	status := bsp.StatusOK
	message := "Finished unit graph command"
	if !received {
		s.logger.Warn("No unit graph received; compile progress will not be reported")
		status = bsp.StatusError
	}
	s.taskFinish(s.state.unitGraphTaskID, status, message, "", nil)
}

func (s *Supervisor) respondCancelled() {
	if s.kind == KindCheck {
		s.respondError(jsonrpc.CodeRequestCancelled, "request cancelled")
		return
	}
	s.respondStatus(bsp.StatusCancelled)
}
