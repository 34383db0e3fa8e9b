package supervisor

import (
	"errors"
	"time"

	"github.com/zk/cargo-bsp/internal/bsp"
	"github.com/zk/cargo-bsp/internal/cargo"
	"github.com/zk/cargo-bsp/internal/jsonrpc"
	"github.com/zk/cargo-bsp/internal/workspace"
)

// runExecution is phase B: the real cargo command
func (s *Supervisor) runExecution(details []workspace.TargetDetails) {
	var inv cargo.Invocation
	if s.kind == KindCheck {
		inv = cargo.AssembleCheck(s.cargoBin, s.rootDir)
	} else {
		inv = cargo.Assemble(s.cargoBin, s.commandKind(), details, s.arguments, s.rootDir)
	}
	inv.Env = s.cargoEnv

	handle, err := s.spawn(inv)
	if err != nil {
		s.taskFinish(s.state.rootTaskID, bsp.StatusError, err.Error(), "", nil)
		s.respondError(jsonrpc.CodeInternalError, err.Error())
		return
	}

	s.state.compile.startTime = time.Now()
	s.taskStart(s.state.compile.taskID, "", bsp.DataKindCompileTask, bsp.CompileTask{Target: s.primaryTarget()})

	for {
		if s.cancelRequested() {
			s.cancelExecution(handle)
			return
		}
		select {
		case <-s.cancelChan:
			s.cancelExecution(handle)
			return

		case line, ok := <-handle.Messages():
			if !ok {
				s.finishExecution(handle)
				return
			}
			s.handleLine(line)
		}
	}
}

// handleLine routes one subprocess line
func (s *Supervisor) handleLine(line cargo.StreamLine) {
	if line.Source == cargo.Stderr {
		s.logger.Debug("cargo stderr: %s", line.Text)
		return
	}

	msg, ok := cargo.ParseMessage(line.Text)
	if !ok {
		// In run mode the program's own stdout is passed through to
		// the client; everywhere else stray lines are only logged
		if s.kind == KindRun && s.state.run.started {
			s.logMessage(bsp.MessageLog, line.Text)
			return
		}
		s.logger.Debug("Unrecognized cargo stdout line: %s", line.Text)
		return
	}

	switch m := msg.(type) {
	case *cargo.Artifact:
		s.handleArtifact(m)
	case *cargo.BuildScript:
		s.handleBuildScript(m)
	case *cargo.CompilerMessage:
		s.publishCompilerMessage(m)
	case *cargo.TestEvent:
		s.handleTestEvent(m)
	case *cargo.UnitGraph:
		s.logger.Warn("Unit graph record outside the probe phase")
	}
}

func (s *Supervisor) handleArtifact(artifact *cargo.Artifact) {
	if artifact.Executable != "" {
		s.executables = append(s.executables, artifact.Executable)
	}
	if path, ok := cargo.ProcMacroArtifactPath(artifact); ok {
		s.buildDataFor(artifact.PackageID).ProcMacroArtifact = workspace.FileURI(path)
	}

	// A non-fresh artifact is one completed compilation step
	if !artifact.Fresh {
		if progress, total, ok := s.state.stepCompleted(); ok {
			s.taskProgress(s.state.compile.taskID, progress, total, "steps")
		}
	}

	// For run requests the executable artifact marks the end of the
	// compile phase; everything after it is the program running
	if s.kind == KindRun && artifact.Executable != "" && !s.state.run.started {
		s.finishCompile(bsp.StatusOK)
		s.state.run.started = true
		s.taskStart(s.state.run.taskID, "", "", nil)
	}
}

func (s *Supervisor) handleBuildScript(script *cargo.BuildScript) {
	data := s.buildDataFor(script.PackageID)
	data.CfgOptions = workspace.MapCfgOptions(script.Cfgs)
	data.Env = script.EnvMap()
	if script.OutDir != "" {
		data.OutDirURL = workspace.FileURI(script.OutDir)
	}
}

// finishCompile emits the compile task's finish with its report,
// exactly once
func (s *Supervisor) finishCompile(status bsp.StatusCode) {
	if s.state.compile.finished {
		return
	}
	s.state.compile.finished = true
	report := bsp.CompileReport{
		Target:   s.primaryTarget(),
		Errors:   s.state.compile.errors,
		Warnings: s.state.compile.warnings,
		Time:     time.Since(s.state.compile.startTime).Milliseconds(),
	}
	s.taskFinish(s.state.compile.taskID, status, "", bsp.DataKindCompileReport, report)
}

// finishExecution completes the request after cargo exited on its own
func (s *Supervisor) finishExecution(handle CargoHandle) {
	exitCode, err := handle.Join()

	status := bsp.StatusOK
	if exitCode != 0 {
		status = bsp.StatusError
	}
	var message string
	if err != nil && !(s.kind == KindRun && errors.Is(err, cargo.ErrNoOutput)) {
		// Reader failures degrade the request to an error status but
		// are not protocol errors
		s.logger.Error("Cargo command failed: %v", err)
		status = bsp.StatusError
		message = err.Error()
	}

	switch s.kind {
	case KindRun:
		if s.state.run.started {
			s.taskFinish(s.state.run.taskID, status, "", "", nil)
		} else {
			s.finishCompile(status)
		}

	case KindTest:
		s.finishCompile(status)
		if s.state.test.suiteStarted {
			if !s.state.test.suiteFinished {
				s.taskFinish(s.state.test.suiteTaskID, status, "", "", nil)
			}
			s.taskFinish(s.state.test.taskID, status, "", "", nil)
		}

	default:
		s.finishCompile(status)
	}

	s.taskFinish(s.state.rootTaskID, status, message, "", nil)

	if s.kind == KindCheck {
		s.respond(s.ws.ResolveRustWorkspace(s.targets, s.buildData))
		return
	}
	s.respondStatus(status)
}

// cancelExecution kills the subprocess group and walks the open task
// tree child-first with Cancelled finishes
func (s *Supervisor) cancelExecution(handle CargoHandle) {
	handle.Cancel()

	if s.state.test != nil && s.state.test.suiteStarted {
		for name, id := range s.state.test.singleTestIDs {
			s.taskFinish(id, bsp.StatusCancelled, "", bsp.DataKindTestFinish, bsp.TestFinish{
				DisplayName: name,
				Status:      bsp.TestCancelled,
			})
		}
		if !s.state.test.suiteFinished {
			s.taskFinish(s.state.test.suiteTaskID, bsp.StatusCancelled, "", "", nil)
		}
		s.taskFinish(s.state.test.taskID, bsp.StatusCancelled, "", "", nil)
	}
	if s.state.run != nil && s.state.run.started {
		s.taskFinish(s.state.run.taskID, bsp.StatusCancelled, "", "", nil)
	}
	if !s.state.compile.finished {
		s.state.compile.finished = true
		s.taskFinish(s.state.compile.taskID, bsp.StatusCancelled, "", "", nil)
	}
	s.taskFinish(s.state.rootTaskID, bsp.StatusCancelled, "", "", nil)
	s.respondCancelled()
}
