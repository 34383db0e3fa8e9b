package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zk/cargo-bsp/internal/bsp"
	"github.com/zk/cargo-bsp/internal/cargo"
	"github.com/zk/cargo-bsp/internal/jsonrpc"
	"github.com/zk/cargo-bsp/internal/supervisor"
)

// codeServerNotInitialized follows the LSP convention
const codeServerNotInitialized = -32002

func (s *Server) handleRequest(req *jsonrpc.Request) {
	if !s.initializeReceived && req.Method != bsp.MethodInitialize {
		s.respondError(req.ID, codeServerNotInitialized, "server not initialized")
		return
	}

	switch req.Method {
	case bsp.MethodInitialize:
		s.handleInitialize(req)
	case bsp.MethodShutdown:
		s.shutdownRequested = true
		s.cancelAllSupervisors()
		s.respond(req.ID, nil)
	case bsp.MethodBuildTargets:
		s.handleBuildTargets(req)
	case bsp.MethodReload:
		s.handleReload(req)
	case bsp.MethodSources:
		s.handleSources(req)
	case bsp.MethodCompile:
		s.handleCompile(req)
	case bsp.MethodRun:
		s.handleRun(req)
	case bsp.MethodTest:
		s.handleTest(req)
	case bsp.MethodCleanCache:
		s.handleCleanCache(req)
	case bsp.MethodRustWorkspace:
		s.handleRustWorkspace(req)

	// Advertised false, but well-known: answered with empty results
	case bsp.MethodInverseSources:
		s.respond(req.ID, bsp.InverseSourcesResult{Targets: []bsp.BuildTargetIdentifier{}})
	case bsp.MethodResources:
		s.respond(req.ID, bsp.ResourcesResult{Items: []interface{}{}})
	case bsp.MethodOutputPaths:
		s.respond(req.ID, bsp.OutputPathsResult{Items: []interface{}{}})
	case bsp.MethodDependencySources:
		s.respond(req.ID, bsp.DependencySourcesResult{Items: []interface{}{}})
	case bsp.MethodDependencyModules:
		s.respond(req.ID, bsp.DependencyModulesResult{Items: []interface{}{}})

	default:
		s.respondError(req.ID, jsonrpc.CodeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method))
	}
}

func (s *Server) handleNotification(notification *jsonrpc.Notification) {
	switch notification.Method {
	case bsp.MethodInitialized:
		s.logger.Info("Client initialized")
	case bsp.MethodExit:
		s.exitRequested = true
		if s.shutdownRequested {
			s.exitCode = 0
		} else {
			s.exitCode = 1
		}
	case bsp.MethodCancelRequest:
		s.handleCancelRequest(notification)
	default:
		s.logger.Debug("Ignoring notification %q", notification.Method)
	}
}

func (s *Server) handleInitialize(req *jsonrpc.Request) {
	var params bsp.InitializeBuildParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.respondError(req.ID, jsonrpc.CodeInvalidParams, err.Error())
			return
		}
	}
	s.logger.Info("Initialize from %s %s (bsp %s)", params.DisplayName, params.Version, params.BSPVersion)
	s.initializeReceived = true

	s.respond(req.ID, bsp.InitializeBuildResult{
		DisplayName:  ServerName,
		Version:      s.version,
		BSPVersion:   bsp.ProtocolVersion,
		Capabilities: serverCapabilities(),
	})
}

func (s *Server) handleBuildTargets(req *jsonrpc.Request) {
	if s.ws == nil && !s.loadWorkspace(true) {
		s.respondError(req.ID, jsonrpc.CodeInternalError, "workspace is not available")
		return
	}
	if s.watcher != nil && s.watcher.Stale() {
		s.logger.Warn("Serving build targets from a stale workspace; client should send workspace/reload")
	}
	targets := s.ws.BuildTargets()
	if targets == nil {
		targets = []bsp.BuildTarget{}
	}
	s.respond(req.ID, bsp.WorkspaceBuildTargetsResult{Targets: targets})
}

func (s *Server) handleReload(req *jsonrpc.Request) {
	if !s.loadWorkspace(true) {
		s.respondError(req.ID, jsonrpc.CodeInternalError, "workspace reload failed")
		return
	}
	s.respond(req.ID, nil)
}

func (s *Server) handleSources(req *jsonrpc.Request) {
	if s.ws == nil && !s.loadWorkspace(true) {
		s.respondError(req.ID, jsonrpc.CodeInternalError, "workspace is not available")
		return
	}

	var params bsp.SourcesParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.respondError(req.ID, jsonrpc.CodeInvalidParams, err.Error())
		return
	}

	items := []bsp.SourcesItem{}
	for _, id := range params.Targets {
		item, ok := s.ws.SourcesForTarget(id)
		if !ok {
			s.logger.Warn("Sources requested for unknown target %s", id.URI)
			continue
		}
		items = append(items, item)
	}
	s.respond(req.ID, bsp.SourcesResult{Items: items})
}

// startSupervisor launches one compile/run/test/check request
func (s *Server) startSupervisor(req *jsonrpc.Request, kind supervisor.RequestKind, targets []bsp.BuildTargetIdentifier, originID string, arguments []string) {
	if s.ws == nil && !s.loadWorkspace(true) {
		s.respondError(req.ID, jsonrpc.CodeInternalError, "workspace is not available")
		return
	}

	handle := supervisor.Spawn(supervisor.Params{
		Kind:      kind,
		RequestID: req.ID,
		OriginID:  originID,
		Targets:   targets,
		Arguments: arguments,
		Workspace: s.ws,
		CargoBin:  s.cargoBin,
		CargoEnv:  s.cargoEnv,
		RootDir:   s.rootDir,
	}, s.outbound, s.logger, s.spawnFunc)

	s.supervisors[req.ID.String()] = handle
}

func (s *Server) handleCompile(req *jsonrpc.Request) {
	var params bsp.CompileParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.respondError(req.ID, jsonrpc.CodeInvalidParams, err.Error())
		return
	}
	s.startSupervisor(req, supervisor.KindCompile, params.Targets, params.OriginID, params.Arguments)
}

func (s *Server) handleRun(req *jsonrpc.Request) {
	var params bsp.RunParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.respondError(req.ID, jsonrpc.CodeInvalidParams, err.Error())
		return
	}
	s.startSupervisor(req, supervisor.KindRun, []bsp.BuildTargetIdentifier{params.Target}, params.OriginID, params.Arguments)
}

func (s *Server) handleTest(req *jsonrpc.Request) {
	var params bsp.TestParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.respondError(req.ID, jsonrpc.CodeInvalidParams, err.Error())
		return
	}
	s.startSupervisor(req, supervisor.KindTest, params.Targets, params.OriginID, params.Arguments)
}

func (s *Server) handleRustWorkspace(req *jsonrpc.Request) {
	var params bsp.RustWorkspaceParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.respondError(req.ID, jsonrpc.CodeInvalidParams, err.Error())
		return
	}
	s.startSupervisor(req, supervisor.KindCheck, params.Targets, "", nil)
}

// handleCleanCache runs cargo clean for the selected packages. The
// clean is quick and bounded, so it is served inline.
func (s *Server) handleCleanCache(req *jsonrpc.Request) {
	if s.ws == nil && !s.loadWorkspace(true) {
		s.respondError(req.ID, jsonrpc.CodeInternalError, "workspace is not available")
		return
	}

	var params bsp.CleanCacheParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.respondError(req.ID, jsonrpc.CodeInvalidParams, err.Error())
		return
	}

	details, err := s.ws.TargetsDetails(params.Targets)
	if err != nil {
		s.respond(req.ID, bsp.CleanCacheResult{Cleaned: false, Message: err.Error()})
		return
	}

	inv := cargo.AssembleClean(s.cargoBin, details, s.rootDir)
	inv.Env = s.cargoEnv
	handle, err := cargo.Spawn(inv, s.logger)
	if err != nil {
		s.respond(req.ID, bsp.CleanCacheResult{Cleaned: false, Message: err.Error()})
		return
	}
	for range handle.Messages() {
		// cargo clean output is irrelevant; drain it
	}
	exitCode, err := handle.Join()
	if err != nil && !errors.Is(err, cargo.ErrNoOutput) {
		s.respond(req.ID, bsp.CleanCacheResult{Cleaned: false, Message: err.Error()})
		return
	}
	if exitCode != 0 {
		s.respond(req.ID, bsp.CleanCacheResult{Cleaned: false, Message: fmt.Sprintf("cargo clean exited with code %d", exitCode)})
		return
	}
	s.respond(req.ID, bsp.CleanCacheResult{Cleaned: true})
}

// handleCancelRequest routes $/cancelRequest to the supervisor that
// owns the request id. The id arrives as a number or a string and the
// lookup key must match the form the request used.
func (s *Server) handleCancelRequest(notification *jsonrpc.Notification) {
	var params bsp.CancelRequestParams
	if err := json.Unmarshal(notification.Params, &params); err != nil {
		s.logger.Warn("Malformed cancel request: %v", err)
		return
	}

	var key string
	switch id := params.ID.(type) {
	case string:
		key = id
	case float64:
		key = fmt.Sprintf("%d", int64(id))
	default:
		s.logger.Warn("Cancel request with unsupported id type %T", params.ID)
		return
	}

	handle, ok := s.supervisors[key]
	if !ok {
		s.logger.Debug("Cancel for unknown or finished request %s", key)
		return
	}
	s.logger.Info("Cancelling request %s", key)
	handle.Cancel()
}
