package server

import (
	"io"

	"github.com/zk/cargo-bsp/internal/bsp"
	"github.com/zk/cargo-bsp/internal/cargo"
	"github.com/zk/cargo-bsp/internal/jsonrpc"
	"github.com/zk/cargo-bsp/internal/supervisor"
	"github.com/zk/cargo-bsp/internal/workspace"
)

// Logger is the logging interface the server depends on
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// incomingItem is one unit of work from the transport reader: a
// decoded message or a body-level parse failure
type incomingItem struct {
	msg      jsonrpc.Message
	parseErr error
}

// Server is the main loop. It owns the transport, the workspace
// model, and the table of in-flight request supervisors. All client
// traffic funnels through the single loop goroutine, which gives the
// ordering guarantees the protocol needs.
type Server struct {
	codec   *jsonrpc.Codec
	logger  Logger
	config  *Config
	version string
	rootDir string

	cargoBin string
	cargoEnv []string

	ws      *workspace.Workspace
	watcher *workspace.Watcher

	incoming chan incomingItem
	outbound chan jsonrpc.Message

	supervisors map[string]*supervisor.Handle

	// spawnFunc is nil in production; tests inject fake subprocesses
	spawnFunc supervisor.SpawnFunc

	initializeReceived bool
	shutdownRequested  bool
	exitRequested      bool
	exitCode           int
}

// New builds a server over the given transport streams
func New(in io.Reader, out io.Writer, rootDir, version string, config *Config, logger Logger) *Server {
	cargoBin := config.Cargo
	if cargoBin == "" {
		cargoBin = cargo.DefaultBin()
	}

	return &Server{
		codec:       jsonrpc.NewCodec(in, out),
		logger:      logger,
		config:      config,
		version:     version,
		rootDir:     rootDir,
		cargoBin:    cargoBin,
		cargoEnv:    config.CargoEnv(),
		incoming:    make(chan incomingItem, 16),
		outbound:    make(chan jsonrpc.Message, 256),
		supervisors: make(map[string]*supervisor.Handle),
	}
}

// Run serves until exit and returns the process exit code
func (s *Server) Run() int {
	if s.ws == nil {
		s.loadWorkspace(false)
	}

	go s.readLoop()

	for {
		select {
		case item, ok := <-s.incoming:
			if !ok {
				// stdin closed without build/exit
				s.logger.Info("stdin closed; shutting down")
				s.cancelAllSupervisors()
				return 1
			}
			s.handleIncoming(item)
			if s.exitRequested {
				s.cancelAllSupervisors()
				if s.watcher != nil {
					_ = s.watcher.Close()
				}
				return s.exitCode
			}

		case msg := <-s.outbound:
			s.forwardSupervisorMessage(msg)
		}
	}
}

// readLoop decodes frames off stdin on its own goroutine. Framing
// errors are fatal; body-level JSON errors are forwarded for a parse
// error response.
func (s *Server) readLoop() {
	for {
		body, err := s.codec.ReadFrame()
		if err != nil {
			if err != io.EOF {
				s.logger.Error("Fatal transport error: %v", err)
			}
			close(s.incoming)
			return
		}

		msg, err := jsonrpc.DecodeMessage(body)
		if err != nil {
			s.incoming <- incomingItem{parseErr: err}
			continue
		}
		s.incoming <- incomingItem{msg: msg}
	}
}

func (s *Server) handleIncoming(item incomingItem) {
	if item.parseErr != nil {
		s.logger.Warn("Dropping malformed message: %v", item.parseErr)
		s.write(jsonrpc.NewErrorResponse(jsonrpc.ID{}, jsonrpc.CodeParseError, item.parseErr.Error()))
		return
	}

	switch msg := item.msg.(type) {
	case *jsonrpc.Request:
		s.handleRequest(msg)
	case *jsonrpc.Notification:
		s.handleNotification(msg)
	case *jsonrpc.Response:
		s.logger.Warn("Unexpected response from client for id %s", msg.ID.String())
	}
}

// forwardSupervisorMessage relays one supervisor-produced message to
// the client and retires the supervisor on its response
func (s *Server) forwardSupervisorMessage(msg jsonrpc.Message) {
	if response, ok := msg.(*jsonrpc.Response); ok {
		delete(s.supervisors, response.ID.String())
	}
	s.write(msg)
}

func (s *Server) write(msg jsonrpc.Message) {
	if err := s.codec.WriteMessage(msg); err != nil {
		s.logger.Error("Failed to write message: %v", err)
	}
}

func (s *Server) respond(id jsonrpc.ID, result interface{}) {
	s.write(&jsonrpc.Response{ID: id, Result: result})
}

func (s *Server) respondError(id jsonrpc.ID, code int, message string) {
	s.write(jsonrpc.NewErrorResponse(id, code, message))
}

func (s *Server) notifyLogMessage(messageType bsp.MessageType, message string) {
	notification, err := jsonrpc.NewNotification(bsp.MethodLogMessage, bsp.LogMessageParams{
		Type:    messageType,
		Message: message,
	})
	if err != nil {
		s.logger.Error("Failed to build logMessage: %v", err)
		return
	}
	s.write(notification)
}

// loadWorkspace discovers the manifest and builds the model. Failures
// leave the server alive and waiting for workspace/reload; announce
// controls whether the client is told via logMessage.
func (s *Server) loadWorkspace(announce bool) bool {
	ws, err := workspace.Load(s.cargoBin, s.rootDir, s.logger)
	if err != nil {
		s.logger.Error("Workspace discovery failed: %v", err)
		if announce {
			s.notifyLogMessage(bsp.MessageError, "workspace discovery failed: "+err.Error())
		}
		return false
	}
	s.ws = ws

	if s.watcher == nil {
		watcher, err := workspace.NewWatcher(ws.ManifestPath, s.logger)
		if err != nil {
			s.logger.Warn("Manifest watcher unavailable: %v", err)
		} else {
			s.watcher = watcher
		}
	} else {
		s.watcher.Reset()
	}
	return true
}

func (s *Server) cancelAllSupervisors() {
	for id, handle := range s.supervisors {
		s.logger.Debug("Cancelling in-flight request %s on shutdown", id)
		handle.Cancel()
	}
}
