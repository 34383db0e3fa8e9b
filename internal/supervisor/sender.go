package supervisor

import (
	"time"

	"github.com/zk/cargo-bsp/internal/bsp"
	"github.com/zk/cargo-bsp/internal/jsonrpc"
)

// nowMillis is the event timestamp source, overridable in tests
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// send delivers one message to the main loop. The out channel is the
// MPSC sink shared by all supervisors; per-request ordering follows
// from a single goroutine producing per supervisor.
func (s *Supervisor) send(msg jsonrpc.Message) {
	s.out <- msg
}

func (s *Supervisor) notify(method string, params interface{}) {
	notification, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		s.logger.Error("Failed to build %s notification: %v", method, err)
		return
	}
	s.send(notification)
}

func (s *Supervisor) taskStart(taskID bsp.TaskID, message, dataKind string, data interface{}) {
	s.notify(bsp.MethodTaskStart, bsp.TaskStartParams{
		TaskID:    taskID,
		OriginID:  s.originID,
		EventTime: nowMillis(),
		Message:   message,
		DataKind:  dataKind,
		Data:      data,
	})
}

func (s *Supervisor) taskProgress(taskID bsp.TaskID, progress, total int64, unit string) {
	s.notify(bsp.MethodTaskProgress, bsp.TaskProgressParams{
		TaskID:    taskID,
		OriginID:  s.originID,
		EventTime: nowMillis(),
		Progress:  progress,
		Total:     total,
		Unit:      unit,
	})
}

func (s *Supervisor) taskFinish(taskID bsp.TaskID, status bsp.StatusCode, message, dataKind string, data interface{}) {
	s.notify(bsp.MethodTaskFinish, bsp.TaskFinishParams{
		TaskID:    taskID,
		OriginID:  s.originID,
		EventTime: nowMillis(),
		Message:   message,
		Status:    status,
		DataKind:  dataKind,
		Data:      data,
	})
}

func (s *Supervisor) logMessage(messageType bsp.MessageType, text string) {
	s.notify(bsp.MethodLogMessage, bsp.LogMessageParams{
		Type:     messageType,
		Task:     &s.state.rootTaskID,
		OriginID: s.originID,
		Message:  text,
	})
}

// respond completes the request. Exactly one response leaves a
// supervisor; later calls are dropped.
func (s *Supervisor) respond(result interface{}) {
	if s.responded {
		return
	}
	s.responded = true
	s.send(&jsonrpc.Response{ID: s.requestID, Result: result})
}

// respondError completes the request with a JSON-RPC error object
func (s *Supervisor) respondError(code int, message string) {
	if s.responded {
		return
	}
	s.responded = true
	s.send(jsonrpc.NewErrorResponse(s.requestID, code, message))
}

// respondStatus builds the kind-specific result payload around a
// status code
func (s *Supervisor) respondStatus(status bsp.StatusCode) {
	switch s.kind {
	case KindRun:
		s.respond(bsp.RunResult{OriginID: s.originID, StatusCode: status})
	case KindTest:
		s.respond(bsp.TestResult{OriginID: s.originID, StatusCode: status})
	default:
		s.respond(bsp.CompileResult{OriginID: s.originID, StatusCode: status})
	}
}
