// Package jsonrpc implements the JSON-RPC 2.0 message model and the
// Content-Length framed stdio codec used by the build server protocol.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is the protocol version stamped on every outgoing message.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeRequestCancelled follows the LSP extension range
	CodeRequestCancelled = -32800
)

// ID is a request identifier: either a JSON number or a JSON string.
// The raw form is preserved so responses echo exactly what the client
// sent.
type ID struct {
	raw json.RawMessage
}

// NewStringID creates an ID from a string value
func NewStringID(s string) ID {
	raw, _ := json.Marshal(s)
	return ID{raw: raw}
}

// NewIntID creates an ID from an integer value
func NewIntID(n int64) ID {
	raw, _ := json.Marshal(n)
	return ID{raw: raw}
}

// IsValid reports whether the ID carries a value
func (id ID) IsValid() bool {
	return len(id.raw) > 0
}

// String returns the textual form of the ID, without JSON quoting,
// for use as a map key and in log lines
func (id ID) String() string {
	if !id.IsValid() {
		return ""
	}
	var s string
	if err := json.Unmarshal(id.raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(id.raw))
}

// MarshalJSON implements json.Marshaler
func (id ID) MarshalJSON() ([]byte, error) {
	if !id.IsValid() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		id.raw = nil
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("invalid string id: %w", err)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("invalid numeric id: %w", err)
		}
	default:
		return fmt.Errorf("id must be a string or a number, got %s", trimmed)
	}
	id.raw = append(json.RawMessage(nil), trimmed...)
	return nil
}

// Message is the closed set of JSON-RPC message kinds: *Request,
// *Notification and *Response
type Message interface {
	isMessage()
}

// Request is a method call expecting exactly one Response
type Request struct {
	ID     ID
	Method string
	Params json.RawMessage
}

// Notification is a method call with no response
type Notification struct {
	Method string
	Params json.RawMessage
}

// Response completes a Request. Result and Error are mutually
// exclusive
type Response struct {
	ID     ID
	Result interface{}
	Error  *ResponseError
}

// ResponseError is the error member of a failed Response
type ResponseError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func (*Request) isMessage()      {}
func (*Notification) isMessage() {}
func (*Response) isMessage()     {}

// NewNotification builds a Notification with marshaled params
func NewNotification(method string, params interface{}) (*Notification, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s params: %w", method, err)
	}
	return &Notification{Method: method, Params: raw}, nil
}

// NewErrorResponse builds a failed Response for the given id
func NewErrorResponse(id ID, code int, message string) *Response {
	return &Response{ID: id, Error: &ResponseError{Code: code, Message: message}}
}

// wireMessage is the union shape used for both directions on the wire
type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// EncodeMessage marshals a Message into its wire form
func EncodeMessage(msg Message) ([]byte, error) {
	wire := wireMessage{JSONRPC: Version}
	switch m := msg.(type) {
	case *Request:
		id := m.ID
		wire.ID = &id
		wire.Method = m.Method
		wire.Params = m.Params
	case *Notification:
		wire.Method = m.Method
		wire.Params = m.Params
	case *Response:
		id := m.ID
		wire.ID = &id
		if m.Error == nil {
			result, err := json.Marshal(m.Result)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal response result: %w", err)
			}
			wire.Result = result
		} else {
			wire.Error = m.Error
		}
	default:
		return nil, fmt.Errorf("unknown message type %T", msg)
	}
	return json.Marshal(wire)
}

// DecodeMessage parses raw bytes into a Request, Notification or
// Response
func DecodeMessage(data []byte) (Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("malformed jsonrpc message: %w", err)
	}

	hasID := wire.ID != nil && wire.ID.IsValid()
	switch {
	case wire.Method != "" && hasID:
		return &Request{ID: *wire.ID, Method: wire.Method, Params: wire.Params}, nil
	case wire.Method != "":
		return &Notification{Method: wire.Method, Params: wire.Params}, nil
	case hasID:
		return &Response{ID: *wire.ID, Result: wire.Result, Error: wire.Error}, nil
	case wire.Error != nil:
		// Error responses to unreadable requests carry a null id
		return &Response{Error: wire.Error}, nil
	default:
		return nil, fmt.Errorf("message has neither method nor id")
	}
}
