package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viant/jsonrpc"
)

// HTTP headers and content types used by the streamable transport.
const (
	HeaderSessionID        = "Mcp-Session-Id"
	ContentTypeJSON        = "application/json"
	ContentTypeEventStream = "text/event-stream"
)

// JSON-RPC error codes written by the transport.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeInternalError  = -32603
	CodeInvalidSession = -3200
)

const methodInitialize = "initialize"

var errEmptyBatch = errors.New("empty batch")

// message is a decoded JSON-RPC request, notification or response.
type message struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpc.Error  `json:"error,omitempty"`
}

func (m *message) hasID() bool {
	return len(m.Id) > 0 && !bytes.Equal(m.Id, []byte("null"))
}

func (m *message) isRequest() bool {
	return m.Method != "" && m.hasID()
}

func (m *message) isNotification() bool {
	return m.Method != "" && !m.hasID()
}

func (m *message) isResponse() bool {
	return m.Method == "" && m.hasID()
}

func (m *message) id() interface{} {
	var ret interface{}
	if err := json.Unmarshal(m.Id, &ret); err != nil {
		return nil
	}
	return ret
}

func (m *message) request() *jsonrpc.Request {
	return &jsonrpc.Request{Jsonrpc: m.Jsonrpc, Id: m.id(), Method: m.Method, Params: m.Params}
}

func (m *message) notification() *jsonrpc.Notification {
	return &jsonrpc.Notification{Method: m.Method, Params: m.Params}
}

func (m *message) response() *jsonrpc.Response {
	return &jsonrpc.Response{Jsonrpc: m.Jsonrpc, Id: m.id(), Result: m.Result, Error: m.Error}
}

// decodeMessages decodes a single message or a batch.
func decodeMessages(data []byte) ([]*message, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var batch []*message
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, true, err
		}
		if len(batch) == 0 {
			return nil, true, errEmptyBatch
		}
		for _, item := range batch {
			if item == nil {
				return nil, true, errEmptyBatch
			}
		}
		return batch, true, nil
	}
	single := &message{}
	if err := json.Unmarshal(data, single); err != nil {
		return nil, false, err
	}
	return []*message{single}, false, nil
}

// IsInitializeRequest reports whether body holds a single JSON-RPC initialize request.
func IsInitializeRequest(body []byte) bool {
	messages, batch, err := decodeMessages(body)
	if err != nil || batch {
		return false
	}
	candidate := messages[0]
	return candidate.Jsonrpc == jsonrpc.Version && candidate.Method == methodInitialize && candidate.hasID()
}

type outgoingRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type outgoingNotification struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type outgoingResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   interface{}     `json:"error,omitempty"`
}

type errorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newOutgoingResponse(response *jsonrpc.Response) *outgoingResponse {
	ret := &outgoingResponse{Jsonrpc: jsonrpc.Version, Id: response.Id}
	if response.Error != nil {
		ret.Error = response.Error
		return ret
	}
	ret.Result = response.Result
	if len(ret.Result) == 0 {
		ret.Result = json.RawMessage("{}")
	}
	return ret
}

// writeError writes a JSON-RPC error object with a null id and the given HTTP status.
func writeError(w http.ResponseWriter, status int, code int, text string) {
	writeJSON(w, status, &outgoingResponse{Jsonrpc: jsonrpc.Version, Error: &errorObject{Code: code, Message: text}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
