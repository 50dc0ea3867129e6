package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/viant/devops-mcp/internal/collection"
	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
)

// Handler dispatches MCP methods for one session.
type Handler struct {
	transport.Notifier
	*Logger
	*Server
	implementer    Implementer
	activeContexts *collection.SyncMap[string, context.CancelFunc]
	initialized    atomic.Bool
	mux            sync.RWMutex
	clientInfo     *schema.InitializeRequestParams
	loggingLevel   *schema.LoggingLevel
	err            error
}

// Serve handles incoming JSON-RPC requests
func (h *Handler) Serve(parent context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	response.Id = request.Id
	response.Jsonrpc = jsonrpc.Version
	if jsonrpc.Version != request.Jsonrpc {
		response.Error = jsonrpc.NewInvalidRequest("invalid JSON-RPC version", nil)
		return
	}
	if h.err != nil {
		response.Error = jsonrpc.NewInternalError(h.err.Error(), nil)
		return
	}
	switch request.Method {
	case schema.MethodInitialize, schema.MethodPing, schema.MethodLoggingSetLevel:
	default:
		if !h.implementer.Implements(request.Method) {
			response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method: %v not found", request.Method), nil)
			return
		}
	}
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("request handler panic", "method", request.Method, "panic", r)
			response.Result = nil
			response.Error = jsonrpc.NewInternalError(fmt.Sprintf("%v", r), nil)
		}
	}()

	ctx, cancel := context.WithCancel(parent)
	key := requestKey(request.Id)
	h.activeContexts.Put(key, cancel)
	defer h.cancelOperation(key)

	switch request.Method {
	case schema.MethodInitialize:
		result, err := h.Initialize(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodPing:
		h.setResponse(response, &schema.PingResult{}, nil)
	case schema.MethodToolsList:
		result, err := h.ListTools(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodToolsCall:
		result, err := h.CallTool(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodLoggingSetLevel:
		result, err := h.SetLevel(ctx, request)
		h.setResponse(response, result, err)
	default:
		response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method: %v not found", request.Method), nil)
	}
}

func (h *Handler) setResponse(response *jsonrpc.Response, result interface{}, rpcError *jsonrpc.Error) {
	if rpcError != nil {
		response.Error = rpcError
		return
	}
	var err error
	if response.Result, err = json.Marshal(result); err != nil {
		response.Error = jsonrpc.NewInternalError(err.Error(), nil)
	}
}

// OnNotification handles incoming JSON-RPC notifications
func (h *Handler) OnNotification(ctx context.Context, notification *jsonrpc.Notification) {
	switch notification.Method {
	case schema.MethodNotificationCanceled, schema.MethodNotificationCancel:
		h.Cancel(notification)
		return
	case schema.MethodNotificationInitialized:
		h.initialized.Store(true)
		return
	}
	if h.implementer != nil {
		h.implementer.OnNotification(ctx, notification)
	}
}

// Initialized reports whether the client sent notifications/initialized.
func (h *Handler) Initialized() bool {
	return h.initialized.Load()
}

// Initialize handles the initialize method
func (h *Handler) Initialize(ctx context.Context, request *jsonrpc.Request) (*schema.InitializeResult, *jsonrpc.Error) {
	initRequest := schema.InitializeRequest{Method: schema.MethodInitialize}
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &initRequest.Params); err != nil {
			return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), nil)
		}
	}
	h.mux.Lock()
	h.clientInfo = &initRequest.Params
	h.mux.Unlock()
	result := schema.InitializeResult{
		ProtocolVersion: h.negotiateVersion(initRequest.Params.ProtocolVersion),
		ServerInfo:      h.info,
		Capabilities: schema.ServerCapabilities{
			Tools: &schema.ServerCapabilitiesTools{},
		},
		Instructions: h.instructions,
	}
	h.implementer.Initialize(ctx, &initRequest.Params, &result)
	return &result, nil
}

// ClientInfo returns the client initialize parameters, nil before initialize.
func (h *Handler) ClientInfo() *schema.InitializeRequestParams {
	h.mux.RLock()
	defer h.mux.RUnlock()
	return h.clientInfo
}

// ListTools handles the tools/list method
func (h *Handler) ListTools(ctx context.Context, request *jsonrpc.Request) (*schema.ListToolsResult, *jsonrpc.Error) {
	listToolsRequest := &schema.ListToolsRequest{Method: request.Method}
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &listToolsRequest.Params); err != nil {
			return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), nil)
		}
	}
	return h.implementer.ListTools(ctx, listToolsRequest)
}

// CallTool handles the tools/call method
func (h *Handler) CallTool(ctx context.Context, request *jsonrpc.Request) (*schema.CallToolResult, *jsonrpc.Error) {
	callToolRequest := &schema.CallToolRequest{Method: request.Method}
	if err := json.Unmarshal(request.Params, &callToolRequest.Params); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), nil)
	}
	if callToolRequest.Params.Name == "" {
		return nil, jsonrpc.NewInvalidParamsError("tool name was empty", nil)
	}
	return h.implementer.CallTool(ctx, callToolRequest)
}

// SetLevel handles the logging/setLevel method
func (h *Handler) SetLevel(_ context.Context, request *jsonrpc.Request) (*schema.SetLevelResult, *jsonrpc.Error) {
	setLevelRequest := &schema.SetLevelRequest{Method: request.Method}
	if err := json.Unmarshal(request.Params, &setLevelRequest.Params); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), nil)
	}
	level := setLevelRequest.Params.Level
	h.mux.Lock()
	h.loggingLevel = &level
	h.mux.Unlock()
	return &schema.SetLevelResult{}, nil
}

func (h *Handler) level() (schema.LoggingLevel, bool) {
	h.mux.RLock()
	defer h.mux.RUnlock()
	if h.loggingLevel == nil {
		return "", false
	}
	return *h.loggingLevel, true
}

// Cancel handles notifications/cancelled by cancelling the matching in-flight request.
func (h *Handler) Cancel(notification *jsonrpc.Notification) {
	params := struct {
		RequestId interface{} `json:"requestId"`
		Reason    string      `json:"reason,omitempty"`
	}{}
	if err := json.Unmarshal(notification.Params, &params); err != nil || params.RequestId == nil {
		h.logger.Debug("ignoring malformed cancellation", "params", string(notification.Params))
		return
	}
	h.cancelOperation(requestKey(params.RequestId))
}

func (h *Handler) cancelOperation(key string) {
	if cancel, ok := h.activeContexts.Take(key); ok {
		cancel()
	}
}

// Close releases the implementer when it holds resources.
func (h *Handler) Close() error {
	for _, cancel := range h.activeContexts.Values() {
		cancel()
	}
	if closer, ok := h.implementer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func requestKey(id interface{}) string {
	switch actual := id.(type) {
	case float64:
		return strconv.FormatFloat(actual, 'f', -1, 64)
	case string:
		return actual
	default:
		return fmt.Sprint(actual)
	}
}
