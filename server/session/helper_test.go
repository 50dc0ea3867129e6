package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
)

const initializeBody = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26"}}`

type echoHandler struct {
	ctx           context.Context
	transport     transport.Transport
	mux           sync.Mutex
	notifications []string
}

func (h *echoHandler) Serve(_ context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	switch request.Method {
	case "initialize":
		response.Result = json.RawMessage(`{"protocolVersion":"2025-03-26"}`)
	case "fail":
		response.Error = jsonrpc.NewMethodNotFound("method: fail not found", nil)
	default:
		response.Result, _ = json.Marshal(map[string]string{"method": request.Method})
	}
}

func (h *echoHandler) OnNotification(_ context.Context, notification *jsonrpc.Notification) {
	h.mux.Lock()
	defer h.mux.Unlock()
	h.notifications = append(h.notifications, notification.Method)
}

func (h *echoHandler) received() []string {
	h.mux.Lock()
	defer h.mux.Unlock()
	return append([]string(nil), h.notifications...)
}

type handlerFactory struct {
	mux      sync.Mutex
	handlers []*echoHandler
}

func (f *handlerFactory) newHandler(ctx context.Context, transport transport.Transport) transport.Handler {
	ret := &echoHandler{ctx: ctx, transport: transport}
	f.mux.Lock()
	f.handlers = append(f.handlers, ret)
	f.mux.Unlock()
	return ret
}

func (f *handlerFactory) last() *echoHandler {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.handlers[len(f.handlers)-1]
}

type response struct {
	status    int
	header    http.Header
	body      string
	sessionID string
}

func post(t *testing.T, url, sessionID, body string) *response {
	t.Helper()
	return do(t, http.MethodPost, url, sessionID, body)
}

func do(t *testing.T, method, url, sessionID, body string) *response {
	t.Helper()
	request, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	if body != "" {
		request.Header.Set("Content-Type", ContentTypeJSON)
	}
	if sessionID != "" {
		request.Header.Set(HeaderSessionID, sessionID)
	}
	resp, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return &response{status: resp.StatusCode, header: resp.Header, body: string(data), sessionID: resp.Header.Get(HeaderSessionID)}
}

func notification(method string) *jsonrpc.Notification {
	return &jsonrpc.Notification{Method: method}
}

func request(method string) *jsonrpc.Request {
	return &jsonrpc.Request{Jsonrpc: jsonrpc.Version, Method: method}
}
