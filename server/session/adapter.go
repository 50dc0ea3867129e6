package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/viant/devops-mcp/internal/collection"
	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
)

var (
	// ErrSessionClosed is returned by transport calls on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoStream is returned by Send when the client has no event stream open.
	ErrNoStream = errors.New("no event stream open")
	errStreamOpen = errors.New("event stream already open")
)

// remover receives the close event of an adapter.
type remover interface {
	remove(id string) bool
}

// Adapter is the channel adapter of one HTTP session. It implements transport.Transport for
// the protocol handler: Notify and Send write to the session event stream, responses to
// Send arrive in later POSTs.
type Adapter struct {
	id          string
	ctx         context.Context
	cancel      context.CancelFunc
	handler     transport.Handler
	registry    remover
	logger      *slog.Logger
	initialized atomic.Bool
	mux         sync.Mutex
	stream      *stream
	pending     *collection.SyncMap[string, chan *jsonrpc.Response]
	sequence    atomic.Uint64
	closeOnce   sync.Once
	done        chan struct{}
}

var _ transport.Transport = (*Adapter)(nil)

func newAdapter(ctx context.Context, id string, registry remover, logger *slog.Logger) *Adapter {
	ctx, cancel := context.WithCancel(ctx)
	return &Adapter{
		id:       id,
		ctx:      ctx,
		cancel:   cancel,
		registry: registry,
		logger:   logger.With("session_id", id),
		pending:  collection.NewSyncMap[string, chan *jsonrpc.Response](),
		done:     make(chan struct{}),
	}
}

// ID returns the session id.
func (a *Adapter) ID() string {
	return a.id
}

// Done is closed once the adapter is closed.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

// Closed reports whether Close was called.
func (a *Adapter) Closed() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Close tears the session down: the session context is cancelled, pending Send calls fail,
// the event stream ends and the registry is told to remove the session. Only the first
// call has an effect.
func (a *Adapter) Close() {
	a.close()
}

// close reports whether this call removed the session from the registry.
func (a *Adapter) close() bool {
	removed := false
	a.closeOnce.Do(func() {
		a.cancel()
		close(a.done)
		if closer, ok := a.handler.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				a.logger.Warn("failed to close session handler", "error", err)
			}
		}
		if a.registry != nil {
			removed = a.registry.remove(a.id)
		}
	})
	return removed
}

// HandlePost processes one POSTed message or batch.
func (a *Adapter) HandlePost(w http.ResponseWriter, r *http.Request, body []byte) {
	if a.Closed() {
		writeError(w, http.StatusBadRequest, CodeInvalidSession, invalidSessionMessage)
		return
	}
	messages, batch, err := decodeMessages(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeParseError, "Parse error")
		return
	}
	var requests []*message
	initializeCount := 0
	for _, item := range messages {
		switch {
		case item.isRequest():
			requests = append(requests, item)
			if item.Method == methodInitialize {
				initializeCount++
			}
		case item.isNotification(), item.isResponse():
		default:
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid Request")
			return
		}
	}
	if initializeCount > 0 {
		if initializeCount > 1 || len(messages) > 1 {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid Request: Only one initialization request is allowed")
			return
		}
		if !a.initialized.CompareAndSwap(false, true) {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid Request: Server already initialized")
			return
		}
	}

	ctx, cancel := a.requestContext(r.Context())
	defer cancel()
	w.Header().Set(HeaderSessionID, a.id)
	for _, item := range messages {
		switch {
		case item.isNotification():
			a.handler.OnNotification(ctx, item.notification())
		case item.isResponse():
			a.resolve(item)
		}
	}
	if len(requests) == 0 {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	responses := make([]*outgoingResponse, 0, len(requests))
	for _, item := range requests {
		request := item.request()
		response := &jsonrpc.Response{Id: request.Id, Jsonrpc: jsonrpc.Version}
		a.handler.Serve(ctx, request, response)
		responses = append(responses, newOutgoingResponse(response))
	}
	if batch {
		writeJSON(w, http.StatusOK, responses)
		return
	}
	writeJSON(w, http.StatusOK, responses[0])
}

// HandleGet serves the session event stream until the client disconnects or the session
// closes. A client disconnect closes the session.
func (a *Adapter) HandleGet(w http.ResponseWriter, r *http.Request) {
	writer, err := newEventWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	current, err := a.openStream()
	switch {
	case errors.Is(err, ErrSessionClosed):
		http.Error(w, invalidSessionText, http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "Conflict: Only one SSE stream is allowed per session", http.StatusConflict)
		return
	}
	defer a.closeStream(current)
	writer.writeHeaders(w, a.id)
	for {
		select {
		case <-r.Context().Done():
			a.logger.Debug("event stream disconnected")
			a.Close()
			return
		case <-a.done:
			return
		case data := <-current.frames:
			if err := writer.write(data); err != nil {
				a.logger.Debug("event stream write failed", "error", err)
				a.Close()
				return
			}
		}
	}
}

// HandleDelete closes the session.
func (a *Adapter) HandleDelete(w http.ResponseWriter, _ *http.Request) {
	a.Close()
	w.WriteHeader(http.StatusOK)
}

// Notify writes notification to the event stream; it is dropped when no stream is open.
func (a *Adapter) Notify(ctx context.Context, notification *jsonrpc.Notification) error {
	data, err := json.Marshal(&outgoingNotification{Jsonrpc: jsonrpc.Version, Method: notification.Method, Params: notification.Params})
	if err != nil {
		return err
	}
	return a.push(ctx, data, false)
}

// Send writes request to the event stream and waits for the client response.
func (a *Adapter) Send(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error) {
	if request.Id == nil {
		request.Id = a.sequence.Add(1)
	}
	key := requestKey(request.Id)
	responses := make(chan *jsonrpc.Response, 1)
	a.pending.Put(key, responses)
	defer a.pending.Delete(key)
	data, err := json.Marshal(&outgoingRequest{Jsonrpc: jsonrpc.Version, Id: request.Id, Method: request.Method, Params: request.Params})
	if err != nil {
		return nil, err
	}
	if err = a.push(ctx, data, true); err != nil {
		return nil, err
	}
	select {
	case response := <-responses:
		return response, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-a.done:
		return nil, ErrSessionClosed
	}
}

func (a *Adapter) resolve(item *message) {
	key := requestKey(item.id())
	responses, ok := a.pending.Take(key)
	if !ok {
		a.logger.Debug("ignoring response without pending request", "id", key)
		return
	}
	responses <- item.response()
}

func (a *Adapter) push(ctx context.Context, data []byte, required bool) error {
	if a.Closed() {
		return ErrSessionClosed
	}
	a.mux.Lock()
	current := a.stream
	a.mux.Unlock()
	if current == nil {
		if required {
			return ErrNoStream
		}
		a.logger.Debug("dropping message, no event stream open")
		return nil
	}
	select {
	case current.frames <- data:
		return nil
	case <-current.done:
		if required {
			return ErrNoStream
		}
		return nil
	case <-a.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) openStream() (*stream, error) {
	a.mux.Lock()
	defer a.mux.Unlock()
	if a.Closed() {
		return nil, ErrSessionClosed
	}
	if a.stream != nil {
		return nil, errStreamOpen
	}
	a.stream = newStream()
	return a.stream, nil
}

func (a *Adapter) closeStream(current *stream) {
	a.mux.Lock()
	defer a.mux.Unlock()
	if a.stream == current {
		a.stream = nil
	}
	close(current.done)
}

// requestContext is cancelled when either the HTTP request or the session ends.
func (a *Adapter) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(a.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func requestKey(id interface{}) string {
	switch actual := id.(type) {
	case float64:
		return strconv.FormatFloat(actual, 'f', -1, 64)
	case string:
		return actual
	case nil:
		return ""
	default:
		return fmt.Sprint(actual)
	}
}
