package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// DefaultMaxBodySize limits POST bodies to 100 KiB, the usual JSON body parser limit.
const DefaultMaxBodySize = 100 << 10

const (
	invalidSessionMessage = "Bad Request: No valid session ID provided"
	invalidSessionText    = "Invalid or missing session ID"
)

// Router dispatches streamable HTTP requests to session adapters.
type Router struct {
	registry    *Registry
	newHandler  NewHandler
	logger      *slog.Logger
	baseContext context.Context
	maxBodySize int64
}

// RouterOption configures a Router.
type RouterOption func(r *Router)

// WithRouterLogger sets the diagnostic logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBaseContext sets the parent of every session context.
func WithBaseContext(ctx context.Context) RouterOption {
	return func(r *Router) {
		if ctx != nil {
			r.baseContext = ctx
		}
	}
}

// WithMaxBodySize sets the POST body limit.
func WithMaxBodySize(size int64) RouterOption {
	return func(r *Router) {
		r.maxBodySize = size
	}
}

// NewRouter creates a router creating sessions in registry with newHandler.
func NewRouter(registry *Registry, newHandler NewHandler, options ...RouterOption) *Router {
	ret := &Router{
		registry:    registry,
		newHandler:  newHandler,
		logger:      slog.Default(),
		baseContext: context.Background(),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPost:
		r.handlePost(w, req)
	case http.MethodGet, http.MethodDelete:
		item, ok := r.registry.Lookup(req.Header.Get(HeaderSessionID))
		if !ok {
			http.Error(w, invalidSessionText, http.StatusBadRequest)
			return
		}
		if req.Method == http.MethodGet {
			item.Adapter().HandleGet(w, req)
			return
		}
		item.Adapter().HandleDelete(w, req)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (r *Router) handlePost(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeInvalidRequest, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, CodeParseError, "Parse error")
		return
	}
	if sessionID := req.Header.Get(HeaderSessionID); sessionID != "" {
		item, ok := r.registry.Lookup(sessionID)
		if !ok {
			r.logger.Debug("rejected request for unknown session", "session_id", sessionID)
			writeError(w, http.StatusBadRequest, CodeInvalidSession, invalidSessionMessage)
			return
		}
		item.Adapter().HandlePost(w, req, body)
		return
	}
	if !IsInitializeRequest(body) {
		writeError(w, http.StatusBadRequest, CodeInvalidSession, invalidSessionMessage)
		return
	}
	item, err := r.registry.Create(r.baseContext, r.newHandler)
	if err != nil {
		r.logger.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, err.Error())
		return
	}
	item.Adapter().HandlePost(w, req, body)
}
