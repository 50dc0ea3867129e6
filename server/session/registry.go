package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/viant/devops-mcp/internal/collection"
	"github.com/viant/jsonrpc/transport"
)

const maxIDAttempts = 8

// ErrIDExhausted is returned when no unused id could be generated.
var ErrIDExhausted = errors.New("failed to generate unique session id")

// NewHandler creates the protocol handler for a session transport.
type NewHandler func(ctx context.Context, transport transport.Transport) transport.Handler

// Registry maps session ids to live sessions.
type Registry struct {
	sessions *collection.SyncMap[string, *Session]
	newID    func() string
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(r *Registry)

// WithIDGenerator replaces the uuid id generator.
func WithIDGenerator(newID func() string) RegistryOption {
	return func(r *Registry) {
		r.newID = newID
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(options ...RegistryOption) *Registry {
	ret := &Registry{
		sessions: collection.NewSyncMap[string, *Session](),
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Create registers a session under a fresh id, binds an Adapter and attaches the handler
// produced by newHandler. The session is active on return.
func (r *Registry) Create(ctx context.Context, newHandler NewHandler) (*Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ret, err := r.reserve()
	if err != nil {
		return nil, err
	}
	adapter := newAdapter(ctx, ret.ID, r, r.logger)
	ret.adapter = adapter
	adapter.handler = newHandler(adapter.ctx, adapter)
	ret.setState(StateActive)
	r.logger.Info("session created", "session_id", ret.ID, "sessions", r.sessions.Len())
	return ret, nil
}

func (r *Registry) reserve() (*Session, error) {
	for i := 0; i < maxIDAttempts; i++ {
		candidate := &Session{ID: r.newID()}
		if candidate.ID == "" {
			continue
		}
		if r.sessions.PutIfAbsent(candidate.ID, candidate) {
			return candidate, nil
		}
		r.logger.Warn("session id collision", "session_id", candidate.ID)
	}
	return nil, ErrIDExhausted
}

// Lookup returns the active session registered under id.
func (r *Registry) Lookup(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	ret, ok := r.sessions.Get(id)
	if !ok || ret.State() != StateActive {
		return nil, false
	}
	return ret, true
}

// Remove closes the active session registered under id and reports whether this call
// removed it. The entry leaves the registry through the adapter close event, so the
// session context and handler are released with it.
func (r *Registry) Remove(id string) bool {
	ret, ok := r.sessions.Get(id)
	if !ok || ret.State() != StateActive {
		return false
	}
	return ret.adapter.close()
}

// remove deletes the entry under id on the adapter close event. Removed ids are never
// issued again by the uuid generator.
func (r *Registry) remove(id string) bool {
	ret, ok := r.sessions.Take(id)
	if !ok {
		return false
	}
	ret.setState(StateClosed)
	r.logger.Info("session closed", "session_id", id, "sessions", r.sessions.Len())
	return true
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// CloseAll closes every active session.
func (r *Registry) CloseAll() {
	for _, item := range r.sessions.Values() {
		if item.State() == StateActive {
			item.adapter.Close()
		}
	}
}
