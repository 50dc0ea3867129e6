package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/viant/devops-mcp/internal/collection"
	"github.com/viant/devops-mcp/server/session"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
)

// Server represents MCP protocol handler
type Server struct {
	info              schema.Implementation
	newImplementer    NewImplementer
	instructions      *string
	protocolVersion   string
	supportedVersions []string
	loggerName        string
	logger            *slog.Logger
	sessions          *session.Registry

	stdioServer
	httpServer
}

// NewHandler creates a new handler instance
func (s *Server) NewHandler(ctx context.Context, transport transport.Transport) transport.Handler {
	return s.newHandler(ctx, transport)
}

func (s *Server) newHandler(ctx context.Context, transport transport.Transport) *Handler {
	ret := &Handler{
		Server:         s,
		Notifier:       transport,
		activeContexts: collection.NewSyncMap[string, context.CancelFunc](),
	}
	ret.Logger = NewLogger(s.loggerName, ret.level, transport)
	ret.implementer, ret.err = s.newImplementer(ctx, transport, ret.Logger)
	if ret.err != nil {
		s.logger.Error("failed to create implementer", "error", ret.err)
	}
	return ret
}

// Sessions returns the HTTP session registry.
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

func (s *Server) negotiateVersion(requested string) string {
	for _, candidate := range s.supportedVersions {
		if candidate == requested {
			return requested
		}
	}
	return s.protocolVersion
}

// New creates a new Server instance
func New(options ...Option) (*Server, error) {
	s := &Server{
		info: schema.Implementation{
			Name:    "devops-mcp",
			Version: "0.1.0",
		},
		loggerName:        "server",
		protocolVersion:   schema.LatestProtocolVersion,
		supportedVersions: DefaultProtocolVersions,
		logger:            slog.Default(),
		httpServer:        httpServer{endpoint: DefaultEndpoint, readHeaderTimeout: DefaultReadHeaderTimeout},
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	if s.newImplementer == nil {
		return nil, errors.New("no implementer specified")
	}
	s.sessions = session.NewRegistry(session.WithLogger(s.logger))
	return s, nil
}
