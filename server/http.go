package server

import (
	"context"
	"net/http"
	"time"

	"github.com/viant/devops-mcp/server/session"
)

// DefaultEndpoint is the streamable HTTP path.
const DefaultEndpoint = "/mcp"

// DefaultReadHeaderTimeout bounds how long a client may take to send request headers.
const DefaultReadHeaderTimeout = 10 * time.Second

type httpServer struct {
	endpoint          string
	cors              *Cors
	readHeaderTimeout time.Duration
}

// HTTPHandler returns the streamable HTTP endpoint wrapped in middleware.
func (s *Server) HTTPHandler(ctx context.Context) http.Handler {
	router := session.NewRouter(s.sessions, s.NewHandler, session.WithRouterLogger(s.logger), session.WithBaseContext(ctx))
	middlewareHandlers := []Middleware{recoverMiddleware(s.logger)}
	if s.cors != nil {
		middlewareHandlers = append(middlewareHandlers, s.cors.Middleware, originValidationMiddleware(s.cors.AllowOrigins))
	}
	middlewareHandlers = append(middlewareHandlers, protocolVersionMiddleware(s.supportedVersions))
	mux := http.NewServeMux()
	mux.Handle(s.endpoint, ChainMiddlewareHandlers(router, middlewareHandlers...))
	return mux
}

// HTTP creates an http.Server serving the streamable HTTP endpoint on addr. Shutting it down
// closes every open session.
func (s *Server) HTTP(ctx context.Context, addr string) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(ctx),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}
	server.RegisterOnShutdown(s.sessions.CloseAll)
	return server
}
