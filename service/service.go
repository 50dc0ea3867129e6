package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/viant/devops-mcp/config"
	"github.com/viant/devops-mcp/devops"
	"github.com/viant/devops-mcp/server"
	"github.com/viant/mcp-protocol/schema"
)

const (
	// Name is reported as the MCP server name.
	Name = "azure-devops-mcp"
	// Version is reported as the MCP server version.
	Version = "1.0.0"

	shutdownTimeout = 5 * time.Second
)

// Service selects and runs the configured transport.
type Service struct {
	config *config.Config
	server *server.Server
	logger *slog.Logger
}

// New creates a service for cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend := devops.NewConfigBackend(ctx, cfg, logger)
	options := []server.Option{
		server.WithImplementation(schema.Implementation{Name: Name, Version: Version}),
		server.WithNewImplementer(devops.New(backend, cfg.DefaultProject, logger)),
		server.WithLogger(logger),
		server.WithLoggerName(Name),
	}
	if len(cfg.AllowedOrigins) > 0 {
		options = append(options, server.WithCORS(server.NewCors(cfg.AllowedOrigins)))
	}
	srv, err := server.New(options...)
	if err != nil {
		return nil, err
	}
	return &Service{config: cfg, server: srv, logger: logger}, nil
}

// Server returns the MCP server.
func (s *Service) Server() *server.Server {
	return s.server
}

// Serve runs the configured transport until it ends or ctx is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	switch s.config.Transport {
	case config.TransportHTTP:
		listener, err := net.Listen("tcp", s.Address())
		if err != nil {
			return fmt.Errorf("failed to listen on %v: %w", s.Address(), err)
		}
		return s.ServeListener(ctx, listener)
	default:
		return s.serveStdio(ctx)
	}
}

// Address returns the HTTP bind address.
func (s *Service) Address() string {
	return ":" + strconv.Itoa(s.config.HTTPPort)
}

func (s *Service) serveStdio(ctx context.Context) error {
	stdio := s.server.Stdio(ctx)
	s.logger.Info("Azure DevOps MCP Server running on stdio")
	done := make(chan error, 1)
	go func() {
		done <- stdio.ListenAndServe()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

// ServeListener serves the streamable HTTP endpoint on listener. Cancelling ctx shuts the
// server down and closes every session.
func (s *Service) ServeListener(ctx context.Context, listener net.Listener) error {
	httpServer := s.server.HTTP(ctx, s.Address())
	s.logger.Info("Azure DevOps MCP Server running on " + s.Address())
	done := make(chan error, 1)
	go func() {
		done <- httpServer.Serve(listener)
	}()
	select {
	case err := <-done:
		s.server.Sessions().CloseAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.server.Sessions().CloseAll()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown did not complete", "error", err)
		return httpServer.Close()
	}
	return nil
}
