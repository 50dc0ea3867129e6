package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/viant/jsonrpc/transport/server/stdio"
	"github.com/viant/mcp-protocol/schema"
)

// Option is a function that configures the server.
type Option func(s *Server) error

// WithCORS enables CORS headers and Origin validation for the HTTP transport.
func WithCORS(cors *Cors) Option {
	return func(s *Server) error {
		s.cors = cors
		return nil
	}
}

// WithImplementation sets the server implementation.
func WithImplementation(implementation schema.Implementation) Option {
	return func(s *Server) error {
		s.info = implementation
		return nil
	}
}

// WithInstructions sets the instructions returned by initialize.
func WithInstructions(instructions string) Option {
	return func(s *Server) error {
		s.instructions = &instructions
		return nil
	}
}

// WithNewImplementer sets the new implementer.
func WithNewImplementer(newImplementer NewImplementer) Option {
	return func(s *Server) error {
		s.newImplementer = newImplementer
		return nil
	}
}

// WithLoggerName sets the client facing logger name.
func WithLoggerName(name string) Option {
	return func(s *Server) error {
		s.loggerName = name
		return nil
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			return errors.New("logger was nil")
		}
		s.logger = logger
		return nil
	}
}

// WithProtocolVersions sets accepted protocol versions, the first being preferred.
func WithProtocolVersions(versions ...string) Option {
	return func(s *Server) error {
		if len(versions) == 0 {
			return errors.New("protocol versions were empty")
		}
		s.protocolVersion = versions[0]
		s.supportedVersions = versions
		return nil
	}
}

// WithEndpoint sets the streamable HTTP path.
func WithEndpoint(endpoint string) Option {
	return func(s *Server) error {
		s.endpoint = endpoint
		return nil
	}
}

// WithReadHeaderTimeout sets the HTTP server read header timeout.
func WithReadHeaderTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		if timeout <= 0 {
			return errors.New("read header timeout must be positive")
		}
		s.readHeaderTimeout = timeout
		return nil
	}
}

// WithStdioOptions passes options to the stdio transport.
func WithStdioOptions(options ...stdio.Option) Option {
	return func(s *Server) error {
		s.stdioServerOption = append(s.stdioServerOption, options...)
		return nil
	}
}
