package devops

import (
	"context"
	"log/slog"
	"sync"

	"github.com/viant/devops-mcp/config"
)

// Connector creates the Azure DevOps client.
type Connector func(ctx context.Context) (*Client, error)

// Backend connects on first use and keeps the outcome. A connection error is returned by
// every later call.
type Backend struct {
	connect Connector
	once    sync.Once
	client  *Client
	err     error
}

// Client returns the connected client or the connection error.
func (b *Backend) Client(ctx context.Context) (*Client, error) {
	b.once.Do(func() {
		b.client, b.err = b.connect(ctx)
	})
	return b.client, b.err
}

// NewBackend creates a backend using connect.
func NewBackend(connect Connector) *Backend {
	return &Backend{connect: connect}
}

// NewConfigBackend creates a backend connecting with cfg. Credentials are bound to ctx, not
// to the request that triggers the connection.
func NewConfigBackend(ctx context.Context, cfg *config.Config, log *slog.Logger) *Backend {
	return NewBackend(func(context.Context) (*Client, error) {
		credential, err := NewCredential(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return NewClient(cfg.OrganizationURL, cfg.APIVersion, credential, WithClientLogger(log))
	})
}
