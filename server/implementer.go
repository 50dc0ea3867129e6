package server

import (
	"context"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
)

// Implementer provides the tool surface behind a Handler. One Implementer is created per
// session.
type Implementer interface {
	// Initialize may amend the initialize result, e.g. to declare extra capabilities.
	Initialize(ctx context.Context, params *schema.InitializeRequestParams, result *schema.InitializeResult)

	ListTools(ctx context.Context, request *schema.ListToolsRequest) (*schema.ListToolsResult, *jsonrpc.Error)

	CallTool(ctx context.Context, request *schema.CallToolRequest) (*schema.CallToolResult, *jsonrpc.Error)

	// OnNotification receives client notifications not consumed by the Handler.
	OnNotification(ctx context.Context, notification *jsonrpc.Notification)

	// Implements reports whether method is served.
	Implements(method string) bool
}

// NewImplementer creates an Implementer bound to one session.
type NewImplementer func(ctx context.Context, notifier transport.Notifier, logger *Logger) (Implementer, error)
