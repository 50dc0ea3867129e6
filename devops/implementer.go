package devops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/viant/devops-mcp/server"
	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
)

// Implementer serves the Azure DevOps tools for one session.
type Implementer struct {
	backend        *Backend
	defaultProject string
	notifier       transport.Notifier
	logger         *server.Logger
	log            *slog.Logger
	tools          map[string]*tool
}

// Initialize implements server.Implementer.
func (i *Implementer) Initialize(_ context.Context, params *schema.InitializeRequestParams, _ *schema.InitializeResult) {
	if params != nil {
		i.log.Debug("client initialized", "client", params.ClientInfo.Name, "version", params.ClientInfo.Version)
	}
}

// ListTools implements server.Implementer.
func (i *Implementer) ListTools(context.Context, *schema.ListToolsRequest) (*schema.ListToolsResult, *jsonrpc.Error) {
	names := make([]string, 0, len(i.tools))
	for name := range i.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	result := &schema.ListToolsResult{Tools: make([]schema.Tool, 0, len(names))}
	for _, name := range names {
		result.Tools = append(result.Tools, i.tools[name].definition)
	}
	return result, nil
}

// CallTool implements server.Implementer. Upstream failures are reported as tool results
// with isError set.
func (i *Implementer) CallTool(ctx context.Context, request *schema.CallToolRequest) (*schema.CallToolResult, *jsonrpc.Error) {
	selected, ok := i.tools[request.Params.Name]
	if !ok {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("unknown tool: %v", request.Params.Name), nil)
	}
	client, err := i.backend.Client(ctx)
	if err != nil {
		return i.errorResult(ctx, request.Params.Name, err), nil
	}
	data, err := selected.handler(ctx, client, arguments(request.Params.Arguments))
	if err != nil {
		return i.errorResult(ctx, request.Params.Name, err), nil
	}
	text := string(data)
	indented := &bytes.Buffer{}
	if json.Indent(indented, data, "", "  ") == nil {
		text = indented.String()
	}
	return &schema.CallToolResult{
		Content: []schema.CallToolResultContentElem{textContent(text)},
	}, nil
}

func (i *Implementer) errorResult(ctx context.Context, name string, err error) *schema.CallToolResult {
	i.log.Warn("tool call failed", "tool", name, "error", err)
	_ = i.logger.Error(ctx, fmt.Sprintf("%v: %v", name, err))
	isError := true
	return &schema.CallToolResult{
		Content: []schema.CallToolResultContentElem{textContent("Error: " + err.Error())},
		IsError: &isError,
	}
}

func textContent(text string) *schema.TextContent {
	return &schema.TextContent{Type: "text", Text: text}
}

// OnNotification implements server.Implementer.
func (i *Implementer) OnNotification(_ context.Context, notification *jsonrpc.Notification) {
	i.log.Debug("ignoring notification", "method", notification.Method)
}

// Implements implements server.Implementer.
func (i *Implementer) Implements(method string) bool {
	switch method {
	case schema.MethodToolsList, schema.MethodToolsCall:
		return true
	}
	return false
}

func (i *Implementer) register(t *tool) {
	i.tools[t.definition.Name] = t
}

// New returns a server.NewImplementer sharing backend across sessions.
func New(backend *Backend, defaultProject string, log *slog.Logger) server.NewImplementer {
	if log == nil {
		log = slog.Default()
	}
	return func(_ context.Context, notifier transport.Notifier, logger *server.Logger) (server.Implementer, error) {
		ret := &Implementer{
			backend:        backend,
			defaultProject: defaultProject,
			notifier:       notifier,
			logger:         logger,
			log:            log,
			tools:          map[string]*tool{},
		}
		ret.registerTools()
		return ret, nil
	}
}
