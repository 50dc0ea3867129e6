package server

import (
	"context"
	"encoding/json"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
)

// Logger sends notifications/message to the client once the client selected a level with
// logging/setLevel. Messages below the selected level are skipped.
type Logger struct {
	name     string
	level    func() (schema.LoggingLevel, bool)
	notifier transport.Notifier
}

// Named returns a logger sharing level and notifier under a different name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{name: name, level: l.level, notifier: l.notifier}
}

func (l *Logger) log(ctx context.Context, level schema.LoggingLevel, data any) error {
	if l == nil || l.level == nil || l.notifier == nil {
		return nil
	}
	selected, ok := l.level()
	if !ok || selected.Ordinal() > level.Ordinal() {
		return nil
	}
	notification := &jsonrpc.Notification{Method: schema.MethodNotificationMessage}
	params := schema.LoggingMessageNotificationParams{
		Level:  level,
		Logger: &l.name,
		Data:   data,
	}
	var err error
	if notification.Params, err = json.Marshal(params); err != nil {
		return err
	}
	return l.notifier.Notify(ctx, notification)
}

func (l *Logger) Debug(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.Debug, data)
}

func (l *Logger) Info(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.Info, data)
}

func (l *Logger) Warning(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.Warning, data)
}

func (l *Logger) Error(ctx context.Context, data interface{}) error {
	return l.log(ctx, schema.Err, data)
}

// NewLogger creates a client facing logger.
func NewLogger(name string, level func() (schema.LoggingLevel, bool), notifier transport.Notifier) *Logger {
	return &Logger{name: name, level: level, notifier: notifier}
}
