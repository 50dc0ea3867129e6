package session

import (
	"fmt"
	"io"
	"net/http"
)

const streamBuffer = 64

// stream is the single server-sent event channel of a session.
type stream struct {
	frames chan []byte
	done   chan struct{}
}

func newStream() *stream {
	return &stream{frames: make(chan []byte, streamBuffer), done: make(chan struct{})}
}

// eventWriter frames JSON-RPC messages as server-sent events.
type eventWriter struct {
	w       io.Writer
	flusher http.Flusher
	eventID int64
}

func newEventWriter(w http.ResponseWriter) (*eventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	return &eventWriter{w: w, flusher: flusher}, nil
}

func (e *eventWriter) writeHeaders(w http.ResponseWriter, sessionID string) {
	w.Header().Set("Content-Type", ContentTypeEventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(HeaderSessionID, sessionID)
	w.WriteHeader(http.StatusOK)
	e.flusher.Flush()
}

// write emits one event; data must not contain newlines.
func (e *eventWriter) write(data []byte) error {
	e.eventID++
	if _, err := fmt.Fprintf(e.w, "id: %d\nevent: message\ndata: %s\n\n", e.eventID, data); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}
