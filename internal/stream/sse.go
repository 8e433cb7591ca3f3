package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// SSEWriter writes stream events to an HTTP response as Server-Sent Events,
// one `data: {json}` frame per event, flushed immediately. Safe for
// concurrent use.
type SSEWriter struct {
	mu      sync.Mutex
	writer  http.ResponseWriter
	flusher http.Flusher
}

// SetSSEHeaders sets the response headers required for an SSE stream. Must
// be called before the first write. X-Accel-Buffering disables proxy-side
// buffering so events reach the client as they are produced.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// NewSSEWriter creates an SSEWriter over the given ResponseWriter. Returns an
// error if the writer does not support flushing, which SSE requires.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support http.Flusher")
	}
	return &SSEWriter{writer: w, flusher: flusher}, nil
}

// Write serializes the event and writes one SSE frame.
func (w *SSEWriter) Write(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write stream event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// KeepAlive writes an SSE comment frame. Comments are ignored by clients but
// keep the connection alive through load balancers during long LLM phases.
func (w *SSEWriter) KeepAlive() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprint(w.writer, ": ping\n\n"); err != nil {
		return fmt.Errorf("write keep-alive: %w", err)
	}
	w.flusher.Flush()
	return nil
}
