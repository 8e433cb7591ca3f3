package stream

import (
	"sync"
)

// Detachable wraps a sink that is backed by a caller-owned resource, such as
// an HTTP response writer that is recycled when the handler returns. Once
// Detach has been called, Write is a no-op; a pipeline that outlives the
// caller never touches the released resource.
type Detachable struct {
	mu       sync.Mutex
	sink     Sink
	detached bool
}

// NewDetachable creates a Detachable guard over the given sink.
func NewDetachable(sink Sink) *Detachable {
	return &Detachable{sink: sink}
}

// Write forwards the event to the underlying sink, or silently drops it once
// the guard has been detached. Dropping is not an error: intermediate events
// are advisory and the terminal outcome is recovered from the case record.
func (d *Detachable) Write(event Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.detached {
		return nil
	}
	return d.sink.Write(event)
}

// Detach releases the underlying sink. It blocks until any in-flight Write
// has finished, so after Detach returns the sink is never touched again.
func (d *Detachable) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detached = true
}
