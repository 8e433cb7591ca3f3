package stream

import (
	"errors"
	"fmt"
	"sync"
)

// Sink receives emitted events. Implementations include the SSE writer and
// the test recorder. A sink returning an error does not stop the pipeline;
// delivery of intermediate events is best-effort by design.
type Sink interface {
	Write(event Event) error
}

// Emitter sequences events for one analysis run. It enforces the protocol
// invariants at the source: steps never decrease, phases never regress, and
// exactly one terminal event is ever emitted. Violations are returned as
// errors so a misbehaving pipeline fails loudly in tests instead of emitting
// a malformed stream.
type Emitter struct {
	mu        sync.Mutex
	sinks     []Sink
	step      int
	lastPhase Phase
	closed    bool
}

// Emitter invariant violations.
var (
	ErrStreamClosed   = errors.New("stream already closed by a terminal event")
	ErrPhaseRegressed = errors.New("phase order regression")
)

// NewEmitter creates an Emitter fanning out to the given sinks.
func NewEmitter(sinks ...Sink) *Emitter {
	return &Emitter{sinks: sinks}
}

// Emit sends a phase progress event. The step counter is assigned by the
// emitter; callers only supply phase, message, and progress.
func (e *Emitter) Emit(event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrStreamClosed
	}
	if event.Phase != "" {
		if event.Phase.Index() < 0 {
			return fmt.Errorf("unknown phase %q", event.Phase)
		}
		if e.lastPhase != "" && event.Phase.Index() < e.lastPhase.Index() {
			return fmt.Errorf("%w: %s after %s", ErrPhaseRegressed, event.Phase, e.lastPhase)
		}
		e.lastPhase = event.Phase
	}
	if event.Terminal() {
		e.closed = true
	}

	e.step++
	event.Step = e.step
	e.fanOut(event)
	return nil
}

// Phase is a convenience for a simple phase progress event.
func (e *Emitter) Phase(phase Phase, message string, progress float64) error {
	return e.Emit(Event{Phase: phase, Message: message, Progress: progress})
}

// Done emits the success terminal event carrying the persisted report id.
func (e *Emitter) Done(reportID string) error {
	return e.Emit(Event{
		Phase:    PhaseCompletion,
		Message:  "분석이 완료되었습니다.",
		Progress: 1.0,
		Done:     true,
		ReportID: reportID,
	})
}

// Fail emits the failure terminal event. The message must be suitable for
// direct display; the phase tag tells the client which stage failed.
func (e *Emitter) Fail(phase Phase, message string) error {
	return e.Emit(Event{
		Phase:   phase,
		Message: message,
		Error:   message,
	})
}

// Closed reports whether a terminal event has been emitted.
func (e *Emitter) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// fanOut delivers to every sink. Sink errors are swallowed: a detached
// listener must not stop the pipeline, and the terminal outcome is persisted
// independently of delivery.
func (e *Emitter) fanOut(event Event) {
	for _, sink := range e.sinks {
		_ = sink.Write(event)
	}
}
