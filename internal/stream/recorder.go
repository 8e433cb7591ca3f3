package stream

import (
	"sync"
)

// Recorder is a Sink that captures events in order. Used by tests and by the
// analysis service to keep the event history of a run inspectable after the
// fact.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Write appends the event to the recording.
func (r *Recorder) Write(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Terminal returns the terminal event of the recording, if one was emitted.
func (r *Recorder) Terminal() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.Terminal() {
			return event, true
		}
	}
	return Event{}, false
}
