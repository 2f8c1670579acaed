package testutil

import (
	"context"
	"sync"

	"github.com/roach88/badgify/internal/badge"
)

// Event is one award notification seen by a Recorder.
type Event struct {
	Kind  string // "created" or "revoked"
	Award badge.Award
}

// Recorder is an award listener that remembers every notification.
//
// It satisfies engine.Listener. Fail, when set, is returned from every
// call after the event is recorded.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Fail   error
}

// AwardCreated records a created event.
func (r *Recorder) AwardCreated(_ context.Context, a badge.Award) error {
	return r.record("created", a)
}

// AwardRevoked records a revoked event.
func (r *Recorder) AwardRevoked(_ context.Context, a badge.Award) error {
	return r.record("revoked", a)
}

func (r *Recorder) record(kind string, a badge.Award) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: kind, Award: a})
	return r.Fail
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
