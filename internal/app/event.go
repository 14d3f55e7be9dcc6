package app

import (
	"context"
	"sync"
)

// Event is a resettable signal shared by the executor (which sets it after
// a successful entry) and the position watchers (which sleep on it while
// nothing is open). Every Set bumps a generation counter so a watcher can
// clear the event without losing a Set that raced with its position check.
type Event struct {
	mu  sync.Mutex
	set bool
	gen uint64
	ch  chan struct{} // closed while set
}

// NewEvent returns a cleared event.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// Set marks the event and releases every waiter.
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if !e.set {
		e.set = true
		close(e.ch)
	}
}

// Clear resets the event unconditionally.
func (e *Event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

// Generation returns the number of Set calls so far.
func (e *Event) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen
}

// ClearIf resets the event only if no Set happened since gen was read.
// It reports whether the event was cleared.
func (e *Event) ClearIf(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		return false
	}
	e.clearLocked()
	return true
}

// IsSet reports the current state.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait blocks until the event is set or ctx is done.
func (e *Event) Wait(ctx context.Context) error {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Event) clearLocked() {
	if e.set {
		e.set = false
		e.ch = make(chan struct{})
	}
}
