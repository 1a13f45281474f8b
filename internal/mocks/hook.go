// Package mocks holds test doubles shared by the package tests.
package mocks

import (
	"context"
	"sync"

	"github.com/casualjim/ruminate/events"
)

// Hook records every event it receives. It is safe for concurrent use.
type Hook struct {
	mu     sync.Mutex
	events []events.Event
}

func NewHook() *Hook {
	return &Hook{}
}

func (h *Hook) record(e events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *Hook) OnStep(_ context.Context, e events.Step)       { h.record(e) }
func (h *Hook) OnTurn(_ context.Context, e events.TurnAdded)  { h.record(e) }
func (h *Hook) OnFailure(_ context.Context, e events.Failure) { h.record(e) }
func (h *Hook) OnEnd(_ context.Context, e events.End)         { h.record(e) }

// Events returns a copy of the recorded events.
func (h *Hook) Events() []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]events.Event, len(h.events))
	copy(out, h.events)
	return out
}

// Len returns the number of recorded events.
func (h *Hook) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

// Failures returns the recorded failures.
func (h *Hook) Failures() []events.Failure {
	return Only[events.Failure](h)
}

// Ends returns the recorded end events.
func (h *Hook) Ends() []events.End {
	return Only[events.End](h)
}

// Only returns the recorded events of type T.
func Only[T events.Event](h *Hook) []T {
	var out []T
	for _, e := range h.Events() {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
