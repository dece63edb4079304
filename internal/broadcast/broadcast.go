// Package broadcast carries change notifications between beatclock
// instances that share storage.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names what changed.
type Kind string

const (
	KindReminders Kind = "reminders"
	KindSettings  Kind = "settings"
)

// Event is a change notification. Origin identifies the publishing
// instance so it can ignore its own events.
type Event struct {
	Kind   Kind      `json:"kind"`
	Origin string    `json:"origin"`
	ID     int64     `json:"id,omitempty"`
	At     time.Time `json:"at"`
}

// Handler receives events. It must not block for long.
type Handler func(Event)

// Bus publishes events to every subscriber, local or remote.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(h Handler) (cancel func())
	Close() error
}

// NewOrigin returns a random instance identifier.
func NewOrigin() string {
	return uuid.NewString()
}

// fanout is the handler registry shared by the bus implementations.
type fanout struct {
	mu       sync.Mutex
	handlers map[int]Handler
	next     int
}

func (f *fanout) subscribe(h Handler) func() {
	f.mu.Lock()
	if f.handlers == nil {
		f.handlers = make(map[int]Handler)
	}
	id := f.next
	f.next++
	f.handlers[id] = h
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

func (f *fanout) deliver(ev Event) {
	f.mu.Lock()
	hs := make([]Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

// Local is an in-process Bus. Publish delivers synchronously.
type Local struct {
	fanout
}

// NewLocal returns an empty in-process bus.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Publish(_ context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	l.deliver(ev)
	return nil
}

func (l *Local) Subscribe(h Handler) func() { return l.subscribe(h) }

func (l *Local) Close() error { return nil }
