package events

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// ErrBusClosed is returned when publishing to or subscribing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrNilHandler is returned when subscribing a nil handler.
var ErrNilHandler = errors.New("handler cannot be nil")

// Handler reacts to events. Returned errors are logged by the bus and never
// stop delivery to other handlers.
type Handler interface {
	HandleEvent(e Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(e Event) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(e Event) error {
	return f(e)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events to its handlers one at a time, in publish order.
//
// Publish queues the event; the first publisher finding the bus idle becomes
// the dispatcher and drains the queue. Handlers therefore never run
// concurrently, and a handler may publish without deadlocking: its event is
// delivered after the current one completes.
type Bus struct {
	logger *slog.Logger

	mu          sync.Mutex
	subs        []subscription
	nextID      uint64
	queue       []Event
	dispatching bool
	closed      bool
}

// NewBus creates an event bus. A nil logger uses slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers h and returns a function removing it.
func (b *Bus) Subscribe(h Handler) (func(), error) {
	if h == nil {
		return nil, ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: h})

	return func() { b.unsubscribe(id) }, nil
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool {
		return s.id == id
	})
}

// Publish queues e for delivery. When no other call is dispatching, Publish
// delivers every queued event before returning.
func (b *Bus) Publish(e Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.queue = append(b.queue, e)
	if b.dispatching {
		b.mu.Unlock()
		return nil
	}
	b.dispatching = true
	b.mu.Unlock()

	b.drain()
	return nil
}

// drain delivers queued events until the queue is empty. A panicking handler
// leaves the bus idle with its queue discarded before the panic propagates.
func (b *Bus) drain() {
	idle := false
	defer func() {
		if idle {
			return
		}
		b.mu.Lock()
		b.dispatching = false
		b.queue = nil
		b.mu.Unlock()
	}()

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.dispatching = false
			idle = true
			b.mu.Unlock()
			return
		}
		next := b.queue[0]
		b.queue = b.queue[1:]
		subs := slices.Clone(b.subs)
		b.mu.Unlock()

		b.deliver(next, subs)
	}
}

func (b *Bus) deliver(e Event, subs []subscription) {
	for _, s := range subs {
		if err := s.handler.HandleEvent(e); err != nil {
			b.logger.Warn("event handler failed",
				slog.String("event", e.Name()),
				slog.String("error", err.Error()))
		}
	}
}

// Close stops accepting events and drops every handler. Events still queued
// are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.subs = nil
}
