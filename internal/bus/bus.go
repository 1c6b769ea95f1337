package bus

import (
	"sync"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Bus.
type Logger interface {
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Handler is a subscriber callback for one event type.
//
// Handlers run synchronously on the goroutine that calls Emit, in
// registration order. A panicking handler is logged and isolated; the
// remaining handlers for the event still run.
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed with Off.
type Subscription struct {
	eventType Type
	id        string
}

// Bus is a synchronous in-process publish/subscribe dispatcher.
//
// It decouples producers (poll tasks writing to the store, the connection
// monitor) from consumers (WebSocket hub, announcer) without either side
// holding a reference to the other.
//
// There is no persistence or replay: a handler registered after an Emit
// never sees that past event.
//
// Thread Safety: all methods are safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]entry
	logger   Logger
}

// entry pairs a handler with its subscription id.
type entry struct {
	id string
	fn Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[Type][]entry),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger used for handler panic reports.
func (b *Bus) SetLogger(logger Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// On registers a handler for the given event type and returns its
// subscription handle.
func (b *Bus) On(t Type, fn Handler) Subscription {
	sub := Subscription{eventType: t, id: uuid.NewString()}

	b.mu.Lock()
	b.handlers[t] = append(b.handlers[t], entry{id: sub.id, fn: fn})
	b.mu.Unlock()

	return sub
}

// Off removes a previously registered handler. Removing a subscription
// twice is a no-op.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[sub.eventType]
	for i, e := range entries {
		if e.id == sub.id {
			b.handlers[sub.eventType] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Emit dispatches the event to all handlers registered for its type,
// synchronously and in registration order.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	entries := make([]entry, len(b.handlers[ev.EventType()]))
	copy(entries, b.handlers[ev.EventType()])
	b.mu.RUnlock()

	for _, e := range entries {
		b.dispatch(e, ev)
	}
}

// dispatch invokes one handler inside its own failure boundary.
func (b *Bus) dispatch(e entry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event_type", string(ev.EventType()),
				"panic", r,
			)
		}
	}()
	e.fn(ev)
}
