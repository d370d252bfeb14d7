package events

import (
	"fmt"
	"sync"

	"github.com/alejoacosta74/trading-stream/internal/common"
	"github.com/sirupsen/logrus"
)

type listener struct {
	id      ListenerID
	handler Handler
}

// FailureHook is told about every listener that returned an error or panicked.
type FailureHook func(name common.EventName, err error)

// EventBus implements the Bus interface with synchronous, ordered dispatch.
// A failing listener is isolated: its error or panic is logged and the
// remaining listeners still run.
type EventBus struct {
	// listeners maps event names to handlers in registration order
	listeners map[common.EventName][]listener

	// known restricts the accepted event names. Nil accepts any name.
	known map[common.EventName]struct{}

	// mu protects listeners and nextID
	mu     sync.RWMutex
	nextID ListenerID

	onFailure FailureHook
	logger    *logrus.Entry
}

// Option configures an EventBus.
type Option func(*EventBus)

// WithKnownEvents restricts the bus to the given event names.
func WithKnownEvents(names ...common.EventName) Option {
	return func(b *EventBus) {
		b.known = make(map[common.EventName]struct{}, len(names))
		for _, name := range names {
			b.known[name] = struct{}{}
		}
	}
}

// WithFailureHook sets a hook called for each failed listener invocation.
func WithFailureHook(hook FailureHook) Option {
	return func(b *EventBus) {
		b.onFailure = hook
	}
}

// WithLogger replaces the default component logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(b *EventBus) {
		b.logger = entry
	}
}

// NewEventBus creates a new EventBus instance.
func NewEventBus(opts ...Option) *EventBus {
	b := &EventBus{
		listeners: make(map[common.EventName][]listener),
		logger:    logrus.WithField("component", "event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On appends handler to the listeners of name. Registering the same
// function twice yields two listeners. When the bus has a known event set,
// unknown names are rejected with a warning and the zero ListenerID.
func (b *EventBus) On(name common.EventName, handler Handler) ListenerID {
	if handler == nil {
		return 0
	}
	if !b.isKnown(name) {
		b.logger.Warnf("Unknown event type: %s", name)
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[name] = append(b.listeners[name], listener{id: b.nextID, handler: handler})
	return b.nextID
}

// Off removes the listener registered under id. It reports whether a
// listener was removed.
func (b *EventBus) Off(name common.EventName, id ListenerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.listeners[name]
	for i, l := range current {
		if l.id != id {
			continue
		}
		// Build a fresh slice so snapshots held by running triggers stay intact.
		next := make([]listener, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		if len(next) == 0 {
			delete(b.listeners, name)
		} else {
			b.listeners[name] = next
		}
		return true
	}
	return false
}

// Trigger calls every listener of name with event, in registration order,
// on the calling goroutine. Listeners added or removed while a trigger is
// running take effect from the next trigger.
func (b *EventBus) Trigger(name common.EventName, event Event) {
	if !b.isKnown(name) {
		b.logger.Warnf("Trigger for unknown event type: %s", name)
		return
	}

	b.mu.RLock()
	snapshot := b.listeners[name]
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	event.Name = name
	for _, l := range snapshot {
		if err := b.invoke(l, event); err != nil {
			b.logger.WithField("event", name).Errorf("Error in event handler: %v", err)
			if b.onFailure != nil {
				b.onFailure(name, err)
			}
		}
	}
}

// invoke runs a single listener, converting a panic into an error.
func (b *EventBus) invoke(l listener, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %d panicked: %v", l.id, r)
		}
	}()
	return l.handler(event)
}

// Stream returns a channel receiving the events of name, for consumers that
// prefer their own goroutine. Sends never block the bus: when the buffer is
// full the event is dropped for this stream. The returned function
// unregisters the stream and closes the channel.
func (b *EventBus) Stream(name common.EventName, buffer int) (<-chan Event, func()) {
	return b.StreamEvents(buffer, name)
}

// StreamEvents is Stream for several event names sharing one channel.
// Events keep the order in which they were triggered across all names.
func (b *EventBus) StreamEvents(buffer int, names ...common.EventName) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	var (
		closeMu sync.Mutex
		closed  bool
	)

	ids := make([]ListenerID, len(names))
	for i, name := range names {
		name := name
		ids[i] = b.On(name, func(event Event) error {
			closeMu.Lock()
			defer closeMu.Unlock()
			if closed {
				return nil
			}
			select {
			case ch <- event:
			default:
				b.logger.Tracef("Stream buffer full, dropping %s event", name)
			}
			return nil
		})
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			for i, name := range names {
				b.Off(name, ids[i])
			}
			closeMu.Lock()
			closed = true
			close(ch)
			closeMu.Unlock()
		})
	}
	return ch, cancel
}

// ListenerCount returns the number of listeners for an event.
// This method is useful for testing and monitoring.
func (b *EventBus) ListenerCount(name common.EventName) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.listeners[name])
}

func (b *EventBus) isKnown(name common.EventName) bool {
	if b.known == nil {
		return true
	}
	_, ok := b.known[name]
	return ok
}
