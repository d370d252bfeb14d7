package events

import "github.com/alejoacosta74/trading-stream/internal/common"

// Bus defines the interface for event bus operations
type Bus interface {
	// On registers a handler for the named event and returns its identity
	On(name common.EventName, handler Handler) ListenerID
	// Off removes the listener registered under id
	Off(name common.EventName, id ListenerID) bool
	// Trigger invokes every listener of the named event, in registration order
	Trigger(name common.EventName, event Event)
}
