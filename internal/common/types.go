package common

import "github.com/alejoacosta74/trading-stream/pkg/protocol"

// EventName identifies a stream of events on the event bus
type EventName string

// Lifecycle events emitted by the connection manager
const (
	EventConnected    EventName = "connected"    // A connection was opened
	EventDisconnected EventName = "disconnected" // The connection was closed or lost
	EventError        EventName = "error"        // Transport level error, always followed by a close
)

// Data events emitted by the dispatcher, named after the inbound frame type
const (
	EventPriceUpdate       = EventName(protocol.TypePriceUpdate)
	EventTradeUpdate       = EventName(protocol.TypeTradeUpdate)
	EventAlertTriggered    = EventName(protocol.TypeAlertTriggered)
	EventPerformanceUpdate = EventName(protocol.TypePerformanceUpdate)
	EventHeartbeat         = EventName(protocol.TypeHeartbeat)
)

// KnownEvents lists every event the stream client can emit.
func KnownEvents() []EventName {
	return []EventName{
		EventConnected,
		EventDisconnected,
		EventPriceUpdate,
		EventTradeUpdate,
		EventAlertTriggered,
		EventPerformanceUpdate,
		EventHeartbeat,
		EventError,
	}
}

// DataEvents lists the events that carry a server payload.
func DataEvents() []EventName {
	return []EventName{
		EventPriceUpdate,
		EventTradeUpdate,
		EventAlertTriggered,
		EventPerformanceUpdate,
		EventHeartbeat,
	}
}
