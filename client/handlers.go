package client

import "github.com/alejoacosta74/trading-stream/internal/events"

// On registers handler for name and returns its id. Unknown event names are
// rejected with a warning and the zero id.
func (c *Client) On(name EventName, handler Handler) ListenerID {
	return c.bus.On(name, handler)
}

// Off removes the listener registered under id.
func (c *Client) Off(name EventName, id ListenerID) bool {
	return c.bus.Off(name, id)
}

// Stream delivers events of name on a channel with the given buffer. Events
// arriving while the buffer is full are dropped. Call cancel to stop.
func (c *Client) Stream(name EventName, buffer int) (<-chan Event, func()) {
	return c.bus.Stream(name, buffer)
}

// StreamEvents delivers the events of all names on one channel, in trigger
// order.
func (c *Client) StreamEvents(buffer int, names ...EventName) (<-chan Event, func()) {
	return c.bus.StreamEvents(buffer, names...)
}

// Bus exposes the event bus for components that attach several listeners
// at once, such as the metrics recorder and the Kafka bridge.
func (c *Client) Bus() events.Bus {
	return c.bus
}
