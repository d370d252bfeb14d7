package events

import (
	"encoding/json"
	"errors"

	"github.com/alejoacosta74/trading-stream/internal/common"
)

// Event is what listeners receive.
type Event struct {
	Name common.EventName
	// Data is the inbound frame, verbatim. Empty for lifecycle events.
	Data json.RawMessage
	// Err is set on error events.
	Err error
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return errors.New("event has no payload")
	}
	return json.Unmarshal(e.Data, v)
}

// Handler processes one event. A returned error is logged by the bus and
// never stops other listeners.
type Handler func(Event) error

// ListenerID identifies a single registration. Zero is never a valid id.
type ListenerID uint64
