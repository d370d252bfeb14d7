package dispatcher

import (
	"encoding/json"

	"github.com/alejoacosta74/trading-stream/internal/common"
	"github.com/alejoacosta74/trading-stream/internal/events"
	"github.com/alejoacosta74/trading-stream/pkg/protocol"
	"github.com/sirupsen/logrus"
)

// Drop reasons reported to the Observer
const (
	DropDecode      = "decode"       // Frame is not valid JSON
	DropUnknownType = "unknown_type" // Missing or unrecognized "type"
)

// Observer is told about every dropped frame.
type Observer interface {
	FrameDropped(reason string)
}

// routes maps inbound message types to bus events. Types mapped to the
// empty name are recognized control frames that emit nothing.
var routes = map[protocol.MessageType]common.EventName{
	protocol.TypeConnected:         "",
	protocol.TypePong:              "",
	protocol.TypePriceUpdate:       common.EventPriceUpdate,
	protocol.TypeTradeUpdate:       common.EventTradeUpdate,
	protocol.TypeAlertTriggered:    common.EventAlertTriggered,
	protocol.TypePerformanceUpdate: common.EventPerformanceUpdate,
	protocol.TypeHeartbeat:         common.EventHeartbeat,
}

// Dispatcher decodes inbound frames and publishes them on the event bus.
// It never returns or propagates an error: bad frames are logged and dropped
// so one malformed or newer message cannot break the stream.
type Dispatcher struct {
	// Event bus receiving one event per data frame
	eventBus events.Bus

	// Logger instance for dispatcher-specific logging
	logger *logrus.Entry

	observer Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver registers an observer for dropped frames.
func WithObserver(observer Observer) Option {
	return func(d *Dispatcher) {
		d.observer = observer
	}
}

// WithLogger replaces the default component logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(d *Dispatcher) {
		d.logger = entry
	}
}

// NewDispatcher creates a dispatcher publishing on eventBus.
func NewDispatcher(eventBus events.Bus, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		eventBus: eventBus,
		logger:   logrus.WithField("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch processes a single frame by:
// 1. Parsing the envelope to determine its type
// 2. Dropping undecodable frames and unknown types
// 3. Swallowing control frames (connected, pong)
// 4. Triggering the matching event with the whole frame as payload
func (d *Dispatcher) Dispatch(frame []byte) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		d.logger.Errorf("Failed to parse WebSocket message: %v", err)
		d.dropped(DropDecode)
		return
	}

	// The discriminator key is matched exactly; "Type" or "TYPE" do not count.
	var envelope protocol.Envelope
	raw, present := fields["type"]
	if !present || json.Unmarshal(raw, &envelope.Type) != nil {
		d.logger.Warnf("Unknown message type: %s", raw)
		d.dropped(DropUnknownType)
		return
	}

	name, known := routes[envelope.Type]
	if !known {
		d.logger.Warnf("Unknown message type: %q", envelope.Type)
		d.dropped(DropUnknownType)
		return
	}

	switch envelope.Type {
	case protocol.TypeConnected:
		// The connected event belongs to the connection manager.
		d.logger.Info("Server confirmed connection")
		return
	case protocol.TypePong:
		d.logger.Debug("Received pong")
		return
	}

	// Copy so listeners may keep the payload after the transport reuses its buffer.
	data := make(json.RawMessage, len(frame))
	copy(data, frame)

	d.eventBus.Trigger(name, events.Event{Data: data})
}

func (d *Dispatcher) dropped(reason string) {
	if d.observer != nil {
		d.observer.FrameDropped(reason)
	}
}
