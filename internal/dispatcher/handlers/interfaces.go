package handlers

import (
	"github.com/alejoacosta74/trading-stream/internal/common"
	"github.com/alejoacosta74/trading-stream/internal/events"
)

// MessageHandler defines the interface that all event handlers must implement.
// This allows for a pluggable architecture where new handlers can be easily added.
type MessageHandler interface {
	Handle(event events.Event) error
}

// Register attaches h to every named event on bus and returns a function
// detaching it again.
func Register(bus events.Bus, h MessageHandler, names ...common.EventName) func() {
	type registration struct {
		name common.EventName
		id   events.ListenerID
	}

	var regs []registration
	for _, name := range names {
		if id := bus.On(name, h.Handle); id != 0 {
			regs = append(regs, registration{name: name, id: id})
		}
	}

	return func() {
		for _, reg := range regs {
			bus.Off(reg.name, reg.id)
		}
	}
}
