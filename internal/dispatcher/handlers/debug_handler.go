package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/alejoacosta74/trading-stream/internal/events"
	"github.com/sirupsen/logrus"
)

// DebugHandler prints received events to the log at trace level
type DebugHandler struct {
	logger *logrus.Entry
}

// NewDebugHandler creates a new debug handler
func NewDebugHandler() *DebugHandler {
	return &DebugHandler{
		logger: logrus.WithField("component", "debug_handler"),
	}
}

// Handle prints the event payload in a pretty format
func (h *DebugHandler) Handle(event events.Event) error {
	if len(event.Data) == 0 {
		h.logger.WithField("event", event.Name).Trace("Received event without payload")
		return nil
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, event.Data, "", "    "); err != nil {
		return fmt.Errorf("error formatting JSON: %w", err)
	}

	h.logger.WithField("event", event.Name).Trace("Received message:\n", prettyJSON.String())
	return nil
}
