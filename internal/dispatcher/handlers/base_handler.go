package handlers

import (
	"github.com/alejoacosta74/trading-stream/internal/common"
	"github.com/alejoacosta74/trading-stream/internal/kafka"
	"github.com/sirupsen/logrus"
)

// BaseHandler provides common functionality for Kafka bound handlers
type BaseHandler struct {
	logger       *logrus.Entry
	producerPool kafka.MessageSender
	topicPrefix  string
}

// NewBaseHandler creates a new base handler. Events are published to
// "<topicPrefix>.<event>", or to "<event>" when the prefix is empty.
func NewBaseHandler(producerPool kafka.MessageSender, topicPrefix string) *BaseHandler {
	return &BaseHandler{
		logger:       logrus.WithField("component", "base_handler"),
		producerPool: producerPool,
		topicPrefix:  topicPrefix,
	}
}

// Topic returns the Kafka topic for an event.
func (b *BaseHandler) Topic(name common.EventName) string {
	if b.topicPrefix == "" {
		return string(name)
	}
	return b.topicPrefix + "." + string(name)
}
