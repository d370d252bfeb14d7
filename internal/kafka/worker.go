package kafka

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Worker drains a message channel into a MessageSender. Several workers may
// share one channel; each send blocks only its own worker.
type Worker struct {
	// id is the worker's unique identifier
	id int
	// sender is usually the producer pool
	sender MessageSender
	// msgChan receives messages to be sent to Kafka
	msgChan <-chan Message
	// onError is called for every failed send
	onError func(Message, error)
	// logger for worker-specific logging
	logger *logrus.Entry
}

// NewWorker creates a worker reading from msgChan. onError may be nil.
func NewWorker(id int, sender MessageSender, msgChan <-chan Message, onError func(Message, error)) *Worker {
	return &Worker{
		id:      id,
		sender:  sender,
		msgChan: msgChan,
		onError: onError,
		logger:  logrus.WithFields(logrus.Fields{"component": "kafka_producer_worker", "worker_id": id}),
	}
}

// Run processes messages until the channel is closed or ctx is cancelled.
// wg, when non-nil, is marked done on return.
func (w *Worker) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Context cancelled, stopping worker")
			return
		case msg, ok := <-w.msgChan:
			if !ok {
				w.logger.Debug("Message channel closed, stopping worker")
				return
			}
			w.logger.Tracef("Sending message to topic %s", msg.Topic)
			if err := w.sender.Send(ctx, msg.Topic, msg.Payload); err != nil {
				w.logger.WithError(err).Errorf("Failed to send message to topic %s", msg.Topic)
				if w.onError != nil {
					w.onError(msg, err)
				}
			}
		}
	}
}
