package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/alejoacosta74/trading-stream/internal/events"
	"github.com/alejoacosta74/trading-stream/internal/kafka"
)

var (
	ErrQueueFull = errors.New("kafka forward queue full")
	ErrStopped   = errors.New("kafka forwarder stopped")
)

// ForwardHandler forwards event payloads to Kafka. Handle only enqueues, so
// a slow cluster never stalls the read loop; workers drain the queue into
// the producer pool.
type ForwardHandler struct {
	*BaseHandler

	queue   chan kafka.Message
	workers int

	mu      sync.RWMutex // Guards closed and the queue close
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewForwardHandler creates a forwarder with a queue of buffer messages
// drained by workers goroutines.
func NewForwardHandler(base *BaseHandler, buffer, workers int) *ForwardHandler {
	if buffer <= 0 {
		buffer = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &ForwardHandler{
		BaseHandler: base,
		queue:       make(chan kafka.Message, buffer),
		workers:     workers,
	}
}

// Start launches the workers. Calling it more than once is a no-op.
func (h *ForwardHandler) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started || h.closed {
		return
	}
	h.started = true

	ctx, h.cancel = context.WithCancel(ctx)
	for i := 0; i < h.workers; i++ {
		h.wg.Add(1)
		worker := kafka.NewWorker(i, h.producerPool, h.queue, func(msg kafka.Message, err error) {
			h.logger.WithError(err).WithField("topic", msg.Topic).Warn("Dropped event after send failure")
		})
		go worker.Run(ctx, &h.wg)
	}
	h.logger.WithField("workers", h.workers).Info("Kafka forwarder started")
}

// Handle enqueues the event for delivery.
func (h *ForwardHandler) Handle(event events.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrStopped
	}

	msg := kafka.Message{Topic: h.Topic(event.Name), Payload: event.Data}
	select {
	case h.queue <- msg:
		h.logger.Tracef("Queued event for topic %s", msg.Topic)
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (h *ForwardHandler) Stop() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.queue)
	started := h.started
	h.mu.Unlock()

	if started {
		h.wg.Wait()
		h.cancel()
	}
	h.logger.Info("Kafka forwarder stopped")
}
