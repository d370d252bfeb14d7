package kafka

//go:generate mockgen -destination=mocks/mock_producer_pool.go -package=mocks github.com/alejoacosta74/trading-stream/internal/kafka ProducerPool

import (
	"context"
	"time"
)

type MessageSender interface {
	Send(ctx context.Context, topic string, msg []byte) error
}

type PoolController interface {
	Start() error
	Stop() error
}

// ProducerPool defines the interface for a pool of Kafka producers.
// It provides methods to start the pool, send messages, and gracefully stop.
type ProducerPool interface {
	MessageSender
	PoolController
}

// KafkaProducer defines the interface for a single producer
type KafkaProducer interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// Recorder receives producer pool measurements. The metrics recorder
// satisfies it.
type Recorder interface {
	RecordKafkaMessageSent(topic string, duration time.Duration)
	RecordKafkaError(reason string)
}

type noopRecorder struct{}

func (noopRecorder) RecordKafkaMessageSent(string, time.Duration) {}
func (noopRecorder) RecordKafkaError(string)                      {}
