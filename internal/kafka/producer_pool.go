package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrPoolNotStarted = errors.New("producer pool not started")
	ErrPoolStopping   = errors.New("producer pool is shutting down")
)

// Message represents a message to be sent to Kafka
type Message struct {
	Topic   string
	Payload []byte
	Headers map[string]string
}

// ProducerConfig holds configuration for the producer pool
type ProducerConfig struct {
	BrokerList []string          // List of Kafka brokers (i.e. ["localhost:9092"])
	PoolSize   int               // Number of producers in the pool
	Headers    map[string]string // Headers attached to every message
	Metrics    Recorder

	// NewSyncProducer overrides sarama.NewSyncProducer.
	NewSyncProducer SyncProducerFactory

	AcquireTimeout time.Duration // Wait for a free producer (default 3s)
	SendTimeout    time.Duration // Per message send timeout (default 5s)
}

// producerPool manages a pool of KafkaProducers
type producerPool struct {
	producers chan KafkaProducer // Channel to hold producers (KafkaProducer interface)
	config    ProducerConfig
	logger    *logrus.Entry
	ctx       context.Context    // Controls pool lifecycle
	cancel    context.CancelFunc // For shutting down the pool
	started   bool               // Track if pool has been started
	mu        sync.RWMutex       // Protects started flag
	metrics   Recorder
}

// NewProducerPool creates a new pool of Kafka producers
func NewProducerPool(config ProducerConfig) (ProducerPool, error) {
	if config.PoolSize <= 0 {
		return nil, fmt.Errorf("pool size must be greater than 0")
	}
	if len(config.BrokerList) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.AcquireTimeout <= 0 {
		config.AcquireTimeout = 3 * time.Second
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = 5 * time.Second
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = noopRecorder{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &producerPool{
		producers: make(chan KafkaProducer, config.PoolSize),
		config:    config,
		logger:    logrus.WithField("component", "kafka_producer_pool"),
		ctx:       ctx,
		cancel:    cancel,
		metrics:   metrics,
	}

	return pool, nil
}

// Start initializes the producer pool and creates all producers
func (p *producerPool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("producer pool already started")
	}

	for i := 0; i < p.config.PoolSize; i++ {
		producer, err := newSaramaProducer(p.config)
		if err != nil {
			// Clean up any producers already created
			p.drain()
			return fmt.Errorf("failed to create producer %d: %w", i, err)
		}
		p.producers <- producer
	}

	p.started = true
	p.logger.WithField("size", p.config.PoolSize).Info("Producer pool started successfully")
	return nil
}

// drain closes every producer currently parked in the pool.
func (p *producerPool) drain() {
	for {
		select {
		case producer := <-p.producers:
			if err := producer.Close(); err != nil {
				p.logger.WithError(err).Error("Failed to close producer")
			}
		default:
			return
		}
	}
}

// Stop gracefully shuts down the producer pool
func (p *producerPool) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}
	p.started = false
	p.mu.Unlock()

	p.logger.Info("Stopping producer pool...")

	// Signal shutdown; in-flight senders close their producer on return.
	p.cancel()

	shutdownTimeout := time.After(10 * time.Second)
	done := make(chan struct{})

	go func() {
		var closeErr error
		for i := 0; i < cap(p.producers); i++ {
			select {
			case producer := <-p.producers:
				if err := producer.Close(); err != nil {
					p.logger.WithError(err).Error("Failed to close producer")
					closeErr = err
				}
			case <-time.After(1 * time.Second):
				p.logger.Warn("Timeout waiting for producer to be available for closing")
			}
		}

		if closeErr != nil {
			p.logger.WithError(closeErr).Error("Errors occurred while closing producers")
		}

		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Producer pool stopped successfully")
		return nil
	case <-shutdownTimeout:
		return fmt.Errorf("timeout while stopping producer pool")
	}
}

// Send sends a message to Kafka using an available producer from the pool.
//
// The method:
// 1. Acquires a producer from the pool channel
// 2. Ensures the producer is returned to the pool using defer
// 3. Sets a timeout context for the send operation
// 4. Sends the message using the producer
func (p *producerPool) Send(ctx context.Context, topic string, rawMsg []byte) error {
	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if !started {
		return ErrPoolNotStarted
	}

	start := time.Now()

	msg := Message{
		Topic:   topic,
		Payload: rawMsg,
		Headers: p.config.Headers,
	}

	select {
	case producer := <-p.producers:
		defer func() {
			select {
			case <-p.ctx.Done():
				// Pool is shutting down
				producer.Close()
			default:
				p.producers <- producer
			}
		}()

		sendCtx, cancel := context.WithTimeout(ctx, p.config.SendTimeout)
		defer cancel()

		if err := producer.Send(sendCtx, msg); err != nil {
			p.metrics.RecordKafkaError("send_failed")
			return fmt.Errorf("failed to send message: %w", err)
		}

		p.metrics.RecordKafkaMessageSent(msg.Topic, time.Since(start))
		return nil

	case <-time.After(p.config.AcquireTimeout):
		p.metrics.RecordKafkaError("pool_exhausted")
		return fmt.Errorf("timeout waiting for available producer")

	case <-ctx.Done():
		p.metrics.RecordKafkaError("context_cancelled")
		return fmt.Errorf("operation cancelled by caller: %w", ctx.Err())

	case <-p.ctx.Done():
		p.metrics.RecordKafkaError("producer_pool_shutdown")
		return ErrPoolStopping
	}
}
