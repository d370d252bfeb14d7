package kafka

import (
	"context"
	"fmt"
	"sort"

	"github.com/IBM/sarama"
)

// SyncProducerFactory builds the underlying sarama producer. Tests swap it
// for one returning a sarama/mocks producer.
type SyncProducerFactory func(brokers []string, config *sarama.Config) (sarama.SyncProducer, error)

// saramaProducer implements the KafkaProducer interface using Sarama's SyncProducer.
// It provides a thread-safe way to send messages to Kafka topics with the following features:
// - Synchronous message production with acknowledgment from brokers
// - Support for message headers
// - Context-based cancellation and timeouts
type saramaProducer struct {
	producer sarama.SyncProducer
}

// newSaramaConfig returns the producer configuration shared by every
// producer in the pool:
// - RequiredAcks=WaitForAll ensures message is written to all replicas
// - Automatic retries (max 3 attempts) for transient failures
func newSaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	return saramaConfig
}

// newSaramaProducer creates a new Kafka producer. Each producer maintains
// its own connection to the Kafka cluster.
func newSaramaProducer(config ProducerConfig) (KafkaProducer, error) {
	factory := config.NewSyncProducer
	if factory == nil {
		factory = sarama.NewSyncProducer
	}

	producer, err := factory(config.BrokerList, newSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}

	return &saramaProducer{producer: producer}, nil
}

// Send sends a message to the Kafka topic using the Sarama producer.
func (p *saramaProducer) Send(ctx context.Context, msg Message) error {
	saramaMsg := &sarama.ProducerMessage{
		Topic: msg.Topic,
		Value: sarama.ByteEncoder(msg.Payload),
	}

	if len(msg.Headers) > 0 {
		keys := make([]string, 0, len(msg.Headers))
		for k := range msg.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		headers := make([]sarama.RecordHeader, 0, len(keys))
		for _, k := range keys {
			headers = append(headers, sarama.RecordHeader{
				Key:   []byte(k),
				Value: []byte(msg.Headers[k]),
			})
		}
		saramaMsg.Headers = headers
	}

	// Send with context awareness
	done := make(chan error, 1)
	go func() {
		_, _, err := p.producer.SendMessage(saramaMsg)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the Sarama producer, releasing all associated resources.
func (p *saramaProducer) Close() error {
	return p.producer.Close()
}
