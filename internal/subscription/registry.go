// Package subscription keeps the set of symbols the caller wants to stream,
// independent of the connection state, and replays it on every reconnect.
package subscription

import (
	"sort"
	"strings"
	"sync"

	"github.com/alejoacosta74/trading-stream/pkg/protocol"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=mocks/mock_sender.go -package=mocks github.com/alejoacosta74/trading-stream/internal/subscription Sender

// Sender transmits commands to the server.
type Sender interface {
	Send(cmd protocol.Command) error
}

// Topic is a normalized symbol. Two topics are equal when their normalized
// values are equal.
type Topic string

// Normalize trims and upper-cases a symbol. Normalize is idempotent.
func Normalize(symbol string) Topic {
	return Topic(strings.ToUpper(strings.TrimSpace(symbol)))
}

// Registry is the source of truth for subscriptions. The wire commands are
// only its projection: the set survives disconnects and is cleared only by
// Unsubscribe.
type Registry struct {
	sender Sender
	logger *logrus.Entry

	mu     sync.Mutex
	topics map[Topic]struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger replaces the default component logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(r *Registry) {
		r.logger = entry
	}
}

// NewRegistry creates an empty registry sending through sender.
func NewRegistry(sender Sender, opts ...Option) *Registry {
	r := &Registry{
		sender: sender,
		topics: make(map[Topic]struct{}),
		logger: logrus.WithField("component", "subscription_registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe adds symbols to the set and sends a subscribe command for them,
// even when they were already subscribed so the server can treat it as a
// refresh. A non-nil error means the command was not transmitted; the
// symbols stay recorded and are replayed on the next open.
func (r *Registry) Subscribe(symbols ...string) error {
	topics := normalizeAll(symbols)
	if len(topics) == 0 {
		return nil
	}

	r.mu.Lock()
	for _, topic := range topics {
		r.topics[topic] = struct{}{}
	}
	r.mu.Unlock()

	r.logger.Infof("Subscribed to: %v", topics)
	return r.sender.Send(protocol.SubscribeCommand(toStrings(topics)...))
}

// Unsubscribe removes symbols from the set and sends an unsubscribe command.
// Symbols that were never subscribed leave the set untouched but are still
// sent.
func (r *Registry) Unsubscribe(symbols ...string) error {
	topics := normalizeAll(symbols)
	if len(topics) == 0 {
		return nil
	}

	r.mu.Lock()
	for _, topic := range topics {
		delete(r.topics, topic)
	}
	r.mu.Unlock()

	r.logger.Infof("Unsubscribed from: %v", topics)
	return r.sender.Send(protocol.UnsubscribeCommand(toStrings(topics)...))
}

// Replay sends a single subscribe command carrying the whole set. It is
// called on every successful open; an empty set sends nothing.
func (r *Registry) Replay() error {
	topics := r.Topics()
	if len(topics) == 0 {
		return nil
	}

	r.logger.Debugf("Re-subscribing to %d symbols", len(topics))
	return r.sender.Send(protocol.SubscribeCommand(toStrings(topics)...))
}

// Topics returns the current set, sorted.
func (r *Registry) Topics() []Topic {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := make([]Topic, 0, len(r.topics))
	for topic := range r.topics {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

// Contains reports whether symbol, once normalized, is subscribed.
func (r *Registry) Contains(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.topics[Normalize(symbol)]
	return ok
}

// Len returns the size of the set.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.topics)
}

// normalizeAll keeps call order and drops blank symbols.
func normalizeAll(symbols []string) []Topic {
	topics := make([]Topic, 0, len(symbols))
	for _, s := range symbols {
		if topic := Normalize(s); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}

func toStrings(topics []Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = string(t)
	}
	return out
}
