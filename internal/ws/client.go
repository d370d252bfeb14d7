package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alejoacosta74/trading-stream/internal/connection"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Dialer opens WebSocket connections with gorilla/websocket. It implements
// connection.Dialer.
type Dialer struct {
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	readLimit        int64
	header           http.Header
	logger           *logrus.Entry
}

// Option defines a function type for configuring the Dialer.
// This follows the functional options pattern for flexible configuration.
type Option func(*Dialer)

// WithHandshakeTimeout bounds the opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(dl *Dialer) {
		dl.handshakeTimeout = d
	}
}

// WithWriteTimeout sets the deadline applied to every outbound frame.
// Zero disables the deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(dl *Dialer) {
		dl.writeTimeout = d
	}
}

// WithReadLimit caps the size of inbound frames.
func WithReadLimit(limit int64) Option {
	return func(dl *Dialer) {
		dl.readLimit = limit
	}
}

// WithHeader adds request headers to the opening handshake.
func WithHeader(header http.Header) Option {
	return func(dl *Dialer) {
		dl.header = header
	}
}

// WithLogger replaces the default component logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(dl *Dialer) {
		dl.logger = entry
	}
}

// NewDialer creates a Dialer with a 10s handshake timeout and a 5s write
// timeout unless overridden.
func NewDialer(opts ...Option) *Dialer {
	d := &Dialer{
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     5 * time.Second,
		logger:           logrus.WithField("component", "ws_client"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial establishes the WebSocket connection. Cancelling ctx aborts the
// handshake.
func (d *Dialer) Dial(ctx context.Context, url string) (connection.Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake with %s failed (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	if d.readLimit > 0 {
		conn.SetReadLimit(d.readLimit)
	}
	d.logger.Debugf("Connected to WebSocket %s", url)

	return &Conn{
		conn:         conn,
		writeTimeout: d.writeTimeout,
		logger:       d.logger,
	}, nil
}
