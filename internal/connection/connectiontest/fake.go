// Package connectiontest provides an in-memory transport for tests of
// components built on the connection manager.
package connectiontest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejoacosta74/trading-stream/internal/connection"
)

// ErrUseOfClosed is what reads and writes return after Close.
var ErrUseOfClosed = errors.New("use of closed connection")

// Conn is a fake connection. Frames queued with Deliver are returned by
// ReadMessage in order.
type Conn struct {
	frames chan []byte
	done   chan struct{}

	mu      sync.Mutex
	err     error
	closed  bool
	written [][]byte
}

// NewConn creates an open fake connection.
func NewConn() *Conn {
	return &Conn{
		frames: make(chan []byte, 64),
		done:   make(chan struct{}),
	}
}

// ReadMessage returns the next delivered frame, or the termination error
// once the connection is dropped or closed and no frame is pending.
func (c *Conn) ReadMessage() ([]byte, error) {
	select {
	case frame := <-c.frames:
		return frame, nil
	default:
	}

	select {
	case frame := <-c.frames:
		return frame, nil
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.err
	}
}

// WriteMessage records data.
func (c *Conn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

// Close terminates the connection from the client side.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.terminate(ErrUseOfClosed)
	return nil
}

// Deliver queues an inbound frame.
func (c *Conn) Deliver(frame string) {
	c.frames <- []byte(frame)
}

// Drop simulates a network failure surfacing as err on the next read.
func (c *Conn) Drop(err error) {
	c.terminate(err)
}

// PeerClose simulates a clean close initiated by the server.
func (c *Conn) PeerClose() {
	c.terminate(connection.ErrClosed)
}

// Closed reports whether the client closed the connection.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Written returns a copy of every frame written so far.
func (c *Conn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

func (c *Conn) terminate(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = err
	close(c.done)
}

// Dialer is a fake dialer handing out Conns.
type Dialer struct {
	mu       sync.Mutex
	failures []error
	dials    int
	urls     []string
	gate     chan struct{}

	attempts chan struct{}
	conns    chan *Conn
}

// NewDialer creates a dialer whose dials succeed.
func NewDialer() *Dialer {
	return &Dialer{
		attempts: make(chan struct{}, 64),
		conns:    make(chan *Conn, 64),
	}
}

// FailNext makes the next len(errs) dials fail with the given errors.
func (d *Dialer) FailNext(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, errs...)
}

// Hold makes dials wait until Release is called or their context ends.
func (d *Dialer) Hold() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gate = make(chan struct{})
}

// Release lets held dials proceed.
func (d *Dialer) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gate != nil {
		close(d.gate)
		d.gate = nil
	}
}

// Dial implements connection.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (connection.Conn, error) {
	d.mu.Lock()
	d.dials++
	d.urls = append(d.urls, url)
	var err error
	if len(d.failures) > 0 {
		err, d.failures = d.failures[0], d.failures[1:]
	}
	gate := d.gate
	d.mu.Unlock()

	select {
	case d.attempts <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	conn := NewConn()
	select {
	case d.conns <- conn:
	default:
	}
	return conn, nil
}

// Dials returns the number of dial attempts so far.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// URLs returns the dialed URLs.
func (d *Dialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// WaitConn returns the next successfully dialed connection.
func (d *Dialer) WaitConn(t testing.TB, timeout time.Duration) *Conn {
	t.Helper()
	select {
	case conn := <-d.conns:
		return conn
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for a connection")
		return nil
	}
}

// WaitAttempt waits for the next dial attempt, successful or not.
func (d *Dialer) WaitAttempt(t testing.TB, timeout time.Duration) {
	t.Helper()
	select {
	case <-d.attempts:
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for a dial attempt")
	}
}
