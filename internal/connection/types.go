package connection

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected = errors.New("not connected")
	// ErrClosed is returned by Conn.ReadMessage when the peer closed the
	// connection cleanly. It is not reported as a transport error.
	ErrClosed = errors.New("connection closed")
)

// State is the connection state. Only the Manager changes it.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

// String returns the status vocabulary exposed to callers.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Conn is one established transport connection.
type Conn interface {
	// ReadMessage blocks until the next frame arrives or the connection fails.
	ReadMessage() ([]byte, error)
	// WriteMessage sends one text frame.
	WriteMessage(data []byte) error
	// Close tears the connection down. Pending reads return an error.
	Close() error
}

// Dialer opens transport connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Hooks receive lifecycle transitions and inbound frames. Hooks run on the
// manager's goroutines and never while the manager holds its lock, so they
// may call back into the manager.
type Hooks struct {
	OnOpen    func()
	OnMessage func(frame []byte)
	OnError   func(err error)
	OnClose   func()
}

// Observer is notified about reconnect scheduling and state changes.
type Observer interface {
	ReconnectScheduled(attempt int, delay time.Duration)
	StateChanged(state State)
}

// Config configures the Connection Manager.
type Config struct {
	URL       string        // WebSocket URL (e.g., ws://localhost:3000/ws)
	BaseDelay time.Duration // Reconnect delay after the first failure
	MaxDelay  time.Duration // Reconnect delay cap
}

type noopObserver struct{}

func (noopObserver) ReconnectScheduled(int, time.Duration) {}
func (noopObserver) StateChanged(State)                    {}
