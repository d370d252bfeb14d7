package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/alejoacosta74/trading-stream/internal/backoff"
	"github.com/alejoacosta74/trading-stream/pkg/protocol"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Manager owns the single logical connection to the stream endpoint.
//
// State machine:
//
//	Disconnected -> Connecting -> Open -> (Closing) -> Disconnected
//
// Every close, clean or not, schedules a reconnect. Only Disconnect leaves
// the manager disconnected for good, until the next Connect.
type Manager struct {
	cfg      Config
	dialer   Dialer
	hooks    Hooks
	clock    clockwork.Clock
	backoff  *backoff.Policy
	observer Observer
	logger   *logrus.Entry

	// mu protects every field below
	mu         sync.Mutex
	state      State
	conn       Conn
	gen        uint64 // Bumped on every new attempt and on Disconnect; stale callbacks compare against it
	stopped    bool   // Set by Disconnect, cleared by Connect
	timer      clockwork.Timer
	cancelDial context.CancelFunc

	// writeMu serializes writes on the connection
	writeMu sync.Mutex
}

// Option defines a function type for configuring the Manager.
type Option func(*Manager)

// WithClock replaces the real clock used to schedule reconnects.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithLogger replaces the default component logger.
func WithLogger(entry *logrus.Entry) Option {
	return func(m *Manager) {
		m.logger = entry
	}
}

// WithObserver registers an observer. Observer methods are called with the
// manager lock held and must not call back into the manager.
func WithObserver(observer Observer) Option {
	return func(m *Manager) {
		m.observer = observer
	}
}

// NewManager creates a new Connection Manager. It does not connect.
func NewManager(cfg Config, dialer Dialer, hooks Hooks, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		dialer:   dialer,
		hooks:    hooks,
		clock:    clockwork.NewRealClock(),
		backoff:  backoff.NewPolicy(cfg.BaseDelay, cfg.MaxDelay),
		observer: noopObserver{},
		logger:   logrus.WithField("component", "connection_manager"),
		state:    StateDisconnected,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Connect starts connecting in the background. It is a no-op while a
// connection is being established or is open.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = false
	if m.state == StateConnecting || m.state == StateOpen {
		m.logger.Debugf("Connect ignored, connection is %s", m.state)
		return
	}
	m.startLocked()
}

// Disconnect closes the connection and cancels any pending reconnect or
// in-flight dial. No reconnect happens until Connect is called again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.stopped = true
	m.gen++
	gen := m.gen

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}

	conn := m.conn
	m.conn = nil
	if conn == nil {
		m.setStateLocked(StateDisconnected)
		m.mu.Unlock()
		m.logger.Debug("Disconnected, no open connection")
		return
	}
	m.setStateLocked(StateClosing)
	m.mu.Unlock()

	m.logger.Debug("Closing connection")
	if err := conn.Close(); err != nil {
		m.logger.Warnf("Error closing connection: %v", err)
	}

	m.mu.Lock()
	// A Connect issued while we were closing owns the state now.
	if m.gen == gen {
		m.setStateLocked(StateDisconnected)
	}
	m.mu.Unlock()

	m.logger.Info("WebSocket disconnected")
	m.onClose()
}

// Send encodes cmd and writes it to the open connection. When the
// connection is not open the command is dropped with a warning and
// ErrNotConnected is returned.
func (m *Manager) Send(cmd protocol.Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("error marshaling command: %w", err)
	}

	m.mu.Lock()
	conn, state := m.conn, m.state
	m.mu.Unlock()

	if state != StateOpen || conn == nil {
		m.logger.WithField("action", cmd.Action).Warnf("WebSocket not connected, cannot send: %s", data)
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.logger.Tracef("Sending message: %s", data)
	if err := conn.WriteMessage(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Status returns the current connection state.
func (m *Manager) Status() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Attempts returns the number of consecutive failed connection cycles.
func (m *Manager) Attempts() int {
	return m.backoff.Failures()
}

// startLocked begins a new connection attempt. m.mu must be held.
func (m *Manager) startLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	m.gen++
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel
	m.setStateLocked(StateConnecting)

	log := m.logger.WithField("session", uuid.NewString())
	go m.dial(ctx, m.gen, log)
}

// dial establishes the connection and then runs the read loop on the same
// goroutine until the connection fails.
func (m *Manager) dial(ctx context.Context, gen uint64, log *logrus.Entry) {
	log.Debugf("Dialing %s", m.cfg.URL)

	conn, err := m.dialer.Dial(ctx, m.cfg.URL)
	if err != nil {
		m.fail(gen, fmt.Errorf("dial %s: %w", m.cfg.URL, err), log)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		// Disconnect or a newer attempt superseded this dial.
		m.mu.Unlock()
		conn.Close()
		return
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.conn = conn
	m.backoff.Reset()
	m.setStateLocked(StateOpen)
	m.mu.Unlock()

	log.Info("WebSocket connected")
	if m.hooks.OnOpen != nil {
		m.hooks.OnOpen()
	}

	m.readLoop(gen, conn, log)
}

// readLoop hands every frame to OnMessage, in the order the transport
// delivers them, until the connection fails.
func (m *Manager) readLoop(gen uint64, conn Conn, log *logrus.Entry) {
	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			m.fail(gen, err, log)
			return
		}
		if !m.isCurrent(gen) {
			return
		}
		log.Tracef("Received frame: %s", frame)
		if m.hooks.OnMessage != nil {
			m.hooks.OnMessage(frame)
		}
	}
}

// fail handles the end of connection attempt gen and schedules the
// reconnect. Calls for a superseded attempt are ignored.
func (m *Manager) fail(gen uint64, err error, log *logrus.Entry) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		log.Tracef("Ignoring failure of superseded connection: %v", err)
		return
	}
	conn := m.conn
	m.conn = nil
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	if errors.Is(err, ErrClosed) {
		log.Info("WebSocket closed by server")
	} else {
		log.Errorf("WebSocket error: %v", err)
		if m.hooks.OnError != nil {
			m.hooks.OnError(err)
		}
	}
	m.onClose()

	m.scheduleReconnect(gen)
}

// scheduleReconnect arms the reconnect timer unless a hook called
// Disconnect or Connect in the meantime.
func (m *Manager) scheduleReconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.stopped || m.state != StateDisconnected {
		return
	}

	delay := m.backoff.Next()
	attempt := m.backoff.Failures()
	m.logger.Infof("Reconnecting in %s (attempt %d)", delay, attempt)
	m.observer.ReconnectScheduled(attempt, delay)

	m.timer = m.clock.AfterFunc(delay, func() {
		m.reconnect(gen)
	})
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.stopped || m.state != StateDisconnected {
		m.logger.Trace("Reconnect timer fired for a superseded connection")
		return
	}
	m.timer = nil
	m.startLocked()
}

func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

func (m *Manager) onClose() {
	if m.hooks.OnClose != nil {
		m.hooks.OnClose()
	}
}

func (m *Manager) setStateLocked(state State) {
	if m.state == state {
		return
	}
	m.state = state
	m.observer.StateChanged(state)
}
