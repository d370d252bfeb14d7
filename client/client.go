// Package client is the entry point of the trading stream: one explicitly
// constructed Client owns the connection, the subscription set, the frame
// router and the event bus.
package client

import (
	"errors"
	"time"

	"github.com/alejoacosta74/trading-stream/internal/common"
	"github.com/alejoacosta74/trading-stream/internal/connection"
	"github.com/alejoacosta74/trading-stream/internal/dispatcher"
	"github.com/alejoacosta74/trading-stream/internal/events"
	"github.com/alejoacosta74/trading-stream/internal/subscription"
	"github.com/alejoacosta74/trading-stream/internal/ws"
	"github.com/alejoacosta74/trading-stream/pkg/protocol"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Re-exported so callers need not import internal packages.
type (
	State      = connection.State
	Event      = events.Event
	Handler    = events.Handler
	ListenerID = events.ListenerID
	EventName  = common.EventName
)

const (
	StateDisconnected = connection.StateDisconnected
	StateConnecting   = connection.StateConnecting
	StateConnected    = connection.StateOpen
	StateClosing      = connection.StateClosing
)

const (
	EventConnected         = common.EventConnected
	EventDisconnected      = common.EventDisconnected
	EventError             = common.EventError
	EventPriceUpdate       = common.EventPriceUpdate
	EventTradeUpdate       = common.EventTradeUpdate
	EventAlertTriggered    = common.EventAlertTriggered
	EventPerformanceUpdate = common.EventPerformanceUpdate
	EventHeartbeat         = common.EventHeartbeat
)

// ErrNotConnected is returned by Send while the connection is not open.
var ErrNotConnected = connection.ErrNotConnected

// Config configures a Client.
type Config struct {
	URL       string        // WebSocket URL (e.g., ws://localhost:3000/ws)
	BaseDelay time.Duration // First reconnect delay, 1s when zero
	MaxDelay  time.Duration // Reconnect delay cap, 30s when zero
}

// Observer receives connection and frame level measurements. The metrics
// recorder implements it.
type Observer interface {
	connection.Observer
	dispatcher.Observer
	ListenerFailed(name common.EventName, err error)
}

type options struct {
	dialer   connection.Dialer
	clock    clockwork.Clock
	logger   *logrus.Entry
	observer Observer
}

// Option defines a function type for configuring the Client.
type Option func(*options)

// WithDialer replaces the gorilla transport, typically with a fake in tests.
func WithDialer(dialer connection.Dialer) Option {
	return func(o *options) {
		o.dialer = dialer
	}
}

// WithClock replaces the clock used for reconnect timers.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithLogger sets the parent logger; each component adds its own
// component field.
func WithLogger(entry *logrus.Entry) Option {
	return func(o *options) {
		o.logger = entry
	}
}

// WithObserver installs a measurement observer.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// Client is a realtime trading stream client. It keeps one logical
// connection, survives disconnects with capped exponential backoff, replays
// subscriptions on every (re)connect and fans decoded events out to
// listeners. All methods are safe for concurrent use.
type Client struct {
	manager    *connection.Manager
	registry   *subscription.Registry
	dispatcher *dispatcher.Dispatcher
	bus        *events.EventBus
	logger     *logrus.Entry
}

// New builds a Client. It does not connect; call Connect.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("client: url is required")
	}

	o := options{
		clock:  clockwork.NewRealClock(),
		logger: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialer == nil {
		o.dialer = ws.NewDialer(ws.WithLogger(o.logger.WithField("component", "ws_client")))
	}

	c := &Client{logger: o.logger.WithField("component", "client")}

	busOpts := []events.Option{
		events.WithKnownEvents(common.KnownEvents()...),
		events.WithLogger(o.logger.WithField("component", "event_bus")),
	}
	dispatcherOpts := []dispatcher.Option{
		dispatcher.WithLogger(o.logger.WithField("component", "dispatcher")),
	}
	managerOpts := []connection.Option{
		connection.WithClock(o.clock),
		connection.WithLogger(o.logger.WithField("component", "connection_manager")),
	}
	if o.observer != nil {
		busOpts = append(busOpts, events.WithFailureHook(o.observer.ListenerFailed))
		dispatcherOpts = append(dispatcherOpts, dispatcher.WithObserver(o.observer))
		managerOpts = append(managerOpts, connection.WithObserver(o.observer))
	}

	c.bus = events.NewEventBus(busOpts...)
	c.dispatcher = dispatcher.NewDispatcher(c.bus, dispatcherOpts...)
	c.manager = connection.NewManager(
		connection.Config{URL: cfg.URL, BaseDelay: cfg.BaseDelay, MaxDelay: cfg.MaxDelay},
		o.dialer,
		connection.Hooks{
			OnOpen:    c.onOpen,
			OnMessage: c.dispatcher.Dispatch,
			OnError:   c.onError,
			OnClose:   c.onClose,
		},
		managerOpts...,
	)
	c.registry = subscription.NewRegistry(c.manager,
		subscription.WithLogger(o.logger.WithField("component", "subscription_registry")))

	return c, nil
}

// Replay runs before the connected event so that the subscription set is
// the first thing the server hears on every connection.
func (c *Client) onOpen() {
	if err := c.registry.Replay(); err != nil {
		c.logger.WithError(err).Warn("Failed to replay subscriptions")
	}
	c.bus.Trigger(common.EventConnected, events.Event{})
}

func (c *Client) onError(err error) {
	c.bus.Trigger(common.EventError, events.Event{Err: err})
}

func (c *Client) onClose() {
	c.bus.Trigger(common.EventDisconnected, events.Event{})
}

// Connect starts connecting. It returns immediately; progress is reported
// through the connected, error and disconnected events. It is a no-op while
// connecting or connected.
func (c *Client) Connect() {
	c.manager.Connect()
}

// Disconnect closes the connection and cancels any pending reconnect. The
// subscription set is kept for the next Connect.
func (c *Client) Disconnect() {
	c.manager.Disconnect()
}

// Status returns the current connection state.
func (c *Client) Status() State {
	return c.manager.Status()
}

// Send transmits a raw command. It returns ErrNotConnected, after logging a
// warning, when the connection is not open; commands are never queued.
func (c *Client) Send(cmd protocol.Command) error {
	return c.manager.Send(cmd)
}

// Ping sends a ping command. The server's pong is consumed silently.
func (c *Client) Ping() error {
	return c.manager.Send(protocol.PingCommand())
}
