package metrics

import (
	"time"

	"github.com/alejoacosta74/trading-stream/internal/common"
	"github.com/alejoacosta74/trading-stream/internal/connection"
	"github.com/alejoacosta74/trading-stream/internal/events"
	"github.com/alejoacosta74/trading-stream/pkg/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// MetricsRecorder handles the collection and recording of metrics. It
// listens on the event bus and also serves as connection observer, frame
// drop observer, bus failure hook and Kafka pool recorder.
type MetricsRecorder struct {
	streamMetrics struct {
		eventsReceived   *prometheus.CounterVec
		framesDropped    *prometheus.CounterVec
		listenerFailures *prometheus.CounterVec
		lastPrice        *prometheus.GaugeVec
	}
	wsMetrics struct {
		connectionErrors prometheus.Counter
		reconnects       prometheus.Counter
		reconnectDelay   prometheus.Histogram
		connected        prometheus.Gauge
		state            prometheus.Gauge
	}
	kafkaMetrics struct {
		messagesSent   *prometheus.CounterVec
		sendErrors     *prometheus.CounterVec
		messageLatency prometheus.Histogram
	}

	logger *logrus.Entry
}

// NewMetricsRecorder registers every metric on reg.
func NewMetricsRecorder(reg prometheus.Registerer) *MetricsRecorder {
	r := &MetricsRecorder{
		logger: logrus.WithField("component", "metrics_recorder"),
	}
	factory := promauto.With(reg)

	r.streamMetrics.eventsReceived = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stream",
			Name:      "events_total",
			Help:      "Number of events emitted on the event bus by name",
		},
		[]string{"event"},
	)

	r.streamMetrics.framesDropped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stream",
			Name:      "frames_dropped_total",
			Help:      "Number of inbound frames dropped by reason",
		},
		[]string{"reason"},
	)

	r.streamMetrics.listenerFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stream",
			Name:      "listener_failures_total",
			Help:      "Number of listener invocations that returned an error or panicked",
		},
		[]string{"event"},
	)

	r.streamMetrics.lastPrice = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stream",
			Name:      "last_price",
			Help:      "Last price received per symbol",
		},
		[]string{"symbol"},
	)

	r.wsMetrics.connectionErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "ws",
		Name:      "connection_errors_total",
		Help:      "Total number of WebSocket connection errors",
	})

	r.wsMetrics.reconnects = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "ws",
		Name:      "reconnects_scheduled_total",
		Help:      "Total number of reconnect attempts scheduled",
	})

	r.wsMetrics.reconnectDelay = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ws",
		Name:      "reconnect_delay_seconds",
		Help:      "Delay before each scheduled reconnect",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to 64s
	})

	r.wsMetrics.connected = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "ws",
		Name:      "connected",
		Help:      "1 while the stream connection is open",
	})

	r.wsMetrics.state = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "ws",
		Name:      "connection_state",
		Help:      "Connection state: 0 disconnected, 1 connecting, 2 connected, 3 closing",
	})

	r.kafkaMetrics.messagesSent = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafka",
			Name:      "messages_sent_total",
			Help:      "Messages sent to Kafka by topic",
		},
		[]string{"topic"},
	)

	r.kafkaMetrics.sendErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kafka",
			Name:      "send_errors_total",
			Help:      "Kafka send errors by reason",
		},
		[]string{"reason"},
	)

	r.kafkaMetrics.messageLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kafka",
		Name:      "message_latency_seconds",
		Help:      "Latency of Kafka sends in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	r.logger.Debug("Metrics recorder initialized")
	return r
}

// Attach listens on every known event of bus. The returned function
// detaches the listeners.
func (r *MetricsRecorder) Attach(bus events.Bus) func() {
	type registration struct {
		name common.EventName
		id   events.ListenerID
	}

	var regs []registration
	for _, name := range common.KnownEvents() {
		name := name
		id := bus.On(name, func(ev events.Event) error {
			r.recordEvent(name, ev)
			return nil
		})
		if id != 0 {
			regs = append(regs, registration{name: name, id: id})
		}
	}
	r.logger.Debugf("Listening on %d events", len(regs))

	return func() {
		for _, reg := range regs {
			bus.Off(reg.name, reg.id)
		}
	}
}

func (r *MetricsRecorder) recordEvent(name common.EventName, ev events.Event) {
	r.streamMetrics.eventsReceived.WithLabelValues(string(name)).Inc()

	switch name {
	case common.EventError:
		r.wsMetrics.connectionErrors.Inc()
	case common.EventPriceUpdate:
		var update protocol.PriceUpdate
		if err := ev.Decode(&update); err != nil || update.Symbol == "" {
			r.logger.Tracef("Skipping price gauge: %v", err)
			return
		}
		r.streamMetrics.lastPrice.WithLabelValues(update.Symbol).Set(update.Price.InexactFloat64())
	}
}

// FrameDropped implements the dispatcher observer.
func (r *MetricsRecorder) FrameDropped(reason string) {
	r.streamMetrics.framesDropped.WithLabelValues(reason).Inc()
}

// ListenerFailed is meant to be installed as the event bus failure hook.
func (r *MetricsRecorder) ListenerFailed(name common.EventName, _ error) {
	r.streamMetrics.listenerFailures.WithLabelValues(string(name)).Inc()
}

// ReconnectScheduled implements connection.Observer.
func (r *MetricsRecorder) ReconnectScheduled(_ int, delay time.Duration) {
	r.wsMetrics.reconnects.Inc()
	r.wsMetrics.reconnectDelay.Observe(delay.Seconds())
}

// StateChanged implements connection.Observer.
func (r *MetricsRecorder) StateChanged(state connection.State) {
	r.wsMetrics.state.Set(float64(state))
	if state == connection.StateOpen {
		r.wsMetrics.connected.Set(1)
	} else {
		r.wsMetrics.connected.Set(0)
	}
}

// RecordKafkaMessageSent implements kafka.Recorder.
func (r *MetricsRecorder) RecordKafkaMessageSent(topic string, duration time.Duration) {
	r.kafkaMetrics.messagesSent.WithLabelValues(topic).Inc()
	r.kafkaMetrics.messageLatency.Observe(duration.Seconds())
}

// RecordKafkaError implements kafka.Recorder.
func (r *MetricsRecorder) RecordKafkaError(reason string) {
	r.kafkaMetrics.sendErrors.WithLabelValues(reason).Inc()
}
