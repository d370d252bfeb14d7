package metrics

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alejoacosta74/trading-stream/internal/common"
	"github.com/alejoacosta74/trading-stream/internal/connection"
	"github.com/alejoacosta74/trading-stream/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (*MetricsRecorder, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	return NewMetricsRecorder(registry), registry
}

func TestMetricsRecorder_Events(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	bus := events.NewEventBus(
		events.WithKnownEvents(common.KnownEvents()...),
		events.WithFailureHook(recorder.ListenerFailed),
	)
	detach := recorder.Attach(bus)

	tests := []struct {
		name  common.EventName
		event events.Event
	}{
		{name: common.EventConnected},
		{name: common.EventPriceUpdate, event: events.Event{Data: json.RawMessage(`{"type":"price_update","symbol":"BTCUSDT","price":"64000.25"}`)}},
		{name: common.EventPriceUpdate, event: events.Event{Data: json.RawMessage(`{"type":"price_update","symbol":"ETHUSDT","price":3100}`)}},
		{name: common.EventHeartbeat, event: events.Event{Data: json.RawMessage(`{"type":"heartbeat"}`)}},
		{name: common.EventError, event: events.Event{Err: errors.New("reset by peer")}},
		{name: common.EventDisconnected},
	}
	for _, tt := range tests {
		bus.Trigger(tt.name, tt.event)
	}

	received := recorder.streamMetrics.eventsReceived
	assert.Equal(t, float64(1), testutil.ToFloat64(received.WithLabelValues("connected")))
	assert.Equal(t, float64(2), testutil.ToFloat64(received.WithLabelValues("price_update")))
	assert.Equal(t, float64(1), testutil.ToFloat64(received.WithLabelValues("heartbeat")))
	assert.Equal(t, float64(1), testutil.ToFloat64(received.WithLabelValues("disconnected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.wsMetrics.connectionErrors))

	assert.Equal(t, 64000.25, testutil.ToFloat64(recorder.streamMetrics.lastPrice.WithLabelValues("BTCUSDT")))
	assert.Equal(t, float64(3100), testutil.ToFloat64(recorder.streamMetrics.lastPrice.WithLabelValues("ETHUSDT")))

	detach()
	bus.Trigger(common.EventConnected, events.Event{})
	assert.Equal(t, float64(1), testutil.ToFloat64(received.WithLabelValues("connected")))
}

func TestMetricsRecorder_MalformedPriceDoesNotFail(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	bus := events.NewEventBus(events.WithFailureHook(recorder.ListenerFailed))
	recorder.Attach(bus)

	bus.Trigger(common.EventPriceUpdate, events.Event{Data: json.RawMessage(`{"type":"price_update","price":"abc"}`)})

	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.streamMetrics.eventsReceived.WithLabelValues("price_update")))
	assert.Equal(t, 0, testutil.CollectAndCount(recorder.streamMetrics.lastPrice))
	assert.Equal(t, 0, testutil.CollectAndCount(recorder.streamMetrics.listenerFailures))
}

func TestMetricsRecorder_ListenerFailures(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	bus := events.NewEventBus(events.WithFailureHook(recorder.ListenerFailed))

	bus.On(common.EventTradeUpdate, func(events.Event) error { return errors.New("boom") })
	bus.On(common.EventTradeUpdate, func(events.Event) error { panic("listener bug") })

	bus.Trigger(common.EventTradeUpdate, events.Event{})

	assert.Equal(t, float64(2), testutil.ToFloat64(recorder.streamMetrics.listenerFailures.WithLabelValues("trade_update")))
}

func TestMetricsRecorder_Observers(t *testing.T) {
	recorder, registry := newTestRecorder(t)

	recorder.FrameDropped("decode")
	recorder.FrameDropped("decode")
	recorder.FrameDropped("unknown_type")
	assert.Equal(t, float64(2), testutil.ToFloat64(recorder.streamMetrics.framesDropped.WithLabelValues("decode")))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.streamMetrics.framesDropped.WithLabelValues("unknown_type")))

	recorder.StateChanged(connection.StateConnecting)
	assert.Equal(t, float64(0), testutil.ToFloat64(recorder.wsMetrics.connected))
	recorder.StateChanged(connection.StateOpen)
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.wsMetrics.connected))
	assert.Equal(t, float64(connection.StateOpen), testutil.ToFloat64(recorder.wsMetrics.state))
	recorder.StateChanged(connection.StateDisconnected)
	assert.Equal(t, float64(0), testutil.ToFloat64(recorder.wsMetrics.connected))

	recorder.ReconnectScheduled(1, time.Second)
	recorder.ReconnectScheduled(2, 2*time.Second)
	assert.Equal(t, float64(2), testutil.ToFloat64(recorder.wsMetrics.reconnects))

	families, err := registry.Gather()
	require.NoError(t, err)
	histogram := findMetric(t, families, "ws_reconnect_delay_seconds").GetHistogram()
	assert.Equal(t, uint64(2), histogram.GetSampleCount())
	assert.Equal(t, float64(3), histogram.GetSampleSum())
}

func TestMetricsRecorder_Kafka(t *testing.T) {
	recorder, _ := newTestRecorder(t)

	recorder.RecordKafkaMessageSent("trading.price_update", 10*time.Millisecond)
	recorder.RecordKafkaError("send_failed")

	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.kafkaMetrics.messagesSent.WithLabelValues("trading.price_update")))
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.kafkaMetrics.sendErrors.WithLabelValues("send_failed")))
}

func findMetric(t *testing.T, families []*dto.MetricFamily, name string) *dto.Metric {
	t.Helper()
	for _, family := range families {
		if family.GetName() == name {
			require.NotEmpty(t, family.GetMetric())
			return family.GetMetric()[0]
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}
