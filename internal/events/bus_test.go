// bus_test.go
package events

import (
	"errors"
	"testing"
	"time"

	"github.com/alejoacosta74/trading-stream/internal/common"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T, opts ...Option) (*EventBus, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.TraceLevel)
	opts = append([]Option{WithLogger(logrus.NewEntry(log))}, opts...)
	return NewEventBus(opts...), hook
}

func TestEventBus_On(t *testing.T) {
	tests := []struct {
		name          string
		event         common.EventName
		opts          []Option
		registrations int
		wantCount     int
		wantZeroID    bool
	}{
		{
			name:          "register on open bus",
			event:         common.EventName("anything"),
			registrations: 1,
			wantCount:     1,
		},
		{
			name:          "duplicates are kept",
			event:         common.EventTradeUpdate,
			opts:          []Option{WithKnownEvents(common.KnownEvents()...)},
			registrations: 3,
			wantCount:     3,
		},
		{
			name:          "unknown event is rejected",
			event:         common.EventName("made_up"),
			opts:          []Option{WithKnownEvents(common.KnownEvents()...)},
			registrations: 1,
			wantCount:     0,
			wantZeroID:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, _ := newTestBus(t, tt.opts...)
			handler := func(Event) error { return nil }

			seen := map[ListenerID]bool{}
			for i := 0; i < tt.registrations; i++ {
				id := bus.On(tt.event, handler)
				if tt.wantZeroID {
					assert.Zero(t, id)
					continue
				}
				assert.NotZero(t, id)
				assert.False(t, seen[id], "listener ids must be unique")
				seen[id] = true
			}
			assert.Equal(t, tt.wantCount, bus.ListenerCount(tt.event))
		})
	}
}

func TestEventBus_TriggerOrder(t *testing.T) {
	bus, _ := newTestBus(t)

	var calls []int
	for i := 1; i <= 3; i++ {
		i := i
		bus.On(common.EventPriceUpdate, func(Event) error {
			calls = append(calls, i)
			return nil
		})
	}

	bus.Trigger(common.EventPriceUpdate, Event{Data: []byte(`{"type":"price_update"}`)})

	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestEventBus_TriggerSetsName(t *testing.T) {
	bus, _ := newTestBus(t)

	var got Event
	bus.On(common.EventHeartbeat, func(e Event) error {
		got = e
		return nil
	})
	bus.Trigger(common.EventHeartbeat, Event{Data: []byte(`{"type":"heartbeat"}`)})

	assert.Equal(t, common.EventHeartbeat, got.Name)
	assert.JSONEq(t, `{"type":"heartbeat"}`, string(got.Data))
}

func TestEventBus_FailingListenerIsIsolated(t *testing.T) {
	tests := []struct {
		name  string
		first Handler
	}{
		{
			name:  "first listener returns an error",
			first: func(Event) error { return errors.New("boom") },
		},
		{
			name:  "first listener panics",
			first: func(Event) error { panic("boom") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var failures []common.EventName
			bus, hook := newTestBus(t, WithFailureHook(func(name common.EventName, err error) {
				assert.Error(t, err)
				failures = append(failures, name)
			}))

			var received []byte
			bus.On(common.EventTradeUpdate, tt.first)
			bus.On(common.EventTradeUpdate, func(e Event) error {
				received = e.Data
				return nil
			})

			payload := []byte(`{"type":"trade_update","data":{"symbol":"BTCUSDT"}}`)
			assert.NotPanics(t, func() {
				bus.Trigger(common.EventTradeUpdate, Event{Data: payload})
			})

			assert.Equal(t, payload, []byte(received))
			assert.Equal(t, []common.EventName{common.EventTradeUpdate}, failures)
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
		})
	}
}

func TestEventBus_TriggerWithoutListeners(t *testing.T) {
	t.Run("known event with no listeners is silent", func(t *testing.T) {
		bus, hook := newTestBus(t, WithKnownEvents(common.KnownEvents()...))
		bus.Trigger(common.EventHeartbeat, Event{})
		assert.Empty(t, hook.AllEntries())
	})

	t.Run("unknown event logs a warning", func(t *testing.T) {
		bus, hook := newTestBus(t, WithKnownEvents(common.KnownEvents()...))
		assert.NotPanics(t, func() {
			bus.Trigger(common.EventName("nope"), Event{})
		})
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	})
}

func TestEventBus_Off(t *testing.T) {
	bus, _ := newTestBus(t)

	var calls []string
	a := bus.On(common.EventAlertTriggered, func(Event) error { calls = append(calls, "a"); return nil })
	bus.On(common.EventAlertTriggered, func(Event) error { calls = append(calls, "b"); return nil })

	assert.True(t, bus.Off(common.EventAlertTriggered, a))
	assert.False(t, bus.Off(common.EventAlertTriggered, a), "second removal is a no-op")
	assert.False(t, bus.Off(common.EventHeartbeat, a), "wrong event name")

	bus.Trigger(common.EventAlertTriggered, Event{})
	assert.Equal(t, []string{"b"}, calls)
	assert.Equal(t, 1, bus.ListenerCount(common.EventAlertTriggered))
}

func TestEventBus_MutationDuringTrigger(t *testing.T) {
	bus, _ := newTestBus(t)

	var calls []string
	var selfID ListenerID
	selfID = bus.On(common.EventPriceUpdate, func(Event) error {
		calls = append(calls, "self")
		bus.Off(common.EventPriceUpdate, selfID)
		bus.On(common.EventPriceUpdate, func(Event) error {
			calls = append(calls, "late")
			return nil
		})
		return nil
	})
	bus.On(common.EventPriceUpdate, func(Event) error {
		calls = append(calls, "second")
		return nil
	})

	bus.Trigger(common.EventPriceUpdate, Event{})
	assert.Equal(t, []string{"self", "second"}, calls, "current pass uses the snapshot")

	calls = nil
	bus.Trigger(common.EventPriceUpdate, Event{})
	assert.Equal(t, []string{"second", "late"}, calls)
}

func TestEventBus_Stream(t *testing.T) {
	bus, _ := newTestBus(t)

	ch, cancel := bus.Stream(common.EventHeartbeat, 1)
	assert.Equal(t, 1, bus.ListenerCount(common.EventHeartbeat))

	go bus.Trigger(common.EventHeartbeat, Event{Data: []byte(`{"type":"heartbeat"}`)})

	select {
	case received := <-ch:
		assert.Equal(t, common.EventHeartbeat, received.Name)
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}

	// Buffer of one: the second event is dropped, not blocking.
	bus.Trigger(common.EventHeartbeat, Event{})
	bus.Trigger(common.EventHeartbeat, Event{})

	cancel()
	cancel()
	assert.Equal(t, 0, bus.ListenerCount(common.EventHeartbeat))

	drained := 0
	for range ch {
		drained++
	}
	assert.Equal(t, 1, drained)
}

func TestEvent_Decode(t *testing.T) {
	var v struct {
		Symbol string `json:"symbol"`
	}
	require.NoError(t, Event{Data: []byte(`{"symbol":"BTCUSDT"}`)}.Decode(&v))
	assert.Equal(t, "BTCUSDT", v.Symbol)

	assert.Error(t, Event{}.Decode(&v))
}

func TestEventBus_StreamEventsKeepsTriggerOrder(t *testing.T) {
	bus, _ := newTestBus(t)

	ch, cancel := bus.StreamEvents(8, common.EventConnected, common.EventDisconnected)
	defer cancel()

	bus.Trigger(common.EventConnected, Event{})
	bus.Trigger(common.EventDisconnected, Event{})
	bus.Trigger(common.EventConnected, Event{})
	bus.Trigger(common.EventDisconnected, Event{})

	var got []common.EventName
	for i := 0; i < 4; i++ {
		got = append(got, (<-ch).Name)
	}
	assert.Equal(t, []common.EventName{
		common.EventConnected, common.EventDisconnected,
		common.EventConnected, common.EventDisconnected,
	}, got)

	cancel()
	assert.Zero(t, bus.ListenerCount(common.EventConnected))
	assert.Zero(t, bus.ListenerCount(common.EventDisconnected))
}
