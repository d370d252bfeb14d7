package ui

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/alejoacosta74/trading-stream/internal/common"
	"github.com/alejoacosta74/trading-stream/internal/events"
	"github.com/alejoacosta74/trading-stream/pkg/protocol"
	"github.com/sirupsen/logrus"
)

// Streamer hands out event channels. The client implements it.
type Streamer interface {
	StreamEvents(buffer int, names ...common.EventName) (<-chan events.Event, func())
}

// UIUpdater renders stream events as lines of text: connection status,
// prices, trades, alerts and performance summaries.
type UIUpdater struct {
	streamer Streamer
	out      io.Writer
	now      func() time.Time
	logger   *logrus.Entry

	mutex  sync.RWMutex
	prices map[string]protocol.PriceUpdate
	status string

	done chan struct{}
}

// NewUIUpdater creates a console view writing to out.
func NewUIUpdater(streamer Streamer, out io.Writer) *UIUpdater {
	return &UIUpdater{
		streamer: streamer,
		out:      out,
		now:      time.Now,
		logger:   logrus.WithField("component", "ui_updater"),
		prices:   make(map[string]protocol.PriceUpdate),
		status:   "disconnected",
		done:     make(chan struct{}),
	}
}

// Start begins rendering events until ctx is cancelled. Done is closed
// once rendering has stopped.
func (u *UIUpdater) Start(ctx context.Context) {
	// A single channel keeps connected and disconnected in trigger order.
	ch, cancel := u.streamer.StreamEvents(256, common.KnownEvents()...)

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for ev := range ch {
			u.render(ev)
		}
	}()

	go func() {
		<-ctx.Done()
		cancel()
		<-rendered
		close(u.done)
	}()
}

// Done is closed when the updater has stopped.
func (u *UIUpdater) Done() <-chan struct{} {
	return u.done
}

// Status returns the last rendered connection status.
func (u *UIUpdater) Status() string {
	u.mutex.RLock()
	defer u.mutex.RUnlock()
	return u.status
}

// Prices returns the last price update per symbol, sorted by symbol.
func (u *UIUpdater) Prices() []protocol.PriceUpdate {
	u.mutex.RLock()
	defer u.mutex.RUnlock()
	out := make([]protocol.PriceUpdate, 0, len(u.prices))
	for _, p := range u.prices {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// render writes one event. Output is serialized by the mutex.
func (u *UIUpdater) render(ev events.Event) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	stamp := u.now().Format("15:04:05")
	var err error

	switch ev.Name {
	case common.EventConnected, common.EventDisconnected:
		u.status = string(ev.Name)
		_, err = fmt.Fprintf(u.out, "%s  status      %s\n", stamp, strings.ToUpper(u.status))

	case common.EventError:
		_, err = fmt.Fprintf(u.out, "%s  error       %v\n", stamp, ev.Err)

	case common.EventPriceUpdate:
		var p protocol.PriceUpdate
		if err = ev.Decode(&p); err != nil {
			break
		}
		u.prices[p.Symbol] = p
		_, err = fmt.Fprintf(u.out, "%s  price       %-10s %s (%s%%)\n",
			stamp, p.Symbol, p.Price.String(), p.ChangePercent.StringFixed(2))

	case common.EventTradeUpdate:
		var t protocol.TradeUpdate
		if err = ev.Decode(&t); err != nil {
			break
		}
		_, err = fmt.Fprintf(u.out, "%s  trade       %-10s %s %s @ %s\n",
			stamp, t.Data.Symbol, strings.ToUpper(t.Data.Side), t.Data.Quantity.String(), t.Data.Price.String())

	case common.EventAlertTriggered:
		var a protocol.AlertTriggered
		if err = ev.Decode(&a); err != nil {
			break
		}
		_, err = fmt.Fprintf(u.out, "%s  alert       %-10s %s %s\n",
			stamp, a.Data.Symbol, a.Data.Condition, a.Data.TargetPrice.String())

	case common.EventPerformanceUpdate:
		var p protocol.PerformanceUpdate
		if err = ev.Decode(&p); err != nil {
			break
		}
		err = u.renderPerformance(stamp, p.Data)

	case common.EventHeartbeat:
		u.logger.Trace("Heartbeat")
	}

	if err != nil {
		u.logger.WithError(err).WithField("event", ev.Name).Warn("Failed to render event")
	}
}

func (u *UIUpdater) renderPerformance(stamp string, p protocol.Performance) error {
	if _, err := fmt.Fprintf(u.out, "%s  performance\n", stamp); err != nil {
		return err
	}
	w := tabwriter.NewWriter(u.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\ttotal P&L\t%s\n", p.TotalProfitLoss.StringFixed(2))
	fmt.Fprintf(w, "\twin rate\t%s%%\n", p.WinRate.StringFixed(1))
	fmt.Fprintf(w, "\tavg profit\t%s\n", p.AvgProfit.StringFixed(2))
	fmt.Fprintf(w, "\tavg loss\t%s\n", p.AvgLoss.StringFixed(2))
	fmt.Fprintf(w, "\twins/losses\t%d/%d\n", p.TotalWins, p.TotalLosses)
	return w.Flush()
}
