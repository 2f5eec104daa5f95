package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Operator notifications by delivery result",
	},
	[]string{"event", "result"},
)

func init() {
	prometheus.MustRegister(notificationsTotal)
}

// Dispatcher delivers notifications in the background. Delivery failures are
// logged and never reach the caller.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher returns a dispatcher for n. A nil n drops every message.
func NewDispatcher(n Notifier, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{notifier: n, timeout: timeout, log: log}
}

func (d *Dispatcher) Dispatch(msg Message) {
	if d == nil || d.notifier == nil {
		return
	}
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.notifier.Notify(ctx, msg); err != nil {
			notificationsTotal.WithLabelValues(msg.Event, "error").Inc()
			d.log.Warn("notification failed", "event", msg.Event, "user_id", msg.UserID, "error", err)
			return
		}
		notificationsTotal.WithLabelValues(msg.Event, "ok").Inc()
	}()
}

// Wait blocks until every dispatched message has been handled.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
