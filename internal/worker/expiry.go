package worker

import (
	"context"
	"log/slog"
	"time"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
	"illyrian_project/internal/logger"
)

const sweepBatch = 100

// Completer settles expired commitments.
type Completer interface {
	Complete(ctx context.Context, userID string, lane domain.Lane) (*engine.Outcome, error)
}

// ExpirySweeper completes commitments whose timer ran out while nobody had
// the dashboard open.
type ExpirySweeper struct {
	store     domain.UserStore
	completer Completer
	clock     engine.Clock
	interval  time.Duration
	log       *slog.Logger
}

func NewExpirySweeper(store domain.UserStore, completer Completer, clock engine.Clock, interval time.Duration) *ExpirySweeper {
	if clock == nil {
		clock = engine.SystemClock
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		store:     store,
		completer: completer,
		clock:     clock,
		interval:  interval,
		log:       logger.Component("expiry_sweeper"),
	}
}

// Start sweeps once and then every interval until ctx is done.
func (w *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.Info("expiry sweeper started", "interval", w.interval)

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep completes every due commitment and returns how many transitioned.
func (w *ExpirySweeper) Sweep(ctx context.Context) int {
	completed := 0
	for _, lane := range domain.Lanes {
		ids, err := w.store.ListExpired(ctx, lane, w.clock.Now().UnixMilli(), sweepBatch)
		if err != nil {
			w.log.Error("failed to list expired commitments", "lane", lane, "error", err)
			continue
		}
		for _, id := range ids {
			if ctx.Err() != nil {
				return completed
			}
			out, err := w.completer.Complete(ctx, id, lane)
			if err != nil {
				w.log.Warn("failed to complete commitment", "user_id", id, "lane", lane, "error", err)
				continue
			}
			if out.Transitioned {
				completed++
			}
		}
	}
	if completed > 0 {
		w.log.Info("sweep completed commitments", "count", completed)
	}
	return completed
}
