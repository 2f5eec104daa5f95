package engine

import (
	"context"
	"time"

	"illyrian_project/internal/domain"
)

// Tick is one countdown update.
type Tick struct {
	Lane           domain.Lane `json:"lane"`
	RemainingMs    int64       `json:"remainingMs"`
	PercentElapsed int         `json:"percentElapsed"`
}

// Countdown emits ticks for a running commitment. Remaining time is
// re-derived from the clock on every tick, never decremented.
type Countdown struct {
	clock    Clock
	interval time.Duration
}

func NewCountdown(clock Clock, interval time.Duration) *Countdown {
	if clock == nil {
		clock = SystemClock
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{clock: clock, interval: interval}
}

// Run ticks immediately and then every interval until the commitment ends
// or ctx is cancelled. onExpire runs once, after the final zero tick, and
// never after cancellation.
func (c *Countdown) Run(ctx context.Context, lane domain.Lane, endMs, totalMs int64, onTick func(Tick), onExpire func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		remaining := endMs - c.clock.Now().UnixMilli()
		if remaining <= 0 {
			onTick(Tick{Lane: lane, RemainingMs: 0, PercentElapsed: 100})
			if onExpire != nil {
				onExpire()
			}
			return
		}
		onTick(Tick{
			Lane:           lane,
			RemainingMs:    remaining,
			PercentElapsed: domain.PercentElapsed(remaining, totalMs),
		})

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
