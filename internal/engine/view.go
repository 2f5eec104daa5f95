package engine

import (
	"illyrian_project/internal/catalog"
	"illyrian_project/internal/domain"
)

// LaneView is what the dashboard renders for one lane.
type LaneView struct {
	Lane           domain.Lane        `json:"lane"`
	State          domain.LaneState   `json:"state"`
	Commitment     *domain.Commitment `json:"commitment"`
	RemainingMs    int64              `json:"remainingMs"`
	PercentElapsed int                `json:"percentElapsed"`
	Summary        interface{}        `json:"summary"`
}

// View derives the lane view of u at nowMs.
func View(u *domain.User, lane domain.Lane, nowMs int64) LaneView {
	v := LaneView{
		Lane:  lane,
		State: domain.StateAt(u, lane, nowMs),
	}

	switch lane {
	case domain.LaneInvest:
		if u.LastInvestSummary != nil {
			v.Summary = u.LastInvestSummary
		}
	case domain.LaneMining:
		if u.LastMiningSummary != nil {
			v.Summary = u.LastMiningSummary
		}
	}

	c := u.Commitment(lane)
	if c == nil {
		return v
	}
	if c.DurationMs <= 0 {
		// documents written before the discount was stored
		if tier, ok := catalog.Lookup(lane, c.TierID); ok {
			c.DurationMs = tier.BaseDurationMs
		}
	}
	v.Commitment = c

	switch v.State {
	case domain.LaneActive:
		v.RemainingMs = c.EndTimestamp - nowMs
		v.PercentElapsed = domain.PercentElapsed(v.RemainingMs, c.DurationMs)
	case domain.LaneCompleted:
		v.PercentElapsed = 100
	}
	return v
}

// Views returns both lane views.
func Views(u *domain.User, nowMs int64) map[domain.Lane]LaneView {
	out := make(map[domain.Lane]LaneView, len(domain.Lanes))
	for _, lane := range domain.Lanes {
		out[lane] = View(u, lane, nowMs)
	}
	return out
}
