// Package catalog holds the static investment offers, mining tiers and
// payout networks. The tables are fixed at build time and never mutated.
package catalog

import (
	"time"

	"illyrian_project/internal/domain"
)

// Offer is an investment tier.
type Offer struct {
	ID            int    `json:"id"`
	Range         string `json:"range"`
	Tokens        int64  `json:"tokens"`
	DurationHours int    `json:"durationHours"`
}

func (o Offer) Duration() time.Duration {
	return time.Duration(o.DurationHours) * time.Hour
}

// DisplayTime is the label shown on the offer card, e.g. "36h".
func (o Offer) DisplayTime() string {
	return itoa(int64(o.DurationHours)) + "h"
}

// MiningTier is identified by its amount.
type MiningTier struct {
	Amount       int64 `json:"amount"`
	Fee          int64 `json:"fee"`
	DurationSecs int64 `json:"durationSecs"`
}

func (m MiningTier) Duration() time.Duration {
	return time.Duration(m.DurationSecs) * time.Second
}

func (m MiningTier) DisplayTime() string {
	days := m.DurationSecs / 86400
	if days == 1 {
		return "1 day"
	}
	return itoa(days) + " days"
}

// MiningDurationSecs is shared by every mining tier (4 days).
const MiningDurationSecs int64 = 345600

var offers = []Offer{
	{ID: 1, Range: "20$", Tokens: 200, DurationHours: 24},
	{ID: 2, Range: "50$", Tokens: 400, DurationHours: 24},
	{ID: 3, Range: "100$", Tokens: 800, DurationHours: 36},
	{ID: 4, Range: "200$", Tokens: 1600, DurationHours: 36},
	{ID: 5, Range: "400$", Tokens: 3200, DurationHours: 48},
	{ID: 6, Range: "800$", Tokens: 4000, DurationHours: 48},
	{ID: 7, Range: "1000$", Tokens: 8000, DurationHours: 60},
	{ID: 8, Range: "1200$", Tokens: 25000, DurationHours: 60},
}

var miningTiers = []MiningTier{
	{Amount: 200, Fee: 20, DurationSecs: MiningDurationSecs},
	{Amount: 400, Fee: 40, DurationSecs: MiningDurationSecs},
	{Amount: 800, Fee: 80, DurationSecs: MiningDurationSecs},
	{Amount: 1200, Fee: 120, DurationSecs: MiningDurationSecs},
}

func Offers() []Offer {
	return append([]Offer(nil), offers...)
}

func MiningTiers() []MiningTier {
	return append([]MiningTier(nil), miningTiers...)
}

func OfferByID(id int) (Offer, bool) {
	for _, o := range offers {
		if o.ID == id {
			return o, true
		}
	}
	return Offer{}, false
}

func MiningTierByAmount(amount int64) (MiningTier, bool) {
	for _, m := range miningTiers {
		if m.Amount == amount {
			return m, true
		}
	}
	return MiningTier{}, false
}

// Tier is a lane-neutral catalog entry.
type Tier struct {
	Lane           domain.Lane
	ID             int64
	Label          string
	RewardTokens   int64
	Fee            int64
	BaseDurationMs int64

	Offer  *Offer
	Mining *MiningTier
}

// DisplayTime is the undiscounted duration label of the tier.
func (t Tier) DisplayTime() string {
	switch {
	case t.Offer != nil:
		return t.Offer.DisplayTime()
	case t.Mining != nil:
		return t.Mining.DisplayTime()
	}
	return ""
}

// Lookup resolves a tier id on a lane: offer id for invest, amount for mining.
func Lookup(lane domain.Lane, id int64) (Tier, bool) {
	switch lane {
	case domain.LaneInvest:
		o, ok := OfferByID(int(id))
		if !ok {
			return Tier{}, false
		}
		return Tier{
			Lane:           lane,
			ID:             id,
			Label:          o.Range,
			RewardTokens:   o.Tokens,
			BaseDurationMs: o.Duration().Milliseconds(),
			Offer:          &o,
		}, true
	case domain.LaneMining:
		m, ok := MiningTierByAmount(id)
		if !ok {
			return Tier{}, false
		}
		return Tier{
			Lane:           lane,
			ID:             id,
			Label:          "Tier " + itoa(m.Amount),
			RewardTokens:   m.Amount,
			Fee:            m.Fee,
			BaseDurationMs: m.Duration().Milliseconds(),
			Mining:         &m,
		}, true
	}
	return Tier{}, false
}
