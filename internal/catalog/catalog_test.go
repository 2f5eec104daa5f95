package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illyrian_project/internal/domain"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name       string
		lane       domain.Lane
		id         int64
		ok         bool
		reward     int64
		fee        int64
		durationMs int64
	}{
		{name: "fifty dollar offer", lane: domain.LaneInvest, id: 2, ok: true, reward: 400, durationMs: (24 * time.Hour).Milliseconds()},
		{name: "top offer", lane: domain.LaneInvest, id: 8, ok: true, reward: 25000, durationMs: (60 * time.Hour).Milliseconds()},
		{name: "unknown offer", lane: domain.LaneInvest, id: 9},
		{name: "mining 800", lane: domain.LaneMining, id: 800, ok: true, reward: 800, fee: 80, durationMs: 345_600_000},
		{name: "mining by index is not a tier", lane: domain.LaneMining, id: 2},
		{name: "unknown lane", lane: domain.Lane("staking"), id: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, ok := Lookup(tt.lane, tt.id)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.reward, tier.RewardTokens)
			assert.Equal(t, tt.fee, tier.Fee)
			assert.Equal(t, tt.durationMs, tier.BaseDurationMs)
		})
	}
}

func TestOffers_ReturnsCopy(t *testing.T) {
	o := Offers()
	require.Len(t, o, 8)
	o[0].Tokens = 1

	first, ok := OfferByID(1)
	require.True(t, ok)
	assert.Equal(t, int64(200), first.Tokens)
}

func TestMiningTiers(t *testing.T) {
	tiers := MiningTiers()
	require.Len(t, tiers, 4)
	for _, m := range tiers {
		assert.Equal(t, m.Amount/10, m.Fee)
		assert.Equal(t, MiningDurationSecs, m.DurationSecs)
	}
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, 0x00ff00, ColorFor("USDT/TRC20"))
	assert.Equal(t, 0x0000ff, ColorFor("USDT/SOL"))
	assert.Equal(t, DefaultColor, ColorFor("BTC"))
}

func TestDisplayTime(t *testing.T) {
	inv, ok := Lookup(domain.LaneInvest, 3)
	require.True(t, ok)
	assert.Equal(t, "36h", inv.DisplayTime())

	mine, ok := Lookup(domain.LaneMining, 800)
	require.True(t, ok)
	assert.Equal(t, "4 days", mine.DisplayTime())
}
