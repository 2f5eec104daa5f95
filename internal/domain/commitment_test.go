package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveDurationMs(t *testing.T) {
	const day = int64(24 * 60 * 60 * 1000)

	tests := []struct {
		name    string
		bonuses int
		want    int64
	}{
		{name: "no bonus", bonuses: 0, want: day},
		{name: "one bonus", bonuses: 1, want: day * 9 / 10},
		{name: "two bonuses", bonuses: 2, want: day * 8 / 10},
		{name: "capped above two", bonuses: 5, want: day * 8 / 10},
		{name: "negative treated as zero", bonuses: -1, want: day},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveDurationMs(day, tt.bonuses))
		})
	}
}

func TestEffectiveDurationMs_Scenario(t *testing.T) {
	// 24h tier: one bonus runs 21.6h, two bonuses 19.2h.
	assert.Equal(t, int64(77_760_000), EffectiveDurationMs(86_400_000, 1))
	assert.Equal(t, int64(69_120_000), EffectiveDurationMs(86_400_000, 2))
}

func TestPercentElapsed(t *testing.T) {
	tests := []struct {
		name      string
		remaining int64
		total     int64
		want      int
	}{
		{name: "just started", remaining: 1000, total: 1000, want: 0},
		{name: "floor of remaining share", remaining: 999, total: 1000, want: 1},
		{name: "half", remaining: 500, total: 1000, want: 50},
		{name: "expired", remaining: 0, total: 1000, want: 100},
		{name: "overdue", remaining: -5, total: 1000, want: 100},
		{name: "remaining above total clamps", remaining: 5000, total: 1000, want: 0},
		{name: "zero total", remaining: 10, total: 0, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentElapsed(tt.remaining, tt.total))
		})
	}
}

func TestStateAt(t *testing.T) {
	end := int64(10_000)

	idle := &User{}
	assert.Equal(t, LaneIdle, StateAt(idle, LaneInvest, 0))
	assert.Equal(t, LaneIdle, StateAt(idle, LaneMining, 0))

	active := &User{SelectedOffer: &SelectedOffer{ID: 2}, OfferEndTime: &end}
	assert.Equal(t, LaneActive, StateAt(active, LaneInvest, end-1))
	assert.Equal(t, LaneCompleted, StateAt(active, LaneInvest, end))
	assert.Equal(t, LaneIdle, StateAt(active, LaneMining, end))

	flagged := &User{Mining: &Mining{Tier: 200, MiningEndTime: end}, MiningCompleted: true}
	assert.Equal(t, LaneCompleted, StateAt(flagged, LaneMining, 0))
}

func TestUser_Commitment(t *testing.T) {
	end := int64(42)
	u := &User{
		SelectedOffer: &SelectedOffer{ID: 2, Range: "50$", Tokens: 400, DurationHours: 24, EffectiveDurationMs: 77_760_000},
		OfferEndTime:  &end,
		Mining:        &Mining{Amount: 400, Fee: 40, Tier: 400, MiningEndTime: 99, EffectiveDurationMs: 10},
	}

	inv := u.Commitment(LaneInvest)
	require.NotNil(t, inv)
	assert.Equal(t, int64(2), inv.TierID)
	assert.Equal(t, "50$", inv.Amount)
	assert.Equal(t, int64(400), inv.RewardTokens)
	assert.Equal(t, end, inv.EndTimestamp)

	mine := u.Commitment(LaneMining)
	require.NotNil(t, mine)
	assert.Equal(t, int64(40), mine.Fee)
	assert.Equal(t, "400", mine.Amount)
	assert.Equal(t, int64(99), mine.EndTimestamp)
}

func TestUser_CloneIsDeep(t *testing.T) {
	ref := "ABCDEFGH"
	end := int64(1)
	u := &User{ReferredBy: &ref, OfferEndTime: &end, SelectedOffer: &SelectedOffer{ID: 1}}

	c := u.Clone()
	*c.ReferredBy = "ZZZZZZZZ"
	*c.OfferEndTime = 2
	c.SelectedOffer.ID = 7

	assert.Equal(t, "ABCDEFGH", *u.ReferredBy)
	assert.Equal(t, int64(1), *u.OfferEndTime)
	assert.Equal(t, 1, u.SelectedOffer.ID)
}

func TestParseLane(t *testing.T) {
	l, err := ParseLane("investment")
	require.NoError(t, err)
	assert.Equal(t, LaneInvest, l)

	l, err = ParseLane("mining")
	require.NoError(t, err)
	assert.Equal(t, LaneMining, l)

	_, err = ParseLane("staking")
	assert.ErrorIs(t, err, ErrUnknownLane)
}

func TestAsStoreError(t *testing.T) {
	assert.Nil(t, AsStoreError(nil))
	assert.ErrorIs(t, AsStoreError(ErrLaneBusy), ErrLaneBusy)
	assert.Equal(t, KindStorage, KindOf(AsStoreError(assert.AnError)))
	assert.ErrorIs(t, AsStoreError(assert.AnError), assert.AnError)
}
