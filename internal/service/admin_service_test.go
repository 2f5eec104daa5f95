package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
	"illyrian_project/internal/repository"
)

func TestAdminService(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryUserStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := engine.ClockFunc(func() time.Time { return now })

	past, future := now.Add(-time.Hour).UnixMilli(), now.Add(time.Hour).UnixMilli()
	ref := "AAAA1111"
	require.NoError(t, store.Create(ctx, &domain.User{
		ID: "u1", Username: "alice", ReferralCode: "AAAA1111", WalletsLocked: true, ReferralBonuses: 1,
		SelectedOffer: &domain.SelectedOffer{ID: 2, Range: "50$", Tokens: 400}, OfferEndTime: &future,
	}))
	require.NoError(t, store.Create(ctx, &domain.User{
		ID: "u2", Username: "bobby", ReferralCode: "BBBB2222", ReferredBy: &ref, ReferralBonuses: 1,
		Mining: &domain.Mining{Amount: 200, Tier: 200, MiningEndTime: past},
	}))
	require.NoError(t, store.Create(ctx, &domain.User{
		ID: "u3", Username: "carol", ReferralCode: "CCCC3333",
		SelectedOffer: &domain.SelectedOffer{ID: 1}, OfferEndTime: &past, InvestCompleted: true,
	}))

	admin := NewAdminService(store, store, clock)

	t.Run("stats", func(t *testing.T) {
		st, err := admin.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, &domain.Stats{
			TotalUsers:           3,
			WalletsLocked:        1,
			ReferredUsers:        1,
			BonusesHeld:          2,
			ActiveInvestments:    1,
			PendingMining:        1,
			CompletedInvestments: 1,
		}, st)
	})

	tests := []struct {
		name       string
		identifier string
		wantID     string
		wantErr    error
	}{
		{name: "by id", identifier: "u2", wantID: "u2"},
		{name: "by @username", identifier: "@Alice", wantID: "u1"},
		{name: "by bare username", identifier: "carol", wantID: "u3"},
		{name: "by referral code", identifier: "bbbb2222", wantID: "u2"},
		{name: "unknown @username", identifier: "@nobody", wantErr: domain.ErrAccountNotFound},
		{name: "unknown id", identifier: "missing", wantErr: domain.ErrAccountNotFound},
		{name: "empty", identifier: " ", wantErr: domain.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := admin.GetUser(ctx, tt.identifier)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, info.User.ID)
			assert.Len(t, info.Lanes, 2)
		})
	}

	t.Run("lane views use the clock", func(t *testing.T) {
		info, err := admin.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, domain.LaneActive, info.Lanes[domain.LaneInvest].State)
		assert.Equal(t, int64(time.Hour/time.Millisecond), info.Lanes[domain.LaneInvest].RemainingMs)
		assert.Equal(t, domain.LaneIdle, info.Lanes[domain.LaneMining].State)
	})
}
