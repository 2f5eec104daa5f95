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

func newAccountFixture(t *testing.T) (*repository.MemoryUserStore, *AccountService) {
	t.Helper()
	store := repository.NewMemoryUserStore()
	audit := NewAuditService(repository.NewMemoryAuditStore())
	return store, NewAccountService(store, nil, audit, nil)
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	store, svc := newAccountFixture(t)

	u, err := svc.Signup(ctx, "u1", "alice@example.com", "  Alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Len(t, u.ReferralCode, domain.ReferralCodeLength)
	assert.False(t, u.WalletsLocked)

	stored := getUser(t, store, "u1")
	assert.Equal(t, u.ReferralCode, stored.ReferralCode)

	tests := []struct {
		name     string
		id       string
		email    string
		username string
		want     *domain.Error
	}{
		{name: "no identity", id: "", email: "x@example.com", username: "bobby", want: domain.ErrUnauthenticated},
		{name: "no email", id: "u2", email: " ", username: "bobby", want: domain.ErrEmailRequired},
		{name: "short username", id: "u2", email: "x@example.com", username: "ab", want: domain.ErrUsernameTooShort},
		{name: "two accented letters", id: "u2", email: "x@example.com", username: "éé", want: domain.ErrUsernameTooShort},
		{name: "taken username", id: "u2", email: "x@example.com", username: "ALICE", want: domain.ErrUsernameTaken},
		{name: "duplicate signup", id: "u1", email: "alice@example.com", username: "other", want: domain.ErrAccountExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.id, tt.email, tt.username)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUsernameAvailable(t *testing.T) {
	ctx := context.Background()
	_, svc := newAccountFixture(t)
	_, err := svc.Signup(ctx, "u1", "alice@example.com", "alice")
	require.NoError(t, err)

	ok, err := svc.UsernameAvailable(ctx, "Alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.UsernameAvailable(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.UsernameAvailable(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrUsernameTooShort)
}

func TestSaveWallets(t *testing.T) {
	ctx := context.Background()
	store, svc := newAccountFixture(t)
	addUser(t, store, "u1", "AAAA1111")

	valid := WalletsInput{Network: "USDT/TRC20", USDTWallet: "TWallet", TokenWallet: "0xToken"}

	_, err := svc.SaveWallets(ctx, "u1", WalletsInput{Network: "USDT/TRC20", USDTWallet: "TWallet"})
	assert.ErrorIs(t, err, domain.ErrWalletsIncomplete)

	_, err = svc.SaveWallets(ctx, "u1", WalletsInput{Network: "BTC", USDTWallet: "x", TokenWallet: "y"})
	assert.ErrorIs(t, err, domain.ErrUnknownNetwork)

	u, err := svc.SaveWallets(ctx, "u1", valid)
	require.NoError(t, err)
	assert.True(t, u.WalletsLocked)
	assert.Equal(t, "TWallet", getUser(t, store, "u1").USDTWallet)

	_, err = svc.SaveWallets(ctx, "u1", valid)
	assert.ErrorIs(t, err, domain.ErrWalletsLocked)

	_, err = svc.SaveWallets(ctx, "ghost", valid)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestUnlockWallets(t *testing.T) {
	ctx := context.Background()
	store, svc := newAccountFixture(t)

	running := time.Now().Add(time.Hour).UnixMilli()
	require.NoError(t, store.Create(ctx, &domain.User{
		ID:            "busy",
		Username:      "busy",
		WalletsLocked: true,
		Mining:        &domain.Mining{Amount: 200, Tier: 200, Fee: 20, MiningEndTime: running},
	}))
	ended := time.Now().Add(-time.Hour).UnixMilli()
	require.NoError(t, store.Create(ctx, &domain.User{
		ID:            "done",
		Username:      "done",
		WalletsLocked: true,
		SelectedOffer: &domain.SelectedOffer{ID: 1, Range: "20$", Tokens: 200},
		OfferEndTime:  &ended,
	}))

	_, err := svc.UnlockWallets(ctx, "busy")
	assert.ErrorIs(t, err, domain.ErrWalletsInUse)
	assert.True(t, getUser(t, store, "busy").WalletsLocked)

	u, err := svc.UnlockWallets(ctx, "done")
	require.NoError(t, err)
	assert.False(t, u.WalletsLocked)
}

func TestUnlockWallets_UsesInjectedClock(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryUserStore()
	past := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewAccountService(store, nil, nil, engine.ClockFunc(func() time.Time { return past }))

	// Already over by the wall clock, still running by the injected one.
	end := past.Add(time.Hour).UnixMilli()
	require.NoError(t, store.Create(ctx, &domain.User{
		ID:            "u1",
		Username:      "u1",
		WalletsLocked: true,
		SelectedOffer: &domain.SelectedOffer{ID: 1, Range: "20$", Tokens: 200},
		OfferEndTime:  &end,
	}))

	_, err := svc.UnlockWallets(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrWalletsInUse)
	assert.True(t, getUser(t, store, "u1").WalletsLocked)
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	store, svc := newAccountFixture(t)
	addUser(t, store, "u1", "AAAA1111")

	on := true
	u, err := svc.UpdateSettings(ctx, "u1", SettingsPatch{NotifyReferral: &on})
	require.NoError(t, err)
	assert.True(t, u.NotifyReferral)
	assert.False(t, u.NotifyMining)
}

func TestEarnings(t *testing.T) {
	ctx := context.Background()
	store, svc := newAccountFixture(t)
	require.NoError(t, store.Create(ctx, &domain.User{
		ID:                "u1",
		Username:          "u1",
		LastInvestSummary: &domain.InvestSummary{Amount: "50$", Tokens: 400, EndedAt: 1},
		LastMiningSummary: &domain.MiningSummary{Tier: 800, Fee: 80, EndedAt: 2},
	}))

	e, err := svc.Earnings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), e.TotalTokens)
	assert.Equal(t, 1, e.CompletedInvestments)
	assert.Equal(t, 1, e.CompletedMining)
}

func TestDeleteAndActivity(t *testing.T) {
	ctx := context.Background()
	_, svc := newAccountFixture(t)
	_, err := svc.Signup(ctx, "u1", "alice@example.com", "alice")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "u1"))
	assert.ErrorIs(t, svc.Delete(ctx, "u1"), domain.ErrAccountNotFound)

	_, err = svc.Profile(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	logs, err := svc.Activity(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.AuditActionDeleteAccount, logs[0].Action)
	assert.Equal(t, domain.AuditActionSignup, logs[1].Action)
}
