package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"illyrian_project/internal/catalog"
	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
	"illyrian_project/internal/logger"
)

// WalletsInput is a payout wallet submission.
type WalletsInput struct {
	Network     string `json:"network"`
	USDTWallet  string `json:"usdtWallet"`
	TokenWallet string `json:"tokenWallet"`
}

// SettingsPatch updates only the toggles that are set.
type SettingsPatch struct {
	NotifyMining   *bool `json:"notifyMining"`
	NotifyReferral *bool `json:"notifyReferral"`
	NotifySecurity *bool `json:"notifySecurity"`
}

// Earnings totals what the user has been credited by completed commitments.
type Earnings struct {
	TotalTokens          int64                 `json:"totalTokens"`
	CompletedInvestments int                   `json:"completedInvestments"`
	CompletedMining      int                   `json:"completedMining"`
	LastInvest           *domain.InvestSummary `json:"lastInvest"`
	LastMining           *domain.MiningSummary `json:"lastMining"`
}

// AccountService owns the user document outside of referrals and commitments.
type AccountService struct {
	store     domain.UserStore
	publisher domain.ChangePublisher
	audit     *AuditService
	clock     engine.Clock
	log       *slog.Logger
}

// NewAccountService builds the service. clock must be the engine's clock so
// lane states agree with it; nil means the wall clock.
func NewAccountService(store domain.UserStore, publisher domain.ChangePublisher, audit *AuditService, clock engine.Clock) *AccountService {
	if clock == nil {
		clock = engine.SystemClock
	}
	return &AccountService{
		store:     store,
		publisher: publisher,
		audit:     audit,
		clock:     clock,
		log:       logger.Component("account"),
	}
}

// Signup creates the document of an authenticated identity.
func (s *AccountService) Signup(ctx context.Context, userID, email, username string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrEmailRequired
	}
	username = domain.NormalizeUsername(username)
	if utf8.RuneCountInString(username) < domain.UsernameMinLength {
		return nil, domain.ErrUsernameTooShort
	}

	if _, err := s.store.Get(ctx, userID); err == nil {
		return nil, domain.ErrAccountExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.StorageError(err)
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := NewCode()
		if err != nil {
			return nil, err
		}
		u := &domain.User{
			ID:           userID,
			Email:        email,
			Username:     username,
			ReferralCode: code,
		}

		err = s.store.Create(ctx, u)
		if err == nil {
			signups.Inc()
			s.audit.Log(ctx, userID, domain.AuditActionSignup, domain.AuditCategoryAccount, map[string]interface{}{
				"username": username,
			})
			s.log.Info("account created", "user_id", userID)
			return u, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, domain.StorageError(err)
		}

		// Work out which unique field collided.
		if _, err := s.store.Get(ctx, userID); err == nil {
			return nil, domain.ErrAccountExists
		}
		taken, err := s.store.UsernameTaken(ctx, username)
		if err != nil {
			return nil, domain.StorageError(err)
		}
		if taken {
			return nil, domain.ErrUsernameTaken
		}
	}
	return nil, domain.StorageError(errCodeSpaceExhausted)
}

// UsernameAvailable reports whether username can still be registered.
func (s *AccountService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = domain.NormalizeUsername(username)
	if utf8.RuneCountInString(username) < domain.UsernameMinLength {
		return false, domain.ErrUsernameTooShort
	}
	taken, err := s.store.UsernameTaken(ctx, username)
	if err != nil {
		return false, domain.StorageError(err)
	}
	return !taken, nil
}

func (s *AccountService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	u, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, domain.StorageError(err)
	}
	return u, nil
}

// SaveWallets stores the payout wallets and locks them against edits.
func (s *AccountService) SaveWallets(ctx context.Context, userID string, in WalletsInput) (*domain.User, error) {
	in.Network = strings.TrimSpace(in.Network)
	in.USDTWallet = strings.TrimSpace(in.USDTWallet)
	in.TokenWallet = strings.TrimSpace(in.TokenWallet)
	if in.Network == "" || in.USDTWallet == "" || in.TokenWallet == "" {
		return nil, domain.ErrWalletsIncomplete
	}
	if _, ok := catalog.NetworkByName(in.Network); !ok {
		return nil, domain.ErrUnknownNetwork
	}

	u, err := s.update(ctx, userID, func(u *domain.User) error {
		if u.WalletsLocked {
			return domain.ErrWalletsLocked
		}
		u.Network = in.Network
		u.USDTWallet = in.USDTWallet
		u.TokenWallet = in.TokenWallet
		u.WalletsLocked = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.LogWalletsSave(ctx, userID, in.Network)
	return u, nil
}

// UnlockWallets allows the wallets to be edited again. Refused while a
// commitment is running against them.
func (s *AccountService) UnlockWallets(ctx context.Context, userID string) (*domain.User, error) {
	now := s.clock.Now().UnixMilli()
	u, err := s.update(ctx, userID, func(u *domain.User) error {
		for _, lane := range domain.Lanes {
			if domain.StateAt(u, lane, now) == domain.LaneActive {
				return domain.ErrWalletsInUse
			}
		}
		u.WalletsLocked = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, userID, domain.AuditActionWalletsUnlock, domain.AuditCategoryWallets, nil)
	return u, nil
}

func (s *AccountService) UpdateSettings(ctx context.Context, userID string, patch SettingsPatch) (*domain.User, error) {
	u, err := s.update(ctx, userID, func(u *domain.User) error {
		if patch.NotifyMining != nil {
			u.NotifyMining = *patch.NotifyMining
		}
		if patch.NotifyReferral != nil {
			u.NotifyReferral = *patch.NotifyReferral
		}
		if patch.NotifySecurity != nil {
			u.NotifySecurity = *patch.NotifySecurity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, userID, domain.AuditActionSettings, domain.AuditCategoryAccount, map[string]interface{}{
		"notify_mining":   u.NotifyMining,
		"notify_referral": u.NotifyReferral,
		"notify_security": u.NotifySecurity,
	})
	return u, nil
}

// Earnings sums the last completed investment and mining summaries.
func (s *AccountService) Earnings(ctx context.Context, userID string) (*Earnings, error) {
	u, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	e := &Earnings{
		LastInvest: u.LastInvestSummary,
		LastMining: u.LastMiningSummary,
	}
	if u.LastInvestSummary != nil {
		e.CompletedInvestments = 1
		e.TotalTokens += u.LastInvestSummary.Tokens
	}
	if u.LastMiningSummary != nil {
		e.CompletedMining = 1
		e.TotalTokens += u.LastMiningSummary.Tier
	}
	return e, nil
}

func (s *AccountService) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrAccountNotFound
		}
		return domain.StorageError(err)
	}
	s.audit.Log(ctx, userID, domain.AuditActionDeleteAccount, domain.AuditCategoryAccount, nil)
	s.changed(ctx, userID)
	s.log.Info("account deleted", "user_id", userID)
	return nil
}

// Activity returns the most recent audit entries of the user.
func (s *AccountService) Activity(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.audit.GetUserAuditLogs(ctx, userID, limit)
}

func (s *AccountService) update(ctx context.Context, userID string, fn func(u *domain.User) error) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	var updated *domain.User
	changed, err := s.store.Update(ctx, []string{userID}, func(docs map[string]*domain.User) error {
		u, ok := docs[userID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if err := fn(u); err != nil {
			return err
		}
		updated = u.Clone()
		return nil
	})
	if err != nil {
		return nil, domain.AsStoreError(err)
	}
	if len(changed) > 0 {
		s.changed(ctx, userID)
	}
	return updated, nil
}

func (s *AccountService) changed(ctx context.Context, userID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, userID); err != nil {
		s.log.Warn("failed to publish document change", "user_id", userID, "error", err)
	}
}
