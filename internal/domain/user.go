package domain

import (
	"context"
	"strings"
	"time"
)

const (
	ReferralCodeLength = 8
	MaxReferralBonuses = 2
	UsernameMinLength  = 3
)

// Settings are the user's notification toggles.
type Settings struct {
	NotifyMining   bool `json:"notifyMining"`
	NotifyReferral bool `json:"notifyReferral"`
	NotifySecurity bool `json:"notifySecurity"`
}

// User is the per-user document. Every field the dashboard shows lives here.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`

	Network       string `json:"network"`
	USDTWallet    string `json:"usdtWallet"`
	TokenWallet   string `json:"tokenWallet"`
	WalletsLocked bool   `json:"walletsLocked"`

	ReferralCode    string  `json:"referralCode"`
	ReferralBonuses int     `json:"referralBonuses"`
	ReferredBy      *string `json:"referredBy"`

	SelectedOffer     *SelectedOffer `json:"selectedOffer"`
	OfferEndTime      *int64         `json:"offerEndTime"`
	InvestCompleted   bool           `json:"investCompleted"`
	LastInvestSummary *InvestSummary `json:"lastInvestSummary"`

	Mining            *Mining        `json:"mining"`
	MiningCompleted   bool           `json:"miningCompleted"`
	LastMiningSummary *MiningSummary `json:"lastMiningSummary"`

	Settings

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.ReferredBy != nil {
		v := *u.ReferredBy
		c.ReferredBy = &v
	}
	if u.SelectedOffer != nil {
		v := *u.SelectedOffer
		c.SelectedOffer = &v
	}
	if u.OfferEndTime != nil {
		v := *u.OfferEndTime
		c.OfferEndTime = &v
	}
	if u.LastInvestSummary != nil {
		v := *u.LastInvestSummary
		c.LastInvestSummary = &v
	}
	if u.Mining != nil {
		v := *u.Mining
		c.Mining = &v
	}
	if u.LastMiningSummary != nil {
		v := *u.LastMiningSummary
		c.LastMiningSummary = &v
	}
	return &c
}

// NormalizeUsername lowercases and trims a username.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeReferralCode trims and uppercases a referral code as typed by a user.
func NormalizeReferralCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// UpdateFunc mutates documents locked by UserStore.Update, keyed by id.
// Ids that do not exist are absent from the map. Returning an error aborts
// the whole update.
type UpdateFunc func(docs map[string]*User) error

// UserStore is the user document store.
type UserStore interface {
	Get(ctx context.Context, id string) (*User, error)
	// Create fails with ErrConflict when the id, username or referral code is taken.
	Create(ctx context.Context, u *User) error
	IDByReferralCode(ctx context.Context, code string) (string, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	// Update locks ids, applies fn and writes every modified document in one
	// atomic step. It returns the ids that actually changed.
	Update(ctx context.Context, ids []string, fn UpdateFunc) ([]string, error)
	Delete(ctx context.Context, id string) error
	// ListExpired returns users whose commitment on lane ended at or before
	// nowMs and has not been marked completed.
	ListExpired(ctx context.Context, lane Lane, nowMs int64, limit int) ([]string, error)
	Ping(ctx context.Context) error
}

// ChangePublisher announces that a user document changed.
type ChangePublisher interface {
	Publish(ctx context.Context, userID string) error
}
