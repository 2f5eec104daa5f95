package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"
	"unicode/utf8"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/logger"
	"illyrian_project/internal/notify"
)

const (
	referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAttempts     = 5
)

var errCodeSpaceExhausted = errors.New("could not allocate a unique referral code")

// Dispatcher hands operator notifications off for background delivery.
type Dispatcher interface {
	Dispatch(msg notify.Message)
}

// ReferralResult is returned to the caller of ApplyReferral.
type ReferralResult struct {
	Success bool   `json:"success"`
	Bonus   int    `json:"bonus"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ReferralOverview is the referral card of the dashboard.
type ReferralOverview struct {
	Code         string  `json:"code"`
	Bonuses      int     `json:"bonuses"`
	MaxBonuses   int     `json:"maxBonuses"`
	BonusPercent int64   `json:"bonusPercent"`
	ReferredBy   *string `json:"referredBy"`
}

// ReferralService redeems referral codes. Each redemption credits one timer
// bonus to both the redeemer and the code owner, capped per user.
type ReferralService struct {
	store      domain.UserStore
	publisher  domain.ChangePublisher
	dispatcher Dispatcher
	audit      *AuditService
	log        *slog.Logger
}

func NewReferralService(store domain.UserStore, publisher domain.ChangePublisher, dispatcher Dispatcher, audit *AuditService) *ReferralService {
	return &ReferralService{
		store:      store,
		publisher:  publisher,
		dispatcher: dispatcher,
		audit:      audit,
		log:        logger.Component("referral"),
	}
}

// ApplyReferral redeems code for callerID. Nothing is written unless every
// check passes.
func (s *ReferralService) ApplyReferral(ctx context.Context, callerID, rawCode string) (res *ReferralResult, err error) {
	defer func() {
		referralApplications.WithLabelValues(resultLabel(err)).Inc()
	}()

	if callerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	code := domain.NormalizeReferralCode(rawCode)
	if utf8.RuneCountInString(code) != domain.ReferralCodeLength {
		return nil, domain.ErrInvalidReferralCode
	}

	// Resolved outside the transaction so both rows can be locked together.
	// The owner is re-checked on the locked document.
	referrerID, err := s.store.IDByReferralCode(ctx, code)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.StorageError(err)
	}

	var referee *domain.User
	_, err = s.store.Update(ctx, []string{callerID, referrerID}, func(docs map[string]*domain.User) error {
		caller, ok := docs[callerID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if caller.ReferredBy != nil && *caller.ReferredBy != "" {
			return domain.ErrAlreadyReferred
		}
		if code == caller.ReferralCode {
			return domain.ErrOwnReferralCode
		}
		referrer, ok := docs[referrerID]
		if referrerID == "" || !ok || referrer.ReferralCode != code {
			return domain.ErrReferralNotFound
		}

		referrer.ReferralBonuses = min(referrer.ReferralBonuses+1, domain.MaxReferralBonuses)
		caller.ReferralBonuses = min(caller.ReferralBonuses+1, domain.MaxReferralBonuses)
		redeemed := code
		caller.ReferredBy = &redeemed
		referee = caller.Clone()
		return nil
	})
	if err != nil {
		return nil, domain.AsStoreError(err)
	}

	s.changed(ctx, callerID)
	s.changed(ctx, referrerID)
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(notify.ReferralApplied(referee, referrerID, code, time.Now().UTC()))
	}
	s.audit.LogReferralApply(ctx, callerID, referrerID, code, referee.ReferralBonuses)
	s.log.Info("referral applied", "user_id", callerID, "referrer_id", referrerID, "bonus", referee.ReferralBonuses)

	return &ReferralResult{
		Success: true,
		Bonus:   referee.ReferralBonuses,
		Message: domain.StatusReferralApplied.Message,
		Code:    domain.StatusReferralApplied.Code,
	}, nil
}

// EnsureCode returns the user's referral code, issuing one if the document
// has none yet.
func (s *ReferralService) EnsureCode(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthenticated
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		candidate, err := NewCode()
		if err != nil {
			return "", err
		}

		var code string
		_, err = s.store.Update(ctx, []string{userID}, func(docs map[string]*domain.User) error {
			u, ok := docs[userID]
			if !ok {
				return domain.ErrAccountNotFound
			}
			if u.ReferralCode == "" {
				u.ReferralCode = candidate
			}
			code = u.ReferralCode
			return nil
		})
		if errors.Is(err, domain.ErrConflict) {
			s.log.Debug("referral code collision", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return "", domain.AsStoreError(err)
		}

		if code == candidate {
			s.changed(ctx, userID)
			s.audit.Log(ctx, userID, domain.AuditActionReferralCode, domain.AuditCategoryReferral, map[string]interface{}{
				"code": code,
			})
		}
		return code, nil
	}
	return "", domain.StorageError(errCodeSpaceExhausted)
}

// Overview returns the caller's code and bonus state.
func (s *ReferralService) Overview(ctx context.Context, userID string) (*ReferralOverview, error) {
	code, err := s.EnsureCode(ctx, userID)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, domain.StorageError(err)
	}
	return &ReferralOverview{
		Code:         code,
		Bonuses:      u.ReferralBonuses,
		MaxBonuses:   domain.MaxReferralBonuses,
		BonusPercent: domain.DiscountPercent(u.ReferralBonuses),
		ReferredBy:   u.ReferredBy,
	}, nil
}

func (s *ReferralService) changed(ctx context.Context, userID string) {
	if s.publisher == nil || userID == "" {
		return
	}
	if err := s.publisher.Publish(ctx, userID); err != nil {
		s.log.Warn("failed to publish document change", "user_id", userID, "error", err)
	}
}

// NewCode returns a random referral code of ReferralCodeLength characters.
func NewCode() (string, error) {
	limit := big.NewInt(int64(len(referralAlphabet)))
	b := make([]byte, domain.ReferralCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		b[i] = referralAlphabet[n.Int64()]
	}
	return string(b), nil
}
