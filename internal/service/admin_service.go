package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/engine"
)

// AdminService answers operator queries about accounts and commitments.
type AdminService struct {
	users domain.UserStore
	stats domain.StatsStore
	clock engine.Clock
}

func NewAdminService(users domain.UserStore, stats domain.StatsStore, clock engine.Clock) *AdminService {
	if clock == nil {
		clock = engine.SystemClock
	}
	return &AdminService{users: users, stats: stats, clock: clock}
}

// GetStats returns platform statistics
func (s *AdminService) GetStats(ctx context.Context) (*domain.Stats, error) {
	st, err := s.stats.Stats(ctx, s.clock.Now().UnixMilli())
	if err != nil {
		return nil, domain.StorageError(err)
	}
	return st, nil
}

// UserInfo is one account as the operator sees it.
type UserInfo struct {
	User  *domain.User                      `json:"user"`
	Lanes map[domain.Lane]engine.LaneView `json:"lanes"`
}

// GetUser finds an account by id, @username or referral code.
func (s *AdminService) GetUser(ctx context.Context, identifier string) (*UserInfo, error) {
	id, err := s.ResolveUserIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, domain.StorageError(err)
	}
	return &UserInfo{User: u, Lanes: engine.Views(u, s.clock.Now().UnixMilli())}, nil
}

// ResolveUserIdentifier maps an operator-supplied identifier to a user id.
// "@name" is always a username; otherwise referral code, username and id are
// tried in that order.
func (s *AdminService) ResolveUserIdentifier(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", domain.ErrAccountNotFound
	}

	if name, ok := strings.CutPrefix(identifier, "@"); ok {
		return s.lookup(s.stats.IDByUsername(ctx, name))
	}

	if code := domain.NormalizeReferralCode(identifier); utf8.RuneCountInString(code) == domain.ReferralCodeLength {
		id, err := s.users.IDByReferralCode(ctx, code)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", domain.StorageError(err)
		}
	}

	id, err := s.stats.IDByUsername(ctx, identifier)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", domain.StorageError(err)
	}
	return identifier, nil
}

func (s *AdminService) lookup(id string, err error) (string, error) {
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrAccountNotFound
		}
		return "", domain.StorageError(err)
	}
	return id, nil
}
