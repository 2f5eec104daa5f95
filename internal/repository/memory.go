package repository

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"illyrian_project/internal/domain"
)

var (
	_ domain.UserStore  = (*MemoryUserStore)(nil)
	_ domain.StatsStore = (*MemoryUserStore)(nil)
	_ domain.AuditStore = (*MemoryAuditStore)(nil)
)

// MemoryUserStore is a process-local document store used for development and
// tests. A single mutex serialises every read-modify-write.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*domain.User)}
}

func (s *MemoryUserStore) Get(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryUserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return domain.ErrConflict
	}
	if s.conflicts(u) {
		return domain.ErrConflict
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryUserStore) IDByReferralCode(_ context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if code != "" && u.ReferralCode == code {
			return id, nil
		}
	}
	return "", domain.ErrNotFound
}

func (s *MemoryUserStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryUserStore) Update(_ context.Context, ids []string, fn domain.UpdateFunc) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids = uniqueSorted(ids)
	docs := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			docs[id] = u.Clone()
		}
	}

	if err := fn(docs); err != nil {
		return nil, err
	}

	for _, id := range ids {
		u, ok := docs[id]
		if !ok {
			continue
		}
		u.ID = id
		if s.conflicts(u) {
			return nil, domain.ErrConflict
		}
	}

	now := time.Now().UTC()
	var changed []string
	for _, id := range ids {
		u, ok := docs[id]
		if !ok || equalDocs(u, s.users[id]) {
			continue
		}
		u.UpdatedAt = now
		s.users[id] = u.Clone()
		changed = append(changed, id)
	}
	return changed, nil
}

func (s *MemoryUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryUserStore) ListExpired(_ context.Context, lane domain.Lane, nowMs int64, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type due struct {
		id  string
		end int64
	}
	var list []due
	for id, u := range s.users {
		c := u.Commitment(lane)
		if c == nil || c.Completed || c.EndTimestamp > nowMs {
			continue
		}
		list = append(list, due{id: id, end: c.EndTimestamp})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].end < list[j].end })

	ids := make([]string, 0, len(list))
	for i, d := range list {
		if limit > 0 && i >= limit {
			break
		}
		ids = append(ids, d.id)
	}
	return ids, nil
}

func (s *MemoryUserStore) Ping(context.Context) error { return nil }

func (s *MemoryUserStore) IDByUsername(_ context.Context, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return id, nil
		}
	}
	return "", domain.ErrNotFound
}

func (s *MemoryUserStore) Stats(_ context.Context, nowMs int64) (*domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &domain.Stats{}
	for _, u := range s.users {
		st.TotalUsers++
		if u.WalletsLocked {
			st.WalletsLocked++
		}
		if u.ReferredBy != nil {
			st.ReferredUsers++
		}
		st.BonusesHeld += int64(u.ReferralBonuses)

		if c := u.Commitment(domain.LaneInvest); c != nil {
			switch {
			case c.Completed:
				st.CompletedInvestments++
			case c.EndTimestamp > nowMs:
				st.ActiveInvestments++
			default:
				st.PendingInvestments++
			}
		}
		if c := u.Commitment(domain.LaneMining); c != nil {
			switch {
			case c.Completed:
				st.CompletedMining++
			case c.EndTimestamp > nowMs:
				st.ActiveMining++
			default:
				st.PendingMining++
			}
		}
	}
	return st, nil
}

// conflicts reports whether u would break username or referral code uniqueness.
func (s *MemoryUserStore) conflicts(u *domain.User) bool {
	for id, other := range s.users {
		if id == u.ID {
			continue
		}
		if u.Username != "" && strings.EqualFold(other.Username, u.Username) {
			return true
		}
		if u.ReferralCode != "" && other.ReferralCode == u.ReferralCode {
			return true
		}
	}
	return false
}

func equalDocs(a, b *domain.User) bool {
	if b == nil {
		return false
	}
	x, y := a.Clone(), b.Clone()
	x.UpdatedAt, y.UpdatedAt = time.Time{}, time.Time{}
	return reflect.DeepEqual(x, y)
}

// MemoryAuditStore keeps audit entries in process memory.
type MemoryAuditStore struct {
	mu   sync.Mutex
	seq  int64
	logs []*domain.AuditLog
}

func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) Create(_ context.Context, log *domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	entry := *log
	entry.ID = s.seq
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.logs = append(s.logs, &entry)
	return nil
}

func (s *MemoryAuditStore) GetByUserID(_ context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.AuditLog
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].UserID != userID {
			continue
		}
		entry := *s.logs[i]
		out = append(out, &entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
