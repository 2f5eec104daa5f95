// Package engine runs the two timed commitment lanes (investment and mining)
// of a user document: confirm, expire, reset.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"illyrian_project/internal/catalog"
	"illyrian_project/internal/domain"
	"illyrian_project/internal/logger"
	"illyrian_project/internal/notify"
)

// Dispatcher hands operator notifications off for background delivery.
type Dispatcher interface {
	Dispatch(msg notify.Message)
}

// Auditor records user actions. Failures are handled by the implementation.
type Auditor interface {
	Log(ctx context.Context, userID, action, category string, details map[string]interface{})
}

// Outcome is the result of a lane operation.
type Outcome struct {
	Status       domain.Status `json:"status"`
	Transitioned bool          `json:"transitioned"`
	View         LaneView      `json:"view"`
	User         *domain.User  `json:"-"`
}

type Engine struct {
	store      domain.UserStore
	publisher  domain.ChangePublisher
	dispatcher Dispatcher
	auditor    Auditor
	clock      Clock
	log        *slog.Logger
}

type Option func(*Engine)

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithPublisher(p domain.ChangePublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

func WithAuditor(a Auditor) Option {
	return func(e *Engine) { e.auditor = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func New(store domain.UserStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock: SystemClock,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Component("engine")
	}
	return e
}

// Clock returns the engine's time source.
func (e *Engine) Clock() Clock { return e.clock }

// Start confirms tierID on lane. The duration is discounted by the user's
// referral bonuses, which are consumed in the same write.
func (e *Engine) Start(ctx context.Context, userID string, lane domain.Lane, tierID int64) (*Outcome, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !validLane(lane) {
		return nil, domain.ErrUnknownLane
	}
	tier, ok := catalog.Lookup(lane, tierID)
	if !ok {
		return nil, domain.ErrUnknownTier
	}

	now := e.clock.Now()
	nowMs := now.UnixMilli()
	var (
		updated     *domain.User
		bonusesUsed int
		effective   int64
	)
	_, err := e.store.Update(ctx, []string{userID}, func(docs map[string]*domain.User) error {
		u, ok := docs[userID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if !u.WalletsLocked {
			return domain.ErrWalletsNotSaved
		}
		switch domain.StateAt(u, lane, nowMs) {
		case domain.LaneActive:
			return domain.ErrLaneBusy
		case domain.LaneCompleted:
			return domain.ErrLaneNotReset
		}

		bonusesUsed = u.ReferralBonuses
		effective = domain.EffectiveDurationMs(tier.BaseDurationMs, u.ReferralBonuses)
		end := nowMs + effective

		switch lane {
		case domain.LaneInvest:
			o := tier.Offer
			u.SelectedOffer = &domain.SelectedOffer{
				ID:                  o.ID,
				Range:               o.Range,
				Tokens:              o.Tokens,
				DurationHours:       o.DurationHours,
				EffectiveDurationMs: effective,
			}
			u.OfferEndTime = &end
			u.InvestCompleted = false
		case domain.LaneMining:
			m := tier.Mining
			u.Mining = &domain.Mining{
				Amount:              m.Amount,
				DurationSecs:        m.DurationSecs,
				Fee:                 m.Fee,
				Tier:                m.Amount,
				MiningEndTime:       end,
				EffectiveDurationMs: effective,
			}
			u.MiningCompleted = false
		}
		u.ReferralBonuses = 0
		updated = u.Clone()
		return nil
	})
	if err != nil {
		return nil, domain.AsStoreError(err)
	}

	e.changed(ctx, userID)
	e.dispatch(notify.CommitmentStarted(updated, tier, now))
	e.audit(ctx, userID, domain.AuditActionCommitmentStart, map[string]interface{}{
		"lane":                  string(lane),
		"tier_id":               tierID,
		"bonuses_used":          bonusesUsed,
		"effective_duration_ms": effective,
	})
	commitmentEvents.WithLabelValues(string(lane), "started").Inc()
	e.log.Info("commitment started", "user_id", userID, "lane", lane, "tier_id", tierID, "duration_ms", effective)

	status := domain.StatusInvestStarted
	if lane == domain.LaneMining {
		status = domain.StatusMiningStarted
	}
	return &Outcome{
		Status:       status,
		Transitioned: true,
		View:         View(updated, lane, nowMs),
		User:         updated,
	}, nil
}

// Complete persists the completion of an expired commitment. It is
// idempotent: only the call that flips the flag writes and notifies.
func (e *Engine) Complete(ctx context.Context, userID string, lane domain.Lane) (*Outcome, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !validLane(lane) {
		return nil, domain.ErrUnknownLane
	}

	now := e.clock.Now()
	nowMs := now.UnixMilli()
	var (
		updated *domain.User
		settled *domain.Commitment
	)
	_, err := e.store.Update(ctx, []string{userID}, func(docs map[string]*domain.User) error {
		u, ok := docs[userID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		settled = settle(u, lane, nowMs)
		updated = u.Clone()
		return nil
	})
	if err != nil {
		return nil, domain.AsStoreError(err)
	}

	out := &Outcome{
		View: View(updated, lane, nowMs),
		User: updated,
	}
	if settled == nil {
		out.Status = statusFor(out.View)
		return out, nil
	}

	out.Transitioned = true
	out.Status = completedStatus(lane)
	e.completed(ctx, updated, settled, now)
	return out, nil
}

// Reset clears a completed lane so a new tier can be confirmed. An expired
// commitment whose completion was never persisted is settled in the same write.
func (e *Engine) Reset(ctx context.Context, userID string, lane domain.Lane) (*Outcome, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !validLane(lane) {
		return nil, domain.ErrUnknownLane
	}

	now := e.clock.Now()
	nowMs := now.UnixMilli()
	var (
		updated *domain.User
		settled *domain.Commitment
		before  *domain.User
	)
	_, err := e.store.Update(ctx, []string{userID}, func(docs map[string]*domain.User) error {
		u, ok := docs[userID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		if domain.StateAt(u, lane, nowMs) != domain.LaneCompleted {
			return domain.ErrNothingToReset
		}
		settled = settle(u, lane, nowMs)
		before = u.Clone()
		clearLane(u, lane)
		updated = u.Clone()
		return nil
	})
	if err != nil {
		return nil, domain.AsStoreError(err)
	}

	if settled != nil {
		e.completed(ctx, before, settled, now)
	} else {
		e.changed(ctx, userID)
	}
	e.audit(ctx, userID, domain.AuditActionCommitmentReset, map[string]interface{}{
		"lane": string(lane),
	})
	commitmentEvents.WithLabelValues(string(lane), "reset").Inc()

	status := domain.StatusInvestReset
	if lane == domain.LaneMining {
		status = domain.StatusMiningReset
	}
	return &Outcome{
		Status:       status,
		Transitioned: true,
		View:         View(updated, lane, nowMs),
		User:         updated,
	}, nil
}

// Lane returns the current view of lane for userID.
func (e *Engine) Lane(ctx context.Context, userID string, lane domain.Lane) (*Outcome, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !validLane(lane) {
		return nil, domain.ErrUnknownLane
	}
	u, err := e.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, domain.StorageError(err)
	}
	view := View(u, lane, e.clock.Now().UnixMilli())
	return &Outcome{Status: statusFor(view), View: view, User: u}, nil
}

// settle marks an expired, unflagged commitment as completed and records
// its summary. It returns the settled commitment, or nil when nothing changed.
func settle(u *domain.User, lane domain.Lane, nowMs int64) *domain.Commitment {
	c := u.Commitment(lane)
	if c == nil || c.Completed || nowMs < c.EndTimestamp {
		return nil
	}
	switch lane {
	case domain.LaneInvest:
		u.InvestCompleted = true
		u.LastInvestSummary = &domain.InvestSummary{
			Amount:  c.Amount,
			Tokens:  c.RewardTokens,
			EndedAt: nowMs,
		}
	case domain.LaneMining:
		u.MiningCompleted = true
		u.LastMiningSummary = &domain.MiningSummary{
			Tier:    c.TierID,
			Fee:     c.Fee,
			EndedAt: nowMs,
		}
	}
	c.Completed = true
	return c
}

func clearLane(u *domain.User, lane domain.Lane) {
	switch lane {
	case domain.LaneInvest:
		u.SelectedOffer = nil
		u.OfferEndTime = nil
		u.InvestCompleted = false
	case domain.LaneMining:
		u.Mining = nil
		u.MiningCompleted = false
	}
}

func (e *Engine) completed(ctx context.Context, u *domain.User, c *domain.Commitment, now time.Time) {
	e.changed(ctx, u.ID)
	e.dispatch(notify.CommitmentCompleted(u, c, now))
	e.audit(ctx, u.ID, domain.AuditActionCommitmentComplete, map[string]interface{}{
		"lane":    string(c.Lane),
		"tier_id": c.TierID,
	})
	commitmentEvents.WithLabelValues(string(c.Lane), "completed").Inc()
	e.log.Info("commitment completed", "user_id", u.ID, "lane", c.Lane, "tier_id", c.TierID)
}

func (e *Engine) changed(ctx context.Context, userID string) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, userID); err != nil {
		e.log.Warn("failed to publish document change", "user_id", userID, "error", err)
	}
}

func (e *Engine) dispatch(msg notify.Message) {
	if e.dispatcher != nil {
		e.dispatcher.Dispatch(msg)
	}
}

func (e *Engine) audit(ctx context.Context, userID, action string, details map[string]interface{}) {
	if e.auditor != nil {
		e.auditor.Log(ctx, userID, action, domain.AuditCategoryCommitment, details)
	}
}

func validLane(lane domain.Lane) bool {
	return lane == domain.LaneInvest || lane == domain.LaneMining
}

func completedStatus(lane domain.Lane) domain.Status {
	if lane == domain.LaneMining {
		return domain.StatusMiningCompleted
	}
	return domain.StatusInvestCompleted
}

func statusFor(v LaneView) domain.Status {
	switch v.State {
	case domain.LaneActive:
		if v.Lane == domain.LaneMining {
			return domain.StatusMiningRunning
		}
		return domain.StatusInvestRunning
	case domain.LaneCompleted:
		return completedStatus(v.Lane)
	}
	return domain.StatusIdle
}
