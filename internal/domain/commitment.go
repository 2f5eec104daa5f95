package domain

import "strconv"

// Lane is one of the two independent commitment tracks a user can run.
type Lane string

const (
	LaneInvest Lane = "invest"
	LaneMining Lane = "mining"
)

var Lanes = []Lane{LaneInvest, LaneMining}

func ParseLane(s string) (Lane, error) {
	switch s {
	case "invest", "investment":
		return LaneInvest, nil
	case "mining", "mine":
		return LaneMining, nil
	}
	return "", ErrUnknownLane
}

type LaneState string

const (
	LaneIdle      LaneState = "idle"
	LaneActive    LaneState = "active"
	LaneCompleted LaneState = "completed"
)

// SelectedOffer is the running investment.
type SelectedOffer struct {
	ID                  int    `json:"id"`
	Range               string `json:"range"`
	Tokens              int64  `json:"tokens"`
	DurationHours       int    `json:"durationHours"`
	EffectiveDurationMs int64  `json:"effectiveDurationMs"`
}

// Mining is the running mining tier.
type Mining struct {
	Amount              int64 `json:"amount"`
	DurationSecs        int64 `json:"durationSecs"`
	Fee                 int64 `json:"fee"`
	Tier                int64 `json:"tier"`
	MiningEndTime       int64 `json:"miningEndTime"`
	EffectiveDurationMs int64 `json:"effectiveDurationMs"`
}

type InvestSummary struct {
	Amount  string `json:"amount"`
	Tokens  int64  `json:"tokens"`
	EndedAt int64  `json:"endedAt"`
}

type MiningSummary struct {
	Tier    int64 `json:"tier"`
	Fee     int64 `json:"fee"`
	EndedAt int64 `json:"endedAt"`
}

// Commitment is the lane-neutral view of a running or finished commitment.
type Commitment struct {
	Lane         Lane   `json:"lane"`
	TierID       int64  `json:"tierId"`
	Amount       string `json:"amount"`
	Fee          int64  `json:"fee,omitempty"`
	RewardTokens int64  `json:"rewardTokens"`
	DurationMs   int64  `json:"durationMs"`
	EndTimestamp int64  `json:"endTimestamp"`
	Completed    bool   `json:"completed"`
}

// Commitment returns the commitment on lane, or nil when the lane holds none.
func (u *User) Commitment(lane Lane) *Commitment {
	switch lane {
	case LaneInvest:
		if u.SelectedOffer == nil || u.OfferEndTime == nil {
			return nil
		}
		o := u.SelectedOffer
		return &Commitment{
			Lane:         LaneInvest,
			TierID:       int64(o.ID),
			Amount:       o.Range,
			RewardTokens: o.Tokens,
			DurationMs:   o.EffectiveDurationMs,
			EndTimestamp: *u.OfferEndTime,
			Completed:    u.InvestCompleted,
		}
	case LaneMining:
		if u.Mining == nil {
			return nil
		}
		m := u.Mining
		return &Commitment{
			Lane:         LaneMining,
			TierID:       m.Tier,
			Amount:       strconv.FormatInt(m.Amount, 10),
			Fee:          m.Fee,
			RewardTokens: m.Amount,
			DurationMs:   m.EffectiveDurationMs,
			EndTimestamp: m.MiningEndTime,
			Completed:    u.MiningCompleted,
		}
	}
	return nil
}

// CompletedFlag reports the persisted completion flag of lane.
func (u *User) CompletedFlag(lane Lane) bool {
	if lane == LaneMining {
		return u.MiningCompleted
	}
	return u.InvestCompleted
}

// StateAt derives the lane state at nowMs. A commitment whose end time has
// passed is Completed even before the flag is persisted.
func StateAt(u *User, lane Lane, nowMs int64) LaneState {
	if u.CompletedFlag(lane) {
		return LaneCompleted
	}
	c := u.Commitment(lane)
	if c == nil {
		return LaneIdle
	}
	if nowMs < c.EndTimestamp {
		return LaneActive
	}
	return LaneCompleted
}

// DiscountPercent is the duration reduction granted by referral bonuses.
func DiscountPercent(bonuses int) int64 {
	if bonuses <= 0 {
		return 0
	}
	return min(int64(bonuses)*10, 20)
}

// EffectiveDurationMs applies the referral discount to a base duration.
func EffectiveDurationMs(baseMs int64, bonuses int) int64 {
	return baseMs * (100 - DiscountPercent(bonuses)) / 100
}

// PercentElapsed is 100 - floor(remaining/total*100), clamped to [0, 100].
func PercentElapsed(remainingMs, totalMs int64) int {
	if totalMs <= 0 || remainingMs <= 0 {
		return 100
	}
	p := 100 - remainingMs*100/totalMs
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}
