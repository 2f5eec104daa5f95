package domain

import "context"

// Stats is the operator overview of every account.
type Stats struct {
	TotalUsers        int64 `json:"totalUsers"`
	WalletsLocked     int64 `json:"walletsLocked"`
	ReferredUsers     int64 `json:"referredUsers"`
	BonusesHeld       int64 `json:"bonusesHeld"`
	ActiveInvestments int64 `json:"activeInvestments"`
	ActiveMining      int64 `json:"activeMining"`
	// Pending lanes have expired but nobody has settled them yet.
	PendingInvestments   int64 `json:"pendingInvestments"`
	PendingMining        int64 `json:"pendingMining"`
	CompletedInvestments int64 `json:"completedInvestments"`
	CompletedMining      int64 `json:"completedMining"`
}

// StatsStore answers operator queries that span users.
type StatsStore interface {
	Stats(ctx context.Context, nowMs int64) (*Stats, error)
	IDByUsername(ctx context.Context, username string) (string, error)
}
