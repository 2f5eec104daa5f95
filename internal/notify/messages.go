package notify

import (
	"fmt"
	"strings"
	"time"

	"illyrian_project/internal/catalog"
	"illyrian_project/internal/domain"
)

// Event names carried by Message.Event.
const (
	EventCommitmentStarted   = "commitment.started"
	EventCommitmentCompleted = "commitment.completed"
	EventReferralApplied     = "referral.applied"
)

// CommitmentStarted describes a newly confirmed investment or mining tier.
func CommitmentStarted(u *domain.User, tier catalog.Tier, at time.Time) Message {
	var title string
	var lines []string
	switch tier.Lane {
	case domain.LaneMining:
		title = "⛏️ Mining Started"
		lines = []string{
			"User: " + u.Email,
			fmt.Sprintf("Tier: %d ILY", tier.RewardTokens),
			fmt.Sprintf("Fee: %d USDT", tier.Fee),
		}
	default:
		title = "💸 New Investment"
		lines = []string{
			"User: " + u.Email,
			"Amount: " + tier.Label,
			fmt.Sprintf("Tokens: %d ILY", tier.RewardTokens),
		}
	}
	lines = append(lines,
		"Duration: "+tier.DisplayTime(),
		"Network: "+u.Network,
		"Wallet: "+u.USDTWallet,
		"Token Wallet: "+u.TokenWallet,
	)
	return Message{
		Event:  EventCommitmentStarted,
		UserID: u.ID,
		Title:  title,
		Body:   strings.Join(lines, "\n"),
		Color:  catalog.ColorFor(u.Network),
		At:     at,
	}
}

// CommitmentCompleted describes a commitment whose timer ran out.
func CommitmentCompleted(u *domain.User, c *domain.Commitment, at time.Time) Message {
	var title string
	lines := []string{"User: " + u.Email}
	switch c.Lane {
	case domain.LaneMining:
		title = "✅ Mining Completed"
		lines = append(lines,
			fmt.Sprintf("Tier: %d ILY", c.RewardTokens),
			fmt.Sprintf("Fee: %d USDT", c.Fee),
		)
	default:
		title = "✅ Investment Completed"
		lines = append(lines,
			"Amount: "+c.Amount,
			fmt.Sprintf("Tokens: %d ILY", c.RewardTokens),
		)
	}
	lines = append(lines,
		"Network: "+u.Network,
		"Token Wallet: "+u.TokenWallet,
	)
	return Message{
		Event:  EventCommitmentCompleted,
		UserID: u.ID,
		Title:  title,
		Body:   strings.Join(lines, "\n"),
		Color:  catalog.ColorFor(u.Network),
		At:     at,
	}
}

// ReferralApplied describes a redeemed referral code.
func ReferralApplied(referee *domain.User, referrerID, code string, at time.Time) Message {
	return Message{
		Event:  EventReferralApplied,
		UserID: referee.ID,
		Title:  "🤝 Referral Applied",
		Body: strings.Join([]string{
			"User: " + referee.Email,
			"Code: " + code,
			"Referrer: " + referrerID,
			fmt.Sprintf("Bonuses: %d/%d", referee.ReferralBonuses, domain.MaxReferralBonuses),
		}, "\n"),
		Color: catalog.DefaultColor,
		At:    at,
	}
}
