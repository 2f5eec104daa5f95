package domain

import (
	"context"
	"time"
)

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    string                 `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAccount    = "account"
	AuditCategoryWallets    = "wallets"
	AuditCategoryReferral   = "referral"
	AuditCategoryCommitment = "commitment"
)

// Audit actions
const (
	AuditActionSignup        = "signup"
	AuditActionDeleteAccount = "delete_account"
	AuditActionSettings      = "settings_update"

	AuditActionWalletsSave   = "wallets_save"
	AuditActionWalletsUnlock = "wallets_unlock"

	AuditActionReferralApply = "referral_apply"
	AuditActionReferralCode  = "referral_code_issue"

	AuditActionCommitmentStart    = "commitment_start"
	AuditActionCommitmentComplete = "commitment_complete"
	AuditActionCommitmentReset    = "commitment_reset"
)

// AuditStore persists audit entries.
type AuditStore interface {
	Create(ctx context.Context, log *AuditLog) error
	GetByUserID(ctx context.Context, userID string, limit int) ([]*AuditLog, error)
}
