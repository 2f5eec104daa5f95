package domain

// Stable codes returned to clients next to every human message.
const (
	CodeUnauthenticated    = "auth.required"
	CodeStorageUnavailable = "storage.unavailable"

	CodeAccountNotFound = "account.not_found"
	CodeAccountExists   = "account.exists"
	CodeUsernameInvalid = "account.username_invalid"
	CodeUsernameTaken   = "account.username_taken"
	CodeEmailRequired   = "account.email_required"

	CodeReferralInvalid     = "referral.invalid_code"
	CodeReferralAlreadyUsed = "referral.already_used"
	CodeReferralOwnCode     = "referral.own_code"
	CodeReferralNotFound    = "referral.not_found"

	CodeWalletsIncomplete = "wallets.incomplete"
	CodeNetworkUnknown    = "wallets.unknown_network"
	CodeWalletsLocked     = "wallets.locked"
	CodeWalletsNotSaved   = "wallets.not_saved"
	CodeWalletsInUse      = "wallets.in_use"

	CodeLaneUnknown      = "commitment.unknown_lane"
	CodeTierUnknown      = "commitment.unknown_tier"
	CodeLaneBusy         = "commitment.lane_busy"
	CodeLaneNotCompleted = "commitment.not_completed"
	CodeLaneNotReset     = "commitment.not_reset"
)

// Status is the outcome of a successful operation.
type Status struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	StatusAccountCreated  = Status{Code: "account_created", Message: "Account created"}
	StatusAccountDeleted  = Status{Code: "account_deleted", Message: "Account deleted"}
	StatusSettingsSaved   = Status{Code: "settings_saved", Message: "Settings saved"}
	StatusWalletsSaved    = Status{Code: "wallets_saved", Message: "Wallets saved"}
	StatusWalletsUnlocked = Status{Code: "wallets_unlocked", Message: "Wallets unlocked"}

	StatusReferralApplied = Status{Code: "referral_applied", Message: "Referral applied successfully! Timer reduction activated."}

	StatusInvestStarted   = Status{Code: "investment_started", Message: "Investment started"}
	StatusMiningStarted   = Status{Code: "mining_started", Message: "Mining started"}
	StatusInvestCompleted = Status{Code: "investment_completed", Message: "Investment finished successfully. Your tokens will be received within 12 hours."}
	StatusMiningCompleted = Status{Code: "mining_completed", Message: "Mining finished successfully. Please ensure your fee is paid; your tokens will be received within 12 hours."}
	StatusInvestReset     = Status{Code: "investment_reset", Message: "Investment cleared"}
	StatusMiningReset     = Status{Code: "mining_reset", Message: "Mining cleared"}
	StatusInvestRunning   = Status{Code: "investment_running", Message: "Investment in progress"}
	StatusMiningRunning   = Status{Code: "mining_running", Message: "Mining in progress"}
	StatusIdle            = Status{Code: "idle", Message: "No active commitment"}
)
