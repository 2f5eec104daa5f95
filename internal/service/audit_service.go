package service

import (
	"context"

	"illyrian_project/internal/domain"
	"illyrian_project/internal/logger"
)

// AuditService handles audit logging
type AuditService struct {
	repo domain.AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(repo domain.AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry. A nil service drops the entry.
func (s *AuditService) Log(ctx context.Context, userID, action, category string, details map[string]interface{}) {
	s.LogWithRequest(ctx, userID, action, category, "", "", details)
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID, action, category, ip, userAgent string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogReferralApply logs a redeemed referral code
func (s *AuditService) LogReferralApply(ctx context.Context, userID, referrerID, code string, bonus int) {
	details := map[string]interface{}{
		"code":        code,
		"referrer_id": referrerID,
		"bonus":       bonus,
	}

	s.Log(ctx, userID, domain.AuditActionReferralApply, domain.AuditCategoryReferral, details)
}

// LogWalletsSave logs saved payout wallets
func (s *AuditService) LogWalletsSave(ctx context.Context, userID, network string) {
	details := map[string]interface{}{
		"network": network,
	}

	s.Log(ctx, userID, domain.AuditActionWalletsSave, domain.AuditCategoryWallets, details)
}

// GetUserAuditLogs returns audit logs for a user
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	logs, err := s.repo.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, domain.StorageError(err)
	}
	return logs, nil
}
