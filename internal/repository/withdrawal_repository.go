package repository

import (
	"context"
	"time"

	"daily-flip/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateWithdrawal enqueues a new pending withdrawal.
func (r *Repository) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	return r.db.WithContext(ctx).Create(w).Error
}

// GetWithdrawal retrieves a withdrawal by ID.
func (r *Repository) GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetWalletWithdrawals lists a wallet's withdrawals, newest first.
func (r *Repository) GetWalletWithdrawals(ctx context.Context, walletAddress string, limit int) ([]*models.Withdrawal, error) {
	var withdrawals []*models.Withdrawal
	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", walletAddress).
		Order("requested_at DESC").
		Limit(limit).
		Find(&withdrawals).Error
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}

// GetPendingWithdrawals dequeues up to limit pending withdrawals in
// request order.
func (r *Repository) GetPendingWithdrawals(ctx context.Context, limit int) ([]*models.Withdrawal, error) {
	var withdrawals []*models.Withdrawal
	err := r.db.WithContext(ctx).
		Where("status = ?", models.WithdrawalStatusPending).
		Order("requested_at ASC").
		Limit(limit).
		Find(&withdrawals).Error
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}

// ClaimWithdrawal moves a withdrawal from pending to processing. The
// status guard makes the claim atomic: if two processors race, only one
// sees a row affected and the other skips the item.
func (r *Repository) ClaimWithdrawal(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, models.WithdrawalStatusPending).
		Updates(map[string]interface{}{
			"status":       models.WithdrawalStatusProcessing,
			"processed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CompleteWithdrawal records a confirmed on-chain transfer.
func (r *Repository) CompleteWithdrawal(ctx context.Context, id uuid.UUID, txHash string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, models.WithdrawalStatusProcessing).
		Updates(map[string]interface{}{
			"status":       models.WithdrawalStatusCompleted,
			"tx_hash":      txHash,
			"completed_at": now,
		}).Error
}

// FailWithdrawal marks a processing withdrawal failed and refunds the
// wallet's pending balance in the same transaction. The processing guard
// on the status update ensures the refund happens exactly once per
// failed transition, even if the processor is re-run against the same row.
func (r *Repository) FailWithdrawal(ctx context.Context, id uuid.UUID, walletAddress string, amount decimal.Decimal, errMsg string, now time.Time) error {
	return r.Transaction(ctx, func(txRepo *Repository) error {
		res := txRepo.db.Model(&models.Withdrawal{}).
			Where("id = ? AND status = ?", id, models.WithdrawalStatusProcessing).
			Updates(map[string]interface{}{
				"status":        models.WithdrawalStatusFailed,
				"error_message": errMsg,
				"completed_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already terminal; do not refund again.
			return nil
		}
		return txRepo.RefundPending(ctx, walletAddress, amount)
	})
}
