package repository

import (
	"context"

	"daily-flip/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreditWin adds a win payout to a wallet's balance. Both counters are
// incremented with database-side expressions so concurrent wins on the
// same wallet never lose an update; the row is created lazily on the
// first win.
func (r *Repository) CreditWin(ctx context.Context, walletAddress string, amount decimal.Decimal) error {
	balance := models.PlayerBalance{
		WalletAddress: walletAddress,
		TotalWon:      amount,
		Pending:       amount,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet_address"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_won":  gorm.Expr("player_balances.total_won + ?", amount),
			"pending":    gorm.Expr("player_balances.pending + ?", amount),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&balance).Error
}

// GetBalance retrieves a wallet's balance; wallets that never won return
// a zeroed record.
func (r *Repository) GetBalance(ctx context.Context, walletAddress string) (*models.PlayerBalance, error) {
	var balance models.PlayerBalance
	err := r.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&balance).Error
	if err == gorm.ErrRecordNotFound {
		return &models.PlayerBalance{
			WalletAddress: walletAddress,
			TotalWon:      decimal.Zero,
			Pending:       decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// DebitPending atomically reserves part of a wallet's pending balance for
// a withdrawal. The pending >= amount guard in the WHERE clause enforces
// the pending >= 0 invariant; zero rows affected means insufficient funds.
func (r *Repository) DebitPending(ctx context.Context, walletAddress string, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PlayerBalance{}).
		Where("wallet_address = ? AND pending >= ?", walletAddress, amount).
		Updates(map[string]interface{}{
			"pending":    gorm.Expr("pending - ?", amount),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RefundPending restores a wallet's pending balance after a failed
// withdrawal. Upserts so a refund is never dropped even if the balance
// row is missing.
func (r *Repository) RefundPending(ctx context.Context, walletAddress string, amount decimal.Decimal) error {
	balance := models.PlayerBalance{
		WalletAddress: walletAddress,
		TotalWon:      decimal.Zero,
		Pending:       amount,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet_address"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"pending":    gorm.Expr("player_balances.pending + ?", amount),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&balance).Error
}
