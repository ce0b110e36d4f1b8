package repository

import (
	"context"
	"time"

	"daily-flip/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IncrementMonthlyEntry adds one sweepstakes entry for an identity in a
// month, creating the row on first participation. Bonus flips also bump
// the bonus-derived subset.
func (r *Repository) IncrementMonthlyEntry(
	ctx context.Context,
	month string,
	identityKey string,
	walletAddress *string,
	fid *int64,
	displayName string,
	fromBonus bool,
) error {
	bonusIncr := int64(0)
	if fromBonus {
		bonusIncr = 1
	}

	entry := models.MonthlyEntry{
		Month:         month,
		IdentityKey:   identityKey,
		WalletAddress: walletAddress,
		FID:           fid,
		DisplayName:   displayName,
		Entries:       1,
		BonusEntries:  bonusIncr,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "month"}, {Name: "identity_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"entries":       gorm.Expr("monthly_entries.entries + 1"),
			"bonus_entries": gorm.Expr("monthly_entries.bonus_entries + ?", bonusIncr),
			"updated_at":    gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&entry).Error
}

// GetMonthlyEntries returns all entries for a month in insertion order,
// which keeps the materialized ticket pool stable for a given draw.
func (r *Repository) GetMonthlyEntries(ctx context.Context, month string) ([]*models.MonthlyEntry, error) {
	var entries []*models.MonthlyEntry
	err := r.db.WithContext(ctx).
		Where("month = ?", month).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetMonthStats aggregates total entries and participant count for a month.
func (r *Repository) GetMonthStats(ctx context.Context, month string) (*models.MonthStats, error) {
	stats := &models.MonthStats{Month: month}

	err := r.db.WithContext(ctx).Model(&models.MonthlyEntry{}).
		Where("month = ?", month).
		Count(&stats.Participants).Error
	if err != nil {
		return nil, err
	}

	var total *int64
	err = r.db.WithContext(ctx).Model(&models.MonthlyEntry{}).
		Where("month = ?", month).
		Select("SUM(entries)").
		Scan(&total).Error
	if err != nil {
		return nil, err
	}
	if total != nil {
		stats.TotalEntries = *total
	}

	return stats, nil
}

// CreatePrize configures a month's prize.
func (r *Repository) CreatePrize(ctx context.Context, prize *models.MonthlyPrize) error {
	return r.db.WithContext(ctx).Create(prize).Error
}

// GetPrize retrieves the prize for a month, or nil if none is configured.
func (r *Repository) GetPrize(ctx context.Context, month string) (*models.MonthlyPrize, error) {
	var prize models.MonthlyPrize
	err := r.db.WithContext(ctx).Where("month = ?", month).First(&prize).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prize, nil
}

// ClaimDraw flips a prize's status from active to drawn. The conditional
// update is the sole guard against double drawing: whichever caller
// commits the flip first wins, everyone else sees zero rows affected.
func (r *Repository) ClaimDraw(ctx context.Context, month string, drawnAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.MonthlyPrize{}).
		Where("month = ? AND status = ?", month, models.PrizeStatusActive).
		Updates(map[string]interface{}{
			"status":     models.PrizeStatusDrawn,
			"drawn_at":   drawnAt,
			"updated_at": drawnAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetPrizeWinner denormalizes the winner onto the prize row after a draw.
func (r *Repository) SetPrizeWinner(ctx context.Context, month string, wallet *string, fid *int64, name string, entries int64) error {
	return r.db.WithContext(ctx).Model(&models.MonthlyPrize{}).
		Where("month = ?", month).
		Updates(map[string]interface{}{
			"winner_wallet":  wallet,
			"winner_fid":     fid,
			"winner_name":    name,
			"winner_entries": entries,
			"updated_at":     gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

// CreateWinnerRecord persists the permanent draw record.
func (r *Repository) CreateWinnerRecord(ctx context.Context, record *models.WinnerRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetWinnerRecord retrieves the winner record for a month, or nil.
func (r *Repository) GetWinnerRecord(ctx context.Context, month string) (*models.WinnerRecord, error) {
	var record models.WinnerRecord
	err := r.db.WithContext(ctx).Where("month = ?", month).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
