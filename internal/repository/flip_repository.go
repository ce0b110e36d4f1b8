package repository

import (
	"context"
	"time"

	"daily-flip/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateFlip appends one flip record to the ledger.
func (r *Repository) CreateFlip(ctx context.Context, flip *models.FlipRecord) error {
	return r.db.WithContext(ctx).Create(flip).Error
}

// CountQuotaFlips counts an identity's quota-classified flips for a UTC
// calendar day. The count re-derives usage from the ledger itself, so it
// self-corrects; idx_flips_quota keeps it cheap.
func (r *Repository) CountQuotaFlips(ctx context.Context, identityKey, flipDate string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FlipRecord{}).
		Where("identity_key = ? AND flip_date = ? AND kind = ?",
			identityKey, flipDate, models.FlipKindQuota).
		Count(&count).Error
	return count, err
}

// GetRecentFlips retrieves the most recent flips for an identity.
func (r *Repository) GetRecentFlips(ctx context.Context, identityKey string, limit int) ([]*models.FlipRecord, error) {
	var flips []*models.FlipRecord
	err := r.db.WithContext(ctx).
		Where("identity_key = ?", identityKey).
		Order("created_at DESC").
		Limit(limit).
		Find(&flips).Error
	if err != nil {
		return nil, err
	}
	return flips, nil
}

// GetBonusGrant retrieves the bonus spin grant for an identity, or nil if
// none exists.
func (r *Repository) GetBonusGrant(ctx context.Context, identityKey string) (*models.BonusSpinGrant, error) {
	var grant models.BonusSpinGrant
	err := r.db.WithContext(ctx).Where("identity_key = ?", identityKey).First(&grant).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// ConsumeBonusSpin atomically decrements one bonus spin. The remaining > 0
// guard in the WHERE clause is what keeps the counter from going negative
// under concurrent claims; a zero rows-affected result means no spin was
// available.
func (r *Repository) ConsumeBonusSpin(ctx context.Context, identityKey string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.BonusSpinGrant{}).
		Where("identity_key = ? AND remaining > 0 AND (expires_at IS NULL OR expires_at > ?)", identityKey, now).
		Updates(map[string]interface{}{
			"remaining":    gorm.Expr("remaining - 1"),
			"used":         gorm.Expr("used + 1"),
			"last_used_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GrantBonusSpins adds spins to an identity's grant, creating it if needed.
// A non-nil expiry replaces the previous one.
func (r *Repository) GrantBonusSpins(ctx context.Context, identityKey string, spins int, expiresAt *time.Time) error {
	grant := models.BonusSpinGrant{
		IdentityKey: identityKey,
		Remaining:   spins,
		ExpiresAt:   expiresAt,
	}

	assignments := map[string]interface{}{
		"remaining":  gorm.Expr("bonus_spin_grants.remaining + ?", spins),
		"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
	}
	if expiresAt != nil {
		assignments["expires_at"] = *expiresAt
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity_key"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&grant).Error
}

// GetTierAssignment returns the assigned tier for an identity, or "" when
// the identity has no assignment.
func (r *Repository) GetTierAssignment(ctx context.Context, identityKey string) (string, error) {
	var assignment models.TierAssignment
	err := r.db.WithContext(ctx).Where("identity_key = ?", identityKey).First(&assignment).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return assignment.Tier, nil
}

// SetTierAssignment upserts an identity's tier.
func (r *Repository) SetTierAssignment(ctx context.Context, identityKey, tier string) error {
	assignment := models.TierAssignment{
		IdentityKey: identityKey,
		Tier:        tier,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "identity_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tier":       tier,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&assignment).Error
}
