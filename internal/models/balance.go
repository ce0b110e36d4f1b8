package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlayerBalance tracks per-wallet token winnings in smallest token units.
// TotalWon never decreases; Pending is the currently withdrawable amount
// and must never go negative.
type PlayerBalance struct {
	WalletAddress string          `gorm:"primaryKey;size:64" json:"wallet_address"`
	TotalWon      decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0" json:"total_won"`
	Pending       decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0" json:"pending"`
	UpdatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PlayerBalance) TableName() string {
	return "player_balances"
}

// BonusSpinGrant tracks separately granted bonus spins per identity.
// A grant with a nil expiry never expires.
type BonusSpinGrant struct {
	IdentityKey string     `gorm:"primaryKey;size:80" json:"identity_key"`
	Remaining   int        `gorm:"not null;default:0" json:"remaining"`
	Used        int64      `gorm:"not null;default:0" json:"used"`
	ExpiresAt   *time.Time `json:"expires_at"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BonusSpinGrant) TableName() string {
	return "bonus_spin_grants"
}

// Usable reports whether a bonus spin can be consumed right now.
func (g *BonusSpinGrant) Usable(now time.Time) bool {
	if g == nil || g.Remaining <= 0 {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// TierAssignment maps an identity to a tier name. Identities without an
// assignment fall back to the default tier.
type TierAssignment struct {
	IdentityKey string    `gorm:"primaryKey;size:80" json:"identity_key"`
	Tier        string    `gorm:"size:50;not null" json:"tier"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TierAssignment) TableName() string {
	return "tier_assignments"
}
