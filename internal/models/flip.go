package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"daily-flip/internal/fairness"
)

type FlipKind string

const (
	FlipKindQuota FlipKind = "quota"
	FlipKindBonus FlipKind = "bonus"
)

type FlipStatus string

const (
	// Flips in the free-flip flow are committed and revealed in one step,
	// so records are never left in an unrevealed state.
	FlipStatusRevealed FlipStatus = "revealed"
)

// FlipRecord is one row per flip attempt. The ledger is append-only:
// records are created at claim time and never mutated.
type FlipRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	WalletAddress *string         `gorm:"size:64;index" json:"wallet_address"`
	FID           *int64          `gorm:"index" json:"fid"`
	IdentityKey   string          `gorm:"size:80;not null;index:idx_flips_quota,priority:1" json:"identity_key"`
	Choice        fairness.Side   `gorm:"size:10;not null" json:"choice"`
	ClientSeed    string          `gorm:"size:64;not null" json:"client_seed"`
	ClientHash    string          `gorm:"size:64;not null" json:"client_hash"`
	ServerSeed    string          `gorm:"size:64;not null" json:"server_seed"`
	ServerHash    string          `gorm:"size:64;not null" json:"server_hash"`
	CombinedHash  string          `gorm:"size:64;not null" json:"combined_hash"`
	Result        fairness.Side   `gorm:"size:10;not null" json:"result"`
	IsWin         bool            `gorm:"not null" json:"is_win"`
	Payout        decimal.Decimal `gorm:"type:numeric(40,0);not null" json:"payout"`
	Kind          FlipKind        `gorm:"size:10;not null;index:idx_flips_quota,priority:3" json:"kind"`
	FlipDate      string          `gorm:"size:10;not null;index:idx_flips_quota,priority:2" json:"flip_date"`
	Status        FlipStatus      `gorm:"size:20;not null;default:revealed" json:"status"`
	ClientIP      *string         `gorm:"size:64" json:"client_ip,omitempty"`
	UserAgent     *string         `gorm:"size:500" json:"user_agent,omitempty"`
	CreatedAt     time.Time       `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (FlipRecord) TableName() string {
	return "flip_records"
}

// FlipClaimRequest is the body of POST /api/flip/claim. At least one of
// wallet / fid must be present.
type FlipClaimRequest struct {
	WalletAddress *string `json:"wallet"`
	FID           *int64  `json:"fid"`
	Choice        string  `json:"choice" binding:"required"`
}

// SeedBreakdown exposes the full commit-reveal material so the client can
// verify the outcome independently.
type SeedBreakdown struct {
	ClientSeed   string `json:"client_seed"`
	ClientHash   string `json:"client_hash"`
	ServerSeed   string `json:"server_seed"`
	ServerHash   string `json:"server_hash"`
	CombinedHash string `json:"combined_hash"`
}

// FlipClaimResponse is returned for a successful claim.
type FlipClaimResponse struct {
	FlipID         string        `json:"flip_id"`
	Outcome        fairness.Side `json:"outcome"`
	IsWin          bool          `json:"is_win"`
	PayoutAmount   string        `json:"payout_amount"`
	IsBonusFlip    bool          `json:"is_bonus_flip"`
	FlipsUsedToday int           `json:"flips_used_today"`
	FlipsRemaining int           `json:"flips_remaining"`
	BonusRemaining int           `json:"bonus_remaining"`
	Tier           string        `json:"tier"`
	MaxDailyFlips  int           `json:"max_daily_flips"`
	SeedBreakdown  SeedBreakdown `json:"seed_breakdown"`
}

// QuotaStatus is the read-only entitlement snapshot for a player.
type QuotaStatus struct {
	Tier           string    `json:"tier"`
	MaxDailyFlips  int       `json:"max_daily_flips"`
	FlipsUsedToday int       `json:"flips_used_today"`
	FlipsRemaining int       `json:"flips_remaining"`
	BonusRemaining int       `json:"bonus_remaining"`
	ResetsAt       time.Time `json:"resets_at"`
}
