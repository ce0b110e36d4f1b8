package models

import (
	"time"

	"github.com/google/uuid"
)

type PrizeStatus string

const (
	PrizeStatusActive    PrizeStatus = "active"
	PrizeStatusDrawn     PrizeStatus = "drawn"
	PrizeStatusCompleted PrizeStatus = "completed"
)

// MonthlyEntry accumulates sweepstakes entries per (identity, month).
// Every flip earns one entry regardless of outcome; the sweepstakes
// rewards participation, not luck. Entries never decrease within a month.
type MonthlyEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Month        string    `gorm:"size:10;not null;uniqueIndex:idx_entries_month_identity,priority:1" json:"month"`
	IdentityKey  string    `gorm:"size:80;not null;uniqueIndex:idx_entries_month_identity,priority:2" json:"identity_key"`
	WalletAddress *string  `gorm:"size:64" json:"wallet_address"`
	FID          *int64    `json:"fid"`
	DisplayName  string    `gorm:"size:255" json:"display_name"`
	Entries      int64     `gorm:"not null;default:0" json:"entries"`
	BonusEntries int64     `gorm:"not null;default:0" json:"bonus_entries"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MonthlyEntry) TableName() string {
	return "monthly_entries"
}

// MonthlyPrize is the admin-configured prize for one calendar month.
// Status only moves forward: active -> drawn -> completed.
type MonthlyPrize struct {
	Month         string      `gorm:"primaryKey;size:10" json:"month"`
	Name          string      `gorm:"size:255;not null" json:"name"`
	Description   string      `gorm:"type:text" json:"description"`
	Value         string      `gorm:"size:100" json:"value"`
	Status        PrizeStatus `gorm:"size:20;not null;default:active" json:"status"`
	WinnerWallet  *string     `gorm:"size:64" json:"winner_wallet"`
	WinnerFID     *int64      `json:"winner_fid"`
	WinnerName    *string     `gorm:"size:255" json:"winner_name"`
	WinnerEntries *int64      `json:"winner_entries"`
	DrawnAt       *time.Time  `json:"drawn_at"`
	CreatedAt     time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MonthlyPrize) TableName() string {
	return "monthly_prizes"
}

// WinnerRecord is the permanent, immutable record of a monthly draw.
type WinnerRecord struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Month             string    `gorm:"size:10;not null;uniqueIndex" json:"month"`
	WalletAddress     *string   `gorm:"size:64" json:"wallet_address"`
	FID               *int64    `json:"fid"`
	DisplayName       string    `gorm:"size:255" json:"display_name"`
	PrizeName         string    `gorm:"size:255" json:"prize_name"`
	PrizeValue        string    `gorm:"size:100" json:"prize_value"`
	WinnerEntries     int64     `gorm:"not null" json:"winner_entries"`
	TotalParticipants int64     `gorm:"not null" json:"total_participants"`
	PoolSize          int64     `gorm:"not null" json:"pool_size"`
	WinningTicket     int64     `gorm:"not null" json:"winning_ticket"` // 1-indexed position in the pool
	DrawnAt           time.Time `gorm:"not null" json:"drawn_at"`
}

func (WinnerRecord) TableName() string {
	return "winner_records"
}

// MonthStats is the aggregate view used for odds display and the draw.
type MonthStats struct {
	Month        string `json:"month"`
	TotalEntries int64  `json:"total_entries"`
	Participants int64  `json:"participants"`
}

// DrawRequest triggers a winner draw for a month ("YYYY-MM-01").
type DrawRequest struct {
	Month string `json:"month" binding:"required"`
}

// DrawResult is returned by the winner draw. AlreadyDrawn marks a repeat
// invocation that returned the original winner instead of re-drawing.
type DrawResult struct {
	Month             string  `json:"month"`
	WinnerWallet      *string `json:"winner_wallet"`
	WinnerFID         *int64  `json:"winner_fid"`
	WinnerName        string  `json:"winner_name"`
	WinnerEntries     int64   `json:"winner_entries"`
	TotalParticipants int64   `json:"total_participants"`
	PoolSize          int64   `json:"pool_size"`
	WinningTicket     int64   `json:"winning_ticket"`
	Odds              string  `json:"odds"`
	AlreadyDrawn      bool    `json:"already_drawn"`
}

// CreatePrizeRequest configures a month's prize (admin).
type CreatePrizeRequest struct {
	Month       string `json:"month" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Value       string `json:"value"`
}
