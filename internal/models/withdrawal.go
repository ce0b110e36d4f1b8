package models

import (
	"time"

	"github.com/google/uuid"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
)

// Withdrawal is one on-chain payout request. Amount is a decimal string in
// smallest token units; it is never passed through a floating-point type.
// State machine: pending -> processing -> completed | failed.
type Withdrawal struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	WalletAddress string           `gorm:"size:64;not null;index" json:"wallet_address"`
	Amount        string           `gorm:"size:80;not null" json:"amount"`
	Status        WithdrawalStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	TxHash        *string          `gorm:"size:128" json:"tx_hash"`
	ErrorMessage  *string          `gorm:"size:500" json:"error_message"`
	RequestedAt   time.Time        `gorm:"not null;index" json:"requested_at"`
	ProcessedAt   *time.Time       `json:"processed_at"`
	CompletedAt   *time.Time       `json:"completed_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}

// WithdrawalRequest is the body of POST /api/withdrawals/request.
type WithdrawalRequest struct {
	WalletAddress string `json:"wallet" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
}

// ProcessedItem is the per-withdrawal detail in a processor run report.
type ProcessedItem struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	TxHash string `json:"tx_hash,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ProcessResult summarizes one withdrawal-processor run. Skipped means a
// run was already in flight and this invocation was a no-op.
type ProcessResult struct {
	Skipped   bool            `json:"skipped"`
	Processed int             `json:"processed"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Items     []ProcessedItem `json:"items"`
}
