package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync/atomic"
	"time"

	"daily-flip/internal/models"
	"daily-flip/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInsufficientPending = errors.New("requested amount exceeds pending balance")

// ChainClient is the custodial hot-wallet surface the processor needs.
// The solana client implements it; tests substitute a fake.
type ChainClient interface {
	ValidateAddress(address string) bool
	TokenBalance(ctx context.Context) (*big.Int, error)
	SOLBalance(ctx context.Context) (uint64, error)
	// TransferToken performs a single transfer attempt with a fresh
	// blockhash and returns the transaction signature.
	TransferToken(ctx context.Context, recipient string, amount uint64) (string, error)
	WaitForConfirmation(ctx context.Context, signature string) error
}

// WithdrawalService drains pending withdrawals and settles them on-chain.
// At most one batch run is active at a time: an in-process guard covers
// redundant triggers on one instance, and the optional redis lease covers
// multiple instances.
type WithdrawalService struct {
	repo  *repository.Repository
	chain ChainClient
	lock  *FlightLock // nil when redis is not configured

	batchSize      int
	maxRetries     int
	retryDelay     time.Duration
	interItemDelay time.Duration
	confirmTimeout time.Duration
	minFeeLamports uint64

	running atomic.Bool
}

func NewWithdrawalService(
	repo *repository.Repository,
	chain ChainClient,
	lock *FlightLock,
	batchSize int,
	maxRetries int,
	retryDelay time.Duration,
	interItemDelay time.Duration,
	confirmTimeout time.Duration,
	minFeeLamports uint64,
) *WithdrawalService {
	return &WithdrawalService{
		repo:           repo,
		chain:          chain,
		lock:           lock,
		batchSize:      batchSize,
		maxRetries:     maxRetries,
		retryDelay:     retryDelay,
		interItemDelay: interItemDelay,
		confirmTimeout: confirmTimeout,
		minFeeLamports: minFeeLamports,
	}
}

// RequestWithdrawal reserves part of a wallet's pending balance and
// enqueues a pending withdrawal for the processor.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, walletAddress, amount string) (*models.Withdrawal, error) {
	parsed, err := ParseTokenAmount(amount)
	if err != nil {
		return nil, err
	}

	dec := decimal.NewFromBigInt(parsed, 0)

	withdrawal := &models.Withdrawal{
		ID:            uuid.New(),
		WalletAddress: walletAddress,
		Amount:        parsed.String(),
		Status:        models.WithdrawalStatusPending,
		RequestedAt:   time.Now().UTC(),
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		debited, err := txRepo.DebitPending(ctx, walletAddress, dec)
		if err != nil {
			return fmt.Errorf("failed to reserve pending balance: %w", err)
		}
		if !debited {
			return ErrInsufficientPending
		}
		return txRepo.CreateWithdrawal(ctx, withdrawal)
	})
	if err != nil {
		return nil, err
	}

	return withdrawal, nil
}

// ProcessPending runs one batch. If a run is already in flight the call
// is a no-op reported as Skipped, not an error or a queued retry.
func (s *WithdrawalService) ProcessPending(ctx context.Context) (*models.ProcessResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return &models.ProcessResult{Skipped: true}, nil
	}
	defer s.running.Store(false)

	if s.lock != nil {
		acquired, err := s.lock.TryAcquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire batch lease: %w", err)
		}
		if !acquired {
			return &models.ProcessResult{Skipped: true}, nil
		}
		defer s.lock.Release(ctx)
	}

	pending, err := s.repo.GetPendingWithdrawals(ctx, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue withdrawals: %w", err)
	}

	result := &models.ProcessResult{Items: []models.ProcessedItem{}}
	if len(pending) == 0 {
		return result, nil
	}

	log.Printf("[Withdrawals] Processing batch of %d withdrawals", len(pending))

	for i, w := range pending {
		if i > 0 {
			// Brief pause between items keeps the RPC provider's rate
			// limiter happy.
			time.Sleep(s.interItemDelay)
		}

		claimed, err := s.repo.ClaimWithdrawal(ctx, w.ID, time.Now().UTC())
		if err != nil {
			log.Printf("[Withdrawals] Error claiming %s: %v", w.ID, err)
			continue
		}
		if !claimed {
			// Another processor instance got there first.
			continue
		}

		result.Processed++
		item := s.processOne(ctx, w)
		if item.Status == string(models.WithdrawalStatusCompleted) {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Items = append(result.Items, item)
	}

	log.Printf("[Withdrawals] Batch done: processed=%d succeeded=%d failed=%d",
		result.Processed, result.Succeeded, result.Failed)

	return result, nil
}

// processOne settles a single claimed withdrawal. Every terminal failure
// refunds the wallet's pending balance exactly once.
func (s *WithdrawalService) processOne(ctx context.Context, w *models.Withdrawal) models.ProcessedItem {
	amount, err := ParseTokenAmount(w.Amount)
	if err != nil {
		return s.fail(ctx, w, fmt.Sprintf("invalid amount: %v", err))
	}

	units, err := AmountToUint64(amount)
	if err != nil {
		return s.fail(ctx, w, err.Error())
	}

	if !s.chain.ValidateAddress(w.WalletAddress) {
		return s.fail(ctx, w, fmt.Sprintf("invalid recipient address %q", w.WalletAddress))
	}

	// The custodial balances are shared across the whole batch, so they
	// are re-checked fresh before every transfer.
	tokenBalance, err := s.chain.TokenBalance(ctx)
	if err != nil {
		return s.fail(ctx, w, fmt.Sprintf("token balance check failed: %v", err))
	}
	if tokenBalance.Cmp(amount) < 0 {
		return s.fail(ctx, w, fmt.Sprintf("insufficient custodial token balance: have %s, need %s",
			tokenBalance.String(), amount.String()))
	}

	solBalance, err := s.chain.SOLBalance(ctx)
	if err != nil {
		return s.fail(ctx, w, fmt.Sprintf("fee balance check failed: %v", err))
	}
	if solBalance < s.minFeeLamports {
		return s.fail(ctx, w, fmt.Sprintf("insufficient custodial fee balance: %d lamports", solBalance))
	}

	var signature string
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		// Each attempt refreshes the blockhash inside TransferToken, so a
		// stale fee quote never gets reused.
		signature, lastErr = s.chain.TransferToken(ctx, w.WalletAddress, units)
		if lastErr == nil {
			break
		}
		log.Printf("[Withdrawals] Transfer attempt %d/%d for %s failed: %v",
			attempt, s.maxRetries, w.ID, lastErr)
		if attempt < s.maxRetries {
			time.Sleep(s.retryDelay)
		}
	}
	if lastErr != nil {
		return s.fail(ctx, w, fmt.Sprintf("transfer failed after %d attempts: %v", s.maxRetries, lastErr))
	}

	confirmCtx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	if err := s.chain.WaitForConfirmation(confirmCtx, signature); err != nil {
		return s.fail(ctx, w, fmt.Sprintf("confirmation failed for %s: %v", signature, err))
	}

	if err := s.repo.CompleteWithdrawal(ctx, w.ID, signature, time.Now().UTC()); err != nil {
		log.Printf("[Withdrawals] Error recording completion of %s: %v", w.ID, err)
	}

	log.Printf("[Withdrawals] Completed %s: %s tokens to %s (tx %s)",
		w.ID, w.Amount, w.WalletAddress, signature)

	return models.ProcessedItem{
		ID:     w.ID.String(),
		Status: string(models.WithdrawalStatusCompleted),
		TxHash: signature,
	}
}

// fail transitions the withdrawal to failed and refunds the pending
// balance. A failed withdrawal must never silently destroy the player's
// claim to their own balance.
func (s *WithdrawalService) fail(ctx context.Context, w *models.Withdrawal, reason string) models.ProcessedItem {
	refund := decimal.Zero
	if parsed, err := ParseTokenAmount(w.Amount); err == nil {
		refund = decimal.NewFromBigInt(parsed, 0)
	} else if d, err := decimal.NewFromString(w.Amount); err == nil && d.Sign() > 0 {
		// Malformed-but-parseable amounts still get refunded with the
		// best exact value available.
		refund = d
	}

	if err := s.repo.FailWithdrawal(ctx, w.ID, w.WalletAddress, refund, reason, time.Now().UTC()); err != nil {
		log.Printf("[Withdrawals] Error failing %s: %v", w.ID, err)
	}

	log.Printf("[Withdrawals] Failed %s: %s (refunded %s to %s)",
		w.ID, reason, refund.String(), w.WalletAddress)

	return models.ProcessedItem{
		ID:     w.ID.String(),
		Status: string(models.WithdrawalStatusFailed),
		Error:  reason,
	}
}
