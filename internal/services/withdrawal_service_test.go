package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"daily-flip/internal/models"
	"daily-flip/internal/repository"

	"github.com/shopspring/decimal"
)

// fakeChain is a scriptable ChainClient for processor tests.
type fakeChain struct {
	invalidAddress bool
	tokenBalance   *big.Int
	solBalance     uint64
	failTransfers  int // fail this many transfer attempts before succeeding
	transferCalls  int
	confirmErr     error
}

func (f *fakeChain) ValidateAddress(string) bool { return !f.invalidAddress }

func (f *fakeChain) TokenBalance(context.Context) (*big.Int, error) {
	if f.tokenBalance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(f.tokenBalance), nil
}

func (f *fakeChain) SOLBalance(context.Context) (uint64, error) { return f.solBalance, nil }

func (f *fakeChain) TransferToken(_ context.Context, recipient string, amount uint64) (string, error) {
	f.transferCalls++
	if f.transferCalls <= f.failTransfers {
		return "", fmt.Errorf("rpc unavailable (attempt %d)", f.transferCalls)
	}
	return fmt.Sprintf("sig-%s-%d", recipient, amount), nil
}

func (f *fakeChain) WaitForConfirmation(context.Context, string) error { return f.confirmErr }

func healthyChain() *fakeChain {
	balance, _ := new(big.Int).SetString("100000000000000000000000000", 10)
	return &fakeChain{tokenBalance: balance, solBalance: 1_000_000_000}
}

func newTestWithdrawalService(repo *repository.Repository, chain ChainClient) *WithdrawalService {
	return NewWithdrawalService(repo, chain, nil, 10, 3, 0, 0, time.Second, 100_000)
}

func creditPending(t *testing.T, repo *repository.Repository, wallet, amount string) {
	t.Helper()
	d, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("bad test amount %q: %v", amount, err)
	}
	if err := repo.CreditWin(context.Background(), wallet, d); err != nil {
		t.Fatalf("failed to credit balance: %v", err)
	}
}

func TestRequestWithdrawalReservesPending(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newTestWithdrawalService(repo, healthyChain())
	ctx := context.Background()

	wallet := "WalletA"
	creditPending(t, repo, wallet, "2e+22")

	w, err := svc.RequestWithdrawal(ctx, wallet, "2e+22")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	// Scientific notation from the numeric column must normalize to the
	// exact digit string.
	if w.Amount != "20000000000000000000000" {
		t.Errorf("amount = %s, want 20000000000000000000000", w.Amount)
	}
	if w.Status != models.WithdrawalStatusPending {
		t.Errorf("status = %s, want pending", w.Status)
	}

	balance, err := repo.GetBalance(ctx, wallet)
	if err != nil {
		t.Fatalf("failed to load balance: %v", err)
	}
	if !balance.Pending.IsZero() {
		t.Errorf("pending = %s after full withdrawal, want 0", balance.Pending)
	}
}

func TestRequestWithdrawalRejectsOverdraw(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newTestWithdrawalService(repo, healthyChain())
	ctx := context.Background()

	creditPending(t, repo, "WalletB", "100")

	if _, err := svc.RequestWithdrawal(ctx, "WalletB", "101"); !errors.Is(err, ErrInsufficientPending) {
		t.Fatalf("expected ErrInsufficientPending, got %v", err)
	}

	// The failed reservation must not touch the balance or leave a row.
	balance, _ := repo.GetBalance(ctx, "WalletB")
	if balance.Pending.String() != "100" {
		t.Errorf("pending = %s, want 100", balance.Pending)
	}
	var count int64
	repo.DB().Model(&models.Withdrawal{}).Count(&count)
	if count != 0 {
		t.Errorf("withdrawal rows = %d, want 0", count)
	}
}

func TestRequestWithdrawalRejectsMalformedAmounts(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newTestWithdrawalService(repo, healthyChain())

	for _, amount := range []string{"", "abc", "-5", "0", "1.5"} {
		if _, err := svc.RequestWithdrawal(context.Background(), "WalletC", amount); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %q: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestProcessPendingCompletesWithdrawal(t *testing.T) {
	repo := setupTestRepo(t)
	chain := healthyChain()
	svc := newTestWithdrawalService(repo, chain)
	ctx := context.Background()

	creditPending(t, repo, "WalletD", "1000000000")
	w, err := svc.RequestWithdrawal(ctx, "WalletD", "1000000000")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	result, err := svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Skipped {
		t.Fatal("run unexpectedly skipped")
	}
	if result.Processed != 1 || result.Succeeded != 1 || result.Failed != 0 {
		t.Errorf("run = %d/%d/%d (processed/succeeded/failed), want 1/1/0",
			result.Processed, result.Succeeded, result.Failed)
	}

	stored, err := repo.GetWithdrawal(ctx, w.ID)
	if err != nil {
		t.Fatalf("failed to load withdrawal: %v", err)
	}
	if stored.Status != models.WithdrawalStatusCompleted {
		t.Errorf("status = %s, want completed", stored.Status)
	}
	if stored.TxHash == nil || *stored.TxHash == "" {
		t.Error("completed withdrawal has no tx hash")
	}
	if stored.CompletedAt == nil {
		t.Error("completed withdrawal has no completion time")
	}
}

func TestProcessRetriesTransientTransferErrors(t *testing.T) {
	repo := setupTestRepo(t)
	chain := healthyChain()
	chain.failTransfers = 2 // succeed on the third attempt
	svc := newTestWithdrawalService(repo, chain)
	ctx := context.Background()

	creditPending(t, repo, "WalletE", "500")
	if _, err := svc.RequestWithdrawal(ctx, "WalletE", "500"); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	result, err := svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1 after retries", result.Succeeded)
	}
	if chain.transferCalls != 3 {
		t.Errorf("transfer attempts = %d, want 3", chain.transferCalls)
	}
}

func TestProcessRefundsOnTerminalFailure(t *testing.T) {
	repo := setupTestRepo(t)
	chain := healthyChain()
	chain.failTransfers = 100 // never succeeds
	svc := newTestWithdrawalService(repo, chain)
	ctx := context.Background()

	creditPending(t, repo, "WalletF", "777")
	w, err := svc.RequestWithdrawal(ctx, "WalletF", "777")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	result, err := svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Failed != 1 || result.Succeeded != 0 {
		t.Errorf("run = %d succeeded / %d failed, want 0/1", result.Succeeded, result.Failed)
	}
	if chain.transferCalls != 3 {
		t.Errorf("transfer attempts = %d, want bounded at 3", chain.transferCalls)
	}

	stored, _ := repo.GetWithdrawal(ctx, w.ID)
	if stored.Status != models.WithdrawalStatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
	if stored.TxHash != nil {
		t.Errorf("failed withdrawal carries tx hash %q", *stored.TxHash)
	}
	if stored.ErrorMessage == nil || *stored.ErrorMessage == "" {
		t.Error("failed withdrawal has no error message")
	}

	// The reserved amount comes back, exactly once.
	balance, _ := repo.GetBalance(ctx, "WalletF")
	if balance.Pending.String() != "777" {
		t.Errorf("pending after refund = %s, want 777", balance.Pending)
	}

	// A second failure attempt against the same row is a no-op.
	if err := repo.FailWithdrawal(ctx, w.ID, "WalletF", decimal.RequireFromString("777"), "replay", time.Now().UTC()); err != nil {
		t.Fatalf("replayed fail errored: %v", err)
	}
	balance, _ = repo.GetBalance(ctx, "WalletF")
	if balance.Pending.String() != "777" {
		t.Errorf("pending after replayed failure = %s, want 777 (single refund)", balance.Pending)
	}
}

func TestProcessFailsAmountsAboveTransferRange(t *testing.T) {
	repo := setupTestRepo(t)
	chain := healthyChain()
	svc := newTestWithdrawalService(repo, chain)
	ctx := context.Background()

	// 2e22 does not fit in the u64 an SPL transfer takes; it must fail
	// before any transfer attempt and refund in full.
	creditPending(t, repo, "WalletG", "2e+22")
	w, err := svc.RequestWithdrawal(ctx, "WalletG", "2e+22")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	result, err := svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if chain.transferCalls != 0 {
		t.Errorf("transfer attempted %d times for an untransferable amount", chain.transferCalls)
	}

	stored, _ := repo.GetWithdrawal(ctx, w.ID)
	if stored.Status != models.WithdrawalStatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}

	balance, _ := repo.GetBalance(ctx, "WalletG")
	if balance.Pending.String() != "20000000000000000000000" {
		t.Errorf("pending after refund = %s, want 20000000000000000000000", balance.Pending)
	}
}

func TestProcessFailsOnLowCustodialBalances(t *testing.T) {
	repo := setupTestRepo(t)
	chain := healthyChain()
	chain.tokenBalance = big.NewInt(10) // less than the withdrawal
	svc := newTestWithdrawalService(repo, chain)
	ctx := context.Background()

	creditPending(t, repo, "WalletH", "500")
	if _, err := svc.RequestWithdrawal(ctx, "WalletH", "500"); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	result, err := svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("failed = %d, want 1", result.Failed)
	}
	if chain.transferCalls != 0 {
		t.Errorf("transfer attempted with insufficient custodial balance")
	}
}

func TestProcessSkipsWhenRunInFlight(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newTestWithdrawalService(repo, healthyChain())

	svc.running.Store(true)
	defer svc.running.Store(false)

	result, err := svc.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !result.Skipped {
		t.Error("overlapping run not reported as skipped")
	}
	if result.Processed != 0 {
		t.Errorf("skipped run processed %d items", result.Processed)
	}
}

func TestProcessEmptyQueue(t *testing.T) {
	repo := setupTestRepo(t)
	svc := newTestWithdrawalService(repo, healthyChain())

	result, err := svc.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Skipped || result.Processed != 0 {
		t.Errorf("empty queue run = %+v, want zero work and no skip", result)
	}
}
