package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"daily-flip/internal/fairness"
	"daily-flip/internal/models"
	"daily-flip/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingIdentity = errors.New("at least one of wallet or fid is required")
	ErrInvalidChoice   = errors.New("choice must be heads or tails")
	// ErrNoFlipsRemaining means the daily quota is exhausted and no bonus
	// spin is available; no record is written.
	ErrNoFlipsRemaining = errors.New("no flips remaining today")
)

// ClientMeta is best-effort, non-authoritative request metadata recorded
// on the flip ledger.
type ClientMeta struct {
	IP        string
	UserAgent string
}

type FlipService struct {
	repo         *repository.Repository
	entitlements *EntitlementService
	reward       decimal.Decimal

	// Per-identity locks serialize the check-then-insert window of the
	// claim protocol so concurrent claims cannot both observe remaining > 0
	// and overrun the daily quota.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFlipService(repo *repository.Repository, entitlements *EntitlementService, rewardAmount string) (*FlipService, error) {
	reward, err := decimal.NewFromString(rewardAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid flip reward amount %q: %w", rewardAmount, err)
	}
	if reward.Sign() <= 0 {
		return nil, fmt.Errorf("flip reward amount must be positive, got %q", rewardAmount)
	}

	return &FlipService{
		repo:         repo,
		entitlements: entitlements,
		reward:       reward,
		locks:        make(map[string]*sync.Mutex),
	}, nil
}

func (s *FlipService) identityLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Claim runs the full flip claim protocol: entitlement check, outcome
// derivation, ledger write, sweepstakes entry, and balance credit on win.
// The claim path never calls out to the chain.
func (s *FlipService) Claim(ctx context.Context, req *models.FlipClaimRequest, meta ClientMeta) (*models.FlipClaimResponse, error) {
	identity := models.Identity{WalletAddress: req.WalletAddress, FID: req.FID}
	if !identity.Valid() {
		return nil, ErrMissingIdentity
	}

	choice, err := fairness.ParseSide(req.Choice)
	if err != nil {
		return nil, ErrInvalidChoice
	}

	key := identity.Key()
	lock := s.identityLock(key)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()

	tier, maxFlips, err := s.entitlements.MaxDailyFlips(ctx, identity)
	if err != nil {
		return nil, err
	}

	used, err := s.entitlements.UsedToday(ctx, identity, now)
	if err != nil {
		return nil, err
	}

	remaining := maxFlips - used
	if remaining < 0 {
		remaining = 0
	}

	grant, err := s.entitlements.BonusGrant(ctx, identity)
	if err != nil {
		return nil, err
	}
	bonusAvailable := grant.Usable(now)

	if remaining == 0 && !bonusAvailable {
		return nil, ErrNoFlipsRemaining
	}

	// A flip is classified bonus only once the daily quota is gone.
	kind := models.FlipKindQuota
	if remaining == 0 {
		kind = models.FlipKindBonus
	}

	// Both seeds are server-generated in the free-flip flow; the full
	// breakdown is returned so anyone can recompute the outcome.
	clientSeed, err := fairness.GenerateSeed()
	if err != nil {
		return nil, err
	}
	serverSeed, err := fairness.GenerateSeed()
	if err != nil {
		return nil, err
	}

	clientHash := fairness.HashSeed(clientSeed)
	serverHash := fairness.HashSeed(serverSeed)
	combined := fairness.Combine(clientSeed, serverSeed)

	result, err := fairness.OutcomeFromHash(combined)
	if err != nil {
		return nil, err
	}

	isWin := result == choice
	payout := decimal.Zero
	if isWin {
		payout = s.reward
	}

	flip := &models.FlipRecord{
		ID:            uuid.New(),
		WalletAddress: req.WalletAddress,
		FID:           req.FID,
		IdentityKey:   key,
		Choice:        choice,
		ClientSeed:    clientSeed,
		ClientHash:    clientHash,
		ServerSeed:    serverSeed,
		ServerHash:    serverHash,
		CombinedHash:  combined,
		Result:        result,
		IsWin:         isWin,
		Payout:        payout,
		Kind:          kind,
		FlipDate:      FlipDate(now),
		Status:        models.FlipStatusRevealed,
		CreatedAt:     now,
	}
	if meta.IP != "" {
		flip.ClientIP = &meta.IP
	}
	if meta.UserAgent != "" {
		flip.UserAgent = &meta.UserAgent
	}

	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.CreateFlip(ctx, flip); err != nil {
			return fmt.Errorf("failed to record flip: %w", err)
		}

		if kind == models.FlipKindBonus {
			consumed, err := txRepo.ConsumeBonusSpin(ctx, key, now)
			if err != nil {
				return fmt.Errorf("failed to consume bonus spin: %w", err)
			}
			if !consumed {
				// The availability check above passed, so losing the spin
				// here means a concurrent consumer got it first; abort the
				// whole claim rather than granting an unpaid bonus flip.
				return ErrNoFlipsRemaining
			}
		}

		// Entries are a participation reward: every flip counts, win or lose.
		if err := txRepo.IncrementMonthlyEntry(
			ctx,
			MonthKey(now),
			key,
			req.WalletAddress,
			req.FID,
			identity.DisplayName(),
			kind == models.FlipKindBonus,
		); err != nil {
			return fmt.Errorf("failed to record sweepstakes entry: %w", err)
		}

		if isWin && req.WalletAddress != nil && *req.WalletAddress != "" {
			if err := txRepo.CreditWin(ctx, *req.WalletAddress, payout); err != nil {
				return fmt.Errorf("failed to credit balance: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	usedAfter := used
	remainingAfter := remaining
	bonusRemaining := 0
	if kind == models.FlipKindQuota {
		usedAfter++
		remainingAfter--
	}
	if grant != nil {
		bonusRemaining = grant.Remaining
		if kind == models.FlipKindBonus {
			bonusRemaining--
		}
	}

	log.Printf("[FlipService] %s flipped %s, got %s (win=%t, kind=%s, tier=%s)",
		key, choice, result, isWin, kind, tier)

	return &models.FlipClaimResponse{
		FlipID:         flip.ID.String(),
		Outcome:        result,
		IsWin:          isWin,
		PayoutAmount:   payout.String(),
		IsBonusFlip:    kind == models.FlipKindBonus,
		FlipsUsedToday: usedAfter,
		FlipsRemaining: remainingAfter,
		BonusRemaining: bonusRemaining,
		Tier:           tier,
		MaxDailyFlips:  maxFlips,
		SeedBreakdown: models.SeedBreakdown{
			ClientSeed:   clientSeed,
			ClientHash:   clientHash,
			ServerSeed:   serverSeed,
			ServerHash:   serverHash,
			CombinedHash: combined,
		},
	}, nil
}

// Status returns the identity's current entitlement snapshot.
func (s *FlipService) Status(ctx context.Context, identity models.Identity) (*models.QuotaStatus, error) {
	if !identity.Valid() {
		return nil, ErrMissingIdentity
	}
	return s.entitlements.QuotaStatus(ctx, identity)
}
