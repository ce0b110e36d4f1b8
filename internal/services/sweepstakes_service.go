package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"time"

	"daily-flip/internal/models"
	"daily-flip/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidMonth = errors.New("month must be formatted YYYY-MM-01")
	ErrNoEntries    = errors.New("no entries exist for this month")
	ErrNoPrize      = errors.New("no prize configured for this month")
	ErrNotDrawn     = errors.New("no winner drawn for this month")
	// ErrAlreadyDrawn is returned together with the original draw result;
	// callers must treat it as success-with-existing-winner, not a retry.
	ErrAlreadyDrawn = errors.New("winner already drawn for this month")
)

var monthKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-01$`)

type SweepstakesService struct {
	repo *repository.Repository
}

func NewSweepstakesService(repo *repository.Repository) *SweepstakesService {
	return &SweepstakesService{repo: repo}
}

// MonthStats returns total entries and participant count for a month.
func (s *SweepstakesService) MonthStats(ctx context.Context, month string) (*models.MonthStats, error) {
	if !monthKeyPattern.MatchString(month) {
		return nil, ErrInvalidMonth
	}
	return s.repo.GetMonthStats(ctx, month)
}

// CreatePrize configures the prize for a month (admin).
func (s *SweepstakesService) CreatePrize(ctx context.Context, req *models.CreatePrizeRequest) (*models.MonthlyPrize, error) {
	if !monthKeyPattern.MatchString(req.Month) {
		return nil, ErrInvalidMonth
	}

	prize := &models.MonthlyPrize{
		Month:       req.Month,
		Name:        req.Name,
		Description: req.Description,
		Value:       req.Value,
		Status:      models.PrizeStatusActive,
	}
	if err := s.repo.CreatePrize(ctx, prize); err != nil {
		return nil, fmt.Errorf("failed to create prize: %w", err)
	}
	return prize, nil
}

// Draw selects the month's winner from a weighted ticket pool where each
// participant holds exactly their entry count in tickets. The draw uses a
// cryptographically secure random index and records the 1-indexed winning
// ticket for auditability. Re-invocation for a drawn month returns the
// original winner with ErrAlreadyDrawn.
func (s *SweepstakesService) Draw(ctx context.Context, month string) (*models.DrawResult, error) {
	if !monthKeyPattern.MatchString(month) {
		return nil, ErrInvalidMonth
	}

	prize, err := s.repo.GetPrize(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load prize: %w", err)
	}
	if prize == nil {
		return nil, ErrNoPrize
	}
	if prize.Status != models.PrizeStatusActive {
		return s.existingResult(ctx, month)
	}

	entries, err := s.repo.GetMonthlyEntries(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	var poolSize int64
	for _, e := range entries {
		poolSize += e.Entries
	}
	if poolSize <= 0 {
		return nil, ErrNoEntries
	}

	now := time.Now().UTC()

	// The status flip is the mutual-exclusion boundary for concurrent
	// draw attempts.
	claimed, err := s.repo.ClaimDraw(ctx, month, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim draw: %w", err)
	}
	if !claimed {
		return s.existingResult(ctx, month)
	}

	ticket, err := rand.Int(rand.Reader, big.NewInt(poolSize))
	if err != nil {
		return nil, fmt.Errorf("failed to draw ticket: %w", err)
	}
	ticketIndex := ticket.Int64()

	// Walk the flat pool: each participant occupies a contiguous run of
	// tickets equal to their entry count.
	var winner *models.MonthlyEntry
	cursor := int64(0)
	for _, e := range entries {
		cursor += e.Entries
		if ticketIndex < cursor {
			winner = e
			break
		}
	}
	if winner == nil {
		return nil, fmt.Errorf("ticket %d out of pool range %d", ticketIndex, poolSize)
	}

	record := &models.WinnerRecord{
		ID:                uuid.New(),
		Month:             month,
		WalletAddress:     winner.WalletAddress,
		FID:               winner.FID,
		DisplayName:       winner.DisplayName,
		PrizeName:         prize.Name,
		PrizeValue:        prize.Value,
		WinnerEntries:     winner.Entries,
		TotalParticipants: int64(len(entries)),
		PoolSize:          poolSize,
		WinningTicket:     ticketIndex + 1,
		DrawnAt:           now,
	}

	if err := s.repo.CreateWinnerRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist winner record: %w", err)
	}

	if err := s.repo.SetPrizeWinner(ctx, month, winner.WalletAddress, winner.FID, winner.DisplayName, winner.Entries); err != nil {
		log.Printf("[Sweepstakes] Warning: failed to denormalize winner onto prize %s: %v", month, err)
	}

	log.Printf("[Sweepstakes] Drew winner for %s: %s with ticket %d of %d",
		month, winner.DisplayName, record.WinningTicket, poolSize)

	return resultFromRecord(record, false), nil
}

// Winner returns the recorded draw result for a month, or ErrNotDrawn.
func (s *SweepstakesService) Winner(ctx context.Context, month string) (*models.DrawResult, error) {
	if !monthKeyPattern.MatchString(month) {
		return nil, ErrInvalidMonth
	}

	record, err := s.repo.GetWinnerRecord(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load winner record: %w", err)
	}
	if record == nil {
		return nil, ErrNotDrawn
	}
	return resultFromRecord(record, true), nil
}

// existingResult rebuilds a DrawResult from the permanent winner record.
func (s *SweepstakesService) existingResult(ctx context.Context, month string) (*models.DrawResult, error) {
	record, err := s.repo.GetWinnerRecord(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load winner record: %w", err)
	}
	if record == nil {
		// Status says drawn but no record exists; surface it rather than
		// silently re-drawing.
		return nil, fmt.Errorf("prize for %s is drawn but no winner record exists", month)
	}
	return resultFromRecord(record, true), ErrAlreadyDrawn
}

func resultFromRecord(record *models.WinnerRecord, alreadyDrawn bool) *models.DrawResult {
	pct := 0.0
	if record.PoolSize > 0 {
		pct = float64(record.WinnerEntries) / float64(record.PoolSize) * 100
	}
	return &models.DrawResult{
		Month:             record.Month,
		WinnerWallet:      record.WalletAddress,
		WinnerFID:         record.FID,
		WinnerName:        record.DisplayName,
		WinnerEntries:     record.WinnerEntries,
		TotalParticipants: record.TotalParticipants,
		PoolSize:          record.PoolSize,
		WinningTicket:     record.WinningTicket,
		Odds:              fmt.Sprintf("%d/%d (%.1f%%)", record.WinnerEntries, record.PoolSize, pct),
		AlreadyDrawn:      alreadyDrawn,
	}
}
