package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"daily-flip/internal/models"
	"daily-flip/internal/repository"
)

func seedEntries(t *testing.T, repo *repository.Repository, month string, counts map[string]int) {
	t.Helper()
	ctx := context.Background()
	for key, n := range counts {
		for i := 0; i < n; i++ {
			err := repo.IncrementMonthlyEntry(ctx, month, key, nil, nil, key, false)
			if err != nil {
				t.Fatalf("failed to seed entry for %s: %v", key, err)
			}
		}
	}
}

func seedPrize(t *testing.T, svc *SweepstakesService, month string) {
	t.Helper()
	_, err := svc.CreatePrize(context.Background(), &models.CreatePrizeRequest{
		Month: month,
		Name:  "Token airdrop",
		Value: "1000000",
	})
	if err != nil {
		t.Fatalf("failed to create prize: %v", err)
	}
}

func TestDrawRejectsBadMonth(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewSweepstakesService(repo)

	for _, month := range []string{"", "2025-07", "2025-07-15", "july"} {
		if _, err := svc.Draw(context.Background(), month); !errors.Is(err, ErrInvalidMonth) {
			t.Errorf("Draw(%q): expected ErrInvalidMonth, got %v", month, err)
		}
	}
}

func TestDrawRequiresPrize(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewSweepstakesService(repo)

	seedEntries(t, repo, "2025-07-01", map[string]int{"fid:1": 1})
	if _, err := svc.Draw(context.Background(), "2025-07-01"); !errors.Is(err, ErrNoPrize) {
		t.Fatalf("expected ErrNoPrize, got %v", err)
	}
}

func TestDrawRequiresEntries(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewSweepstakesService(repo)

	seedPrize(t, svc, "2025-07-01")
	if _, err := svc.Draw(context.Background(), "2025-07-01"); !errors.Is(err, ErrNoEntries) {
		t.Fatalf("expected ErrNoEntries, got %v", err)
	}
}

func TestDrawRecordsWinnerAndTicket(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewSweepstakesService(repo)
	ctx := context.Background()

	month := "2025-07-01"
	seedEntries(t, repo, month, map[string]int{"fid:1": 3, "fid:2": 1})
	seedPrize(t, svc, month)

	result, err := svc.Draw(ctx, month)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}

	if result.PoolSize != 4 {
		t.Errorf("pool size = %d, want 4", result.PoolSize)
	}
	if result.TotalParticipants != 2 {
		t.Errorf("participants = %d, want 2", result.TotalParticipants)
	}
	if result.WinningTicket < 1 || result.WinningTicket > result.PoolSize {
		t.Errorf("winning ticket %d outside 1..%d", result.WinningTicket, result.PoolSize)
	}
	if result.AlreadyDrawn {
		t.Error("first draw flagged as already drawn")
	}
	if result.WinnerName != "fid:1" && result.WinnerName != "fid:2" {
		t.Errorf("winner %q is not a participant", result.WinnerName)
	}

	record, err := repo.GetWinnerRecord(ctx, month)
	if err != nil || record == nil {
		t.Fatalf("no winner record persisted: %v", err)
	}
	if record.WinningTicket != result.WinningTicket {
		t.Errorf("record ticket %d != result ticket %d", record.WinningTicket, result.WinningTicket)
	}
}

func TestDrawIsIdempotent(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewSweepstakesService(repo)
	ctx := context.Background()

	month := "2025-08-01"
	seedEntries(t, repo, month, map[string]int{"fid:1": 2, "fid:2": 2})
	seedPrize(t, svc, month)

	first, err := svc.Draw(ctx, month)
	if err != nil {
		t.Fatalf("first draw failed: %v", err)
	}

	second, err := svc.Draw(ctx, month)
	if !errors.Is(err, ErrAlreadyDrawn) {
		t.Fatalf("expected ErrAlreadyDrawn, got %v", err)
	}
	if second == nil {
		t.Fatal("repeat draw returned no result")
	}
	if !second.AlreadyDrawn {
		t.Error("repeat draw not flagged already_drawn")
	}
	if second.WinnerName != first.WinnerName || second.WinningTicket != first.WinningTicket {
		t.Errorf("repeat draw changed the winner: %q/%d vs %q/%d",
			first.WinnerName, first.WinningTicket, second.WinnerName, second.WinningTicket)
	}

	var count int64
	if err := repo.DB().Model(&models.WinnerRecord{}).Where("month = ?", month).Count(&count).Error; err != nil {
		t.Fatalf("failed to count winner records: %v", err)
	}
	if count != 1 {
		t.Errorf("winner records = %d, want 1", count)
	}
}

func TestDrawWeightsByEntries(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}

	repo := setupTestRepo(t)
	svc := NewSweepstakesService(repo)
	ctx := context.Background()

	// Heavy holds 3 of every 4 tickets; across many independent draws it
	// should win roughly 75% of the time.
	heavyWins := 0
	const draws = 400
	for i := 0; i < draws; i++ {
		month := fmt.Sprintf("%04d-%02d-01", 1000+i/12, 1+i%12)
		seedEntries(t, repo, month, map[string]int{"heavy": 3, "light": 1})
		seedPrize(t, svc, month)

		result, err := svc.Draw(ctx, month)
		if err != nil {
			t.Fatalf("draw %d failed: %v", i, err)
		}
		if result.WinnerName == "heavy" {
			heavyWins++
		}
	}

	ratio := float64(heavyWins) / float64(draws)
	if ratio < 0.60 || ratio > 0.90 {
		t.Errorf("heavy won %.1f%% of draws, expected around 75%%", ratio*100)
	}
}

func TestMonthStats(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewSweepstakesService(repo)

	month := "2025-09-01"
	seedEntries(t, repo, month, map[string]int{"fid:1": 3, "fid:2": 2, "fid:3": 1})

	stats, err := svc.MonthStats(context.Background(), month)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalEntries != 6 {
		t.Errorf("total entries = %d, want 6", stats.TotalEntries)
	}
	if stats.Participants != 3 {
		t.Errorf("participants = %d, want 3", stats.Participants)
	}
}

func TestWinnerBeforeDraw(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewSweepstakesService(repo)

	if _, err := svc.Winner(context.Background(), "2025-10-01"); !errors.Is(err, ErrNotDrawn) {
		t.Fatalf("expected ErrNotDrawn, got %v", err)
	}
}
