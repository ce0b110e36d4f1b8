package services

import (
	"testing"

	"daily-flip/internal/database"
	"daily-flip/internal/fairness"
	"daily-flip/internal/models"
	"daily-flip/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestRepo opens the shared in-memory database, runs migrations and
// wipes every table so each test starts clean.
func setupTestRepo(t *testing.T) *repository.Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	tables := []string{
		"flip_records",
		"player_balances",
		"bonus_spin_grants",
		"tier_assignments",
		"monthly_entries",
		"monthly_prizes",
		"winner_records",
		"withdrawals",
	}
	for _, table := range tables {
		db.Exec("DELETE FROM " + table)
	}

	return repository.NewRepository(db)
}

func newTestFlipService(t *testing.T, repo *repository.Repository, defaultQuota int, reward string) *FlipService {
	t.Helper()

	resolver := NewDBTierResolver(repo, "unranked")
	entitlements := NewEntitlementService(repo, resolver, map[string]int{}, defaultQuota)
	svc, err := NewFlipService(repo, entitlements, reward)
	if err != nil {
		t.Fatalf("failed to create flip service: %v", err)
	}
	return svc
}

// verifySeedChain runs the public fairness check against a claim's seed
// material.
func verifySeedChain(t *testing.T, sb models.SeedBreakdown, outcome fairness.Side) bool {
	t.Helper()
	result := fairness.Verify(sb.ClientSeed, sb.ClientHash, sb.ServerSeed, sb.ServerHash, sb.CombinedHash, outcome)
	if !result.Valid {
		t.Logf("seed chain mismatch: %s", result.Mismatch)
	}
	return result.Valid
}

func int64Ptr(n int64) *int64 { return &n }
