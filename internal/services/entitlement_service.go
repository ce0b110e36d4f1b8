package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"daily-flip/internal/models"
	"daily-flip/internal/repository"
)

// TierResolver resolves a player identity to a tier name. The broader
// identity-linking subsystem is an external collaborator; this interface
// is the only contract the engine needs from it.
type TierResolver interface {
	ResolveTier(ctx context.Context, identity models.Identity) (string, error)
}

// DBTierResolver resolves tiers from admin-managed tier assignments,
// falling back to a default tier for unranked players.
type DBTierResolver struct {
	repo        *repository.Repository
	defaultTier string
}

func NewDBTierResolver(repo *repository.Repository, defaultTier string) *DBTierResolver {
	return &DBTierResolver{repo: repo, defaultTier: defaultTier}
}

func (r *DBTierResolver) ResolveTier(ctx context.Context, identity models.Identity) (string, error) {
	tier, err := r.repo.GetTierAssignment(ctx, identity.Key())
	if err != nil {
		return "", fmt.Errorf("failed to resolve tier: %w", err)
	}
	if tier == "" {
		return r.defaultTier, nil
	}
	return tier, nil
}

// EntitlementService maps identities and tiers to daily flip quotas and
// tracks bonus spin availability.
type EntitlementService struct {
	repo         *repository.Repository
	resolver     TierResolver
	tierQuotas   map[string]int
	defaultQuota int
}

func NewEntitlementService(
	repo *repository.Repository,
	resolver TierResolver,
	tierQuotas map[string]int,
	defaultQuota int,
) *EntitlementService {
	return &EntitlementService{
		repo:         repo,
		resolver:     resolver,
		tierQuotas:   tierQuotas,
		defaultQuota: defaultQuota,
	}
}

// MaxDailyFlips resolves the identity's tier and returns its daily quota.
func (s *EntitlementService) MaxDailyFlips(ctx context.Context, identity models.Identity) (string, int, error) {
	tier, err := s.resolver.ResolveTier(ctx, identity)
	if err != nil {
		return "", 0, err
	}

	quota, ok := s.tierQuotas[strings.ToLower(tier)]
	if !ok {
		quota = s.defaultQuota
	}
	return tier, quota, nil
}

// UsedToday counts the identity's quota flips for the current UTC day.
func (s *EntitlementService) UsedToday(ctx context.Context, identity models.Identity, now time.Time) (int, error) {
	count, err := s.repo.CountQuotaFlips(ctx, identity.Key(), FlipDate(now))
	if err != nil {
		return 0, fmt.Errorf("failed to count quota flips: %w", err)
	}
	return int(count), nil
}

// BonusGrant returns the identity's bonus spin grant, or nil.
func (s *EntitlementService) BonusGrant(ctx context.Context, identity models.Identity) (*models.BonusSpinGrant, error) {
	return s.repo.GetBonusGrant(ctx, identity.Key())
}

// QuotaStatus assembles the entitlement snapshot exposed to players.
func (s *EntitlementService) QuotaStatus(ctx context.Context, identity models.Identity) (*models.QuotaStatus, error) {
	now := time.Now().UTC()

	tier, max, err := s.MaxDailyFlips(ctx, identity)
	if err != nil {
		return nil, err
	}

	used, err := s.UsedToday(ctx, identity, now)
	if err != nil {
		return nil, err
	}

	remaining := max - used
	if remaining < 0 {
		remaining = 0
	}

	bonusRemaining := 0
	grant, err := s.BonusGrant(ctx, identity)
	if err != nil {
		return nil, err
	}
	if grant.Usable(now) {
		bonusRemaining = grant.Remaining
	}

	return &models.QuotaStatus{
		Tier:           tier,
		MaxDailyFlips:  max,
		FlipsUsedToday: used,
		FlipsRemaining: remaining,
		BonusRemaining: bonusRemaining,
		ResetsAt:       NextQuotaReset(now),
	}, nil
}

// FlipDate formats the UTC calendar day used for quota accounting.
func FlipDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MonthKey formats the calendar month key used by the sweepstakes tables.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01") + "-01"
}

// NextQuotaReset returns the next UTC midnight, when daily quotas reset.
func NextQuotaReset(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
