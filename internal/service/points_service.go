package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/metrics"
	"github.com/avakara/ewaste-platform/internal/model"
	"github.com/avakara/ewaste-platform/internal/repository"
)

const monthlyResetJob = "monthly_points_reset"

// WastePoints is the per-unit reward for each waste type, keyed by lowercase type name.
var WastePoints = map[string]int64{
	"mobile":    50,
	"phones":    50,
	"computers": 150,
	"laptop":    100,
	"batteries": 20,
}

// RankBonuses are added to the redeemable balance of the top monthly earners, first place first.
var RankBonuses = []int64{1000, 750, 500, 250, 100}

// PointsFor returns the reward for a request's items. Unknown waste types earn nothing.
func PointsFor(items []model.WasteItem) int64 {
	var total int64
	for _, item := range items {
		total += WastePoints[item.NormalizedType()] * int64(item.Quantity)
	}
	return total
}

type PointsService struct {
	store repository.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewPointsService(store repository.Store, log zerolog.Logger) *PointsService {
	return &PointsService{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// creditCompletion runs inside the processingCompleted transaction.
func (s *PointsService) creditCompletion(ctx context.Context, tx repository.Store, req *model.Request) error {
	points := PointsFor(req.Items)
	err := tx.Rewards().CreditUser(ctx, req.UserID, repository.PointsCredit{
		Points:            points,
		MonthlyPoints:     points,
		CompletedRequests: 1,
	})
	if err != nil {
		return storeError(err, "user")
	}
	metrics.PointsAwarded.Add(float64(points))
	return nil
}

// CreditCommunityAction adds a flat amount for participation outside pickup requests.
func (s *PointsService) CreditCommunityAction(ctx context.Context, userID uuid.UUID, amount int64) error {
	return s.creditCommunity(ctx, s.store, userID, amount)
}

func (s *PointsService) creditCommunity(ctx context.Context, store repository.Store, userID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	err := store.Rewards().CreditUser(ctx, userID, repository.PointsCredit{
		Points:          amount,
		MonthlyPoints:   amount,
		CommunityPoints: amount,
	})
	if err != nil {
		return storeError(err, "user")
	}
	metrics.PointsAwarded.Add(float64(amount))
	return nil
}

// MonthlyReset closes the previous calendar month: it awards the rank bonuses and zeroes monthly
// counters once per closed month. It reports false when the month was already closed.
// The first run of a fresh deployment after the 1st only records the month as closed, so a
// deployment in the middle of a month does not reset partial counters.
func (s *PointsService) MonthlyReset(ctx context.Context, now time.Time) (bool, error) {
	now = now.UTC()
	period := ClosingPeriod(now)

	var ran bool
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		seen, err := tx.Jobs().HasRun(ctx, monthlyResetJob)
		if err != nil {
			return err
		}
		claimed, err := tx.Jobs().Claim(ctx, monthlyResetJob, period, now)
		if err != nil {
			return err
		}
		if !claimed {
			return nil
		}
		if !seen && now.Day() != 1 {
			s.log.Info().Str("period", period).Msg("monthly points reset baseline recorded")
			return nil
		}

		ranked, err := tx.Rewards().RankMonthly(ctx, len(RankBonuses))
		if err != nil {
			return err
		}
		if err := tx.Rewards().ResetMonthly(ctx, now); err != nil {
			return err
		}
		for i, entry := range ranked {
			if err := tx.Rewards().AwardRank(ctx, entry.UserID, i+1, RankBonuses[i]); err != nil {
				return err
			}
		}
		ran = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if ran {
		metrics.MonthlyResetsTotal.Inc()
		s.log.Info().Str("period", period).Msg("monthly points reset")
	}
	return ran, nil
}

// ClosingPeriod names the month that a reset at now closes, as YYYY-MM.
func ClosingPeriod(now time.Time) string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0).Format("2006-01")
}

func (s *PointsService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.store.Rewards().RankMonthly(ctx, limit)
}
