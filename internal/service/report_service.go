package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/segyhp/layaway-engine/internal/cache"
	"github.com/segyhp/layaway-engine/internal/config"
	"github.com/segyhp/layaway-engine/internal/domain"
	"github.com/segyhp/layaway-engine/internal/repository"
	customError "github.com/segyhp/layaway-engine/pkg/errors"
	"github.com/segyhp/layaway-engine/pkg/utils"
)

// ReportService builds read-only summaries. Results may be served from cache
// for up to TTL after a write.
type ReportService struct {
	PlanRepo repository.PlanRepository
	Cache    cache.SummaryCache
	Logger   *logrus.Logger
	Clock    Clock
	Location *time.Location
	TTL      time.Duration
}

func NewReportService(planRepo repository.PlanRepository, summaryCache cache.SummaryCache, cfg *config.Config, logger *logrus.Logger) *ReportService {
	return &ReportService{
		PlanRepo: planRepo,
		Cache:    summaryCache,
		Logger:   logger,
		Clock:    time.Now,
		Location: cfg.Location(),
		TTL:      cfg.GetReportCacheTTL(),
	}
}

func (s *ReportService) GetSummary(ctx context.Context) (*domain.Stats, error) {
	if cached, ok, err := s.Cache.Get(ctx, cache.SummaryKey); err != nil {
		s.Logger.WithError(err).Warn("summary cache read failed")
	} else if ok {
		return cached, nil
	}

	now := s.Clock()
	plans, err := s.PlanRepo.ListPlans(ctx, domain.PlanFilter{})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	// Only this week's payments feed the counters
	weekStart := utils.StartOfWeek(utils.Today(now, s.Location))
	payments, err := s.PlanRepo.ListPaymentsBetween(ctx, weekStart, utils.AddDays(weekStart, 7))
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	stats := domain.Summarize(plans, payments, now, s.Location)

	if s.TTL > 0 {
		if err := s.Cache.Set(ctx, cache.SummaryKey, &stats, s.TTL); err != nil {
			s.Logger.WithError(err).Warn("summary cache write failed")
		}
	}

	return &stats, nil
}
