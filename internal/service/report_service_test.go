package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/layaway-engine/internal/cache"
	"github.com/segyhp/layaway-engine/internal/domain"
	"github.com/segyhp/layaway-engine/internal/logger"
	"github.com/segyhp/layaway-engine/internal/mocks"
	customError "github.com/segyhp/layaway-engine/pkg/errors"
)

func TestGetSummary_ComputesAndCaches(t *testing.T) {
	svc, store := newTestService(t)
	open := createPlan(t, svc, "HDMI", 4, 4, domain.CadenceWeekly, time.Time{})
	done := createPlan(t, svc, "HDMI", 2, 2, domain.CadenceWeekly, time.Time{})
	_, err := pay(svc, open.ID, 25000)
	require.NoError(t, err)
	_, err = pay(svc, done.ID, 50000)
	require.NoError(t, err)

	mockCache := &mocks.MockSummaryCache{}
	reports := &ReportService{
		PlanRepo: store,
		Cache:    mockCache,
		Logger:   logger.Discard(),
		Clock:    func() time.Time { return testNow },
		Location: time.UTC,
		TTL:      time.Minute,
	}

	mockCache.On("Get", mock.Anything, cache.SummaryKey).Return(nil, false, nil).Once()
	mockCache.On("Set", mock.Anything, cache.SummaryKey, mock.AnythingOfType("*domain.Stats"), time.Minute).Return(nil).Once()

	stats, err := reports.GetSummary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalPlans)
	assert.Equal(t, 1, stats.ActiveCount)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.True(t, stats.TotalFinanced.Equal(decimal.NewFromInt(150000)))
	assert.True(t, stats.TotalPaid.Equal(decimal.NewFromInt(75000)))
	assert.True(t, stats.TotalPending.Equal(decimal.NewFromInt(75000)))
	assert.Equal(t, 2, stats.PaymentsToday)
	assert.Equal(t, 2, stats.PaymentsThisWeek)
	assert.True(t, stats.AmountCollectedToday.Equal(decimal.NewFromInt(75000)))
	mockCache.AssertExpectations(t)
}

func TestGetSummary_ServesFromCache(t *testing.T) {
	mockPlanRepo := &mocks.MockPlanRepository{}
	mockCache := &mocks.MockSummaryCache{}
	reports := &ReportService{
		PlanRepo: mockPlanRepo,
		Cache:    mockCache,
		Logger:   logger.Discard(),
		Clock:    func() time.Time { return testNow },
		Location: time.UTC,
		TTL:      time.Minute,
	}

	cached := &domain.Stats{TotalPlans: 7}
	mockCache.On("Get", mock.Anything, cache.SummaryKey).Return(cached, true, nil)

	stats, err := reports.GetSummary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalPlans)
	mockPlanRepo.AssertNotCalled(t, "ListPlans", mock.Anything, mock.Anything)
}

func TestGetSummary_CacheFailuresAreIgnored(t *testing.T) {
	svc, store := newTestService(t)
	createPlan(t, svc, "HDMI", 4, 4, domain.CadenceWeekly, time.Time{})

	mockCache := &mocks.MockSummaryCache{}
	reports := &ReportService{
		PlanRepo: store,
		Cache:    mockCache,
		Logger:   logger.Discard(),
		Clock:    func() time.Time { return testNow },
		Location: time.UTC,
		TTL:      time.Minute,
	}

	mockCache.On("Get", mock.Anything, cache.SummaryKey).Return(nil, false, errors.New("dial tcp: connection refused"))
	mockCache.On("Set", mock.Anything, cache.SummaryKey, mock.Anything, time.Minute).Return(errors.New("dial tcp: connection refused"))

	stats, err := reports.GetSummary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPlans)
}

func TestGetSummary_NoTTLSkipsCacheWrite(t *testing.T) {
	_, store := newTestService(t)

	mockCache := &mocks.MockSummaryCache{}
	reports := &ReportService{
		PlanRepo: store,
		Cache:    mockCache,
		Logger:   logger.Discard(),
		Clock:    func() time.Time { return testNow },
		Location: time.UTC,
	}
	mockCache.On("Get", mock.Anything, cache.SummaryKey).Return(nil, false, nil)

	stats, err := reports.GetSummary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalPlans)
	assert.True(t, stats.TotalFinanced.IsZero())
	mockCache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSummary_StoreFailure(t *testing.T) {
	mockPlanRepo := &mocks.MockPlanRepository{}
	reports := &ReportService{
		PlanRepo: mockPlanRepo,
		Cache:    cache.NoopSummaryCache{},
		Logger:   logger.Discard(),
		Clock:    func() time.Time { return testNow },
		Location: time.UTC,
	}
	mockPlanRepo.On("ListPlans", mock.Anything, mock.Anything).Return(nil, errors.New("too many connections"))

	_, err := reports.GetSummary(context.Background())

	assert.ErrorIs(t, err, customError.ErrStore)
}
