package cache

import (
	"context"
	"time"

	"github.com/segyhp/layaway-engine/internal/domain"
)

// SummaryKey is where the reporting summary is cached.
const SummaryKey = "layaway:summary"

type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.Stats, bool, error)
	Set(ctx context.Context, key string, value *domain.Stats, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.Stats, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.Stats, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Delete(_ context.Context, _ string) error {
	return nil
}
