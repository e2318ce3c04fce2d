package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/segyhp/layaway-engine/internal/config"
	"github.com/segyhp/layaway-engine/internal/domain"
)

type RedisSummaryCache struct {
	client *redis.Client
}

func NewRedisSummaryCache(addr string, password string, db int) *RedisSummaryCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisSummaryCache{client: client}
}

// NewRedisSummaryCacheFromURL accepts a redis:// or rediss:// URL.
func NewRedisSummaryCacheFromURL(rawURL string) (*RedisSummaryCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &RedisSummaryCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisSummaryCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

func (c *RedisSummaryCache) Get(ctx context.Context, key string) (*domain.Stats, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stats domain.Stats
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *RedisSummaryCache) Set(ctx context.Context, key string, value *domain.Stats, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisSummaryCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// FromConfig returns a Redis-backed cache when REDIS_URL or REDIS_HOST is
// set, and a NoopSummaryCache otherwise. The Redis cache is also returned on
// its own so callers can ping and close it; it is nil for the no-op case.
func FromConfig(cfg config.RedisConfig, addr string) (SummaryCache, *RedisSummaryCache, error) {
	switch {
	case cfg.URL != "":
		c, err := NewRedisSummaryCacheFromURL(cfg.URL)
		if err != nil {
			return NoopSummaryCache{}, nil, err
		}
		return c, c, nil
	case addr != "":
		c := NewRedisSummaryCache(addr, cfg.Password, cfg.DB)
		return c, c, nil
	default:
		return NoopSummaryCache{}, nil, nil
	}
}
