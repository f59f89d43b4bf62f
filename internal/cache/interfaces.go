package cache

import (
	"context"
	"time"
)

// Cache is the read-through cache used by the link repository.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}) error
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

// RateLimiter counts requests per key within a rolling window.
type RateLimiter interface {
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)
}
