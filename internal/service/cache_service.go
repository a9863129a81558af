package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/academic-scheduler/pkg/errors"
)

const cacheNamespace = "scheduler:"

// CacheRepository stores JSON payloads under a key.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService is a read-through cache for reference data that changes
// rarely. A nil or disabled service always loads from the source.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: nilLogger(logger), enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Remember returns the cached value for key, or calls load and stores its
// result. Cache failures are logged and never fail the call; load errors
// are returned as is.
func Remember[T any](ctx context.Context, s *CacheService, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if !s.Enabled() {
		return load(ctx)
	}
	key = cacheNamespace + key

	var cached T
	start := time.Now()
	err := s.repo.Get(ctx, key, &cached)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start = time.Now()
	if err := s.repo.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	s.metrics.ObserveCacheWrite(time.Since(start))
	return value, nil
}

// Forget drops the given keys.
func (s *CacheService) Forget(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = cacheNamespace + key
	}
	if err := s.repo.Delete(ctx, namespaced...); err != nil {
		s.logger.Warn("cache delete failed", zap.Strings("keys", namespaced), zap.Error(err))
		return err
	}
	return nil
}
