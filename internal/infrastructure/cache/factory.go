package cache

import (
	"fmt"

	"github.com/store/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Provider names accepted by cache.provider
const (
	ProviderRedis  = "redis"
	ProviderMemory = "memory"
)

// EntityCacheFactory creates entity caches based on configuration
type EntityCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// EntityCacheFactoryOption is a functional option for configuring the factory
type EntityCacheFactoryOption func(*EntityCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) EntityCacheFactoryOption {
	return func(f *EntityCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) EntityCacheFactoryOption {
	return func(f *EntityCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewEntityCacheFactory creates a new factory
func NewEntityCacheFactory(cfg config.RedisConfig, opts ...EntityCacheFactoryOption) *EntityCacheFactory {
	f := &EntityCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache builds the cache for the given provider. A Redis cache that
// cannot connect degrades to an in-memory cache when fallback is allowed.
func (f *EntityCacheFactory) CreateCache(provider string) (EntityCache, error) {
	if provider == ProviderMemory {
		f.logger.Info("using in-memory entity cache")
		return NewInMemoryEntityCache(), nil
	}

	c, err := NewRedisEntityCache(f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis entity cache", zap.String("addr", f.redisConfig.Addr()))
		return c, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for entity cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory entity cache. "+
		"Cached records are not invalidated across instances.",
		zap.Error(err),
	)
	return NewInMemoryEntityCache(), nil
}
