package cache

import (
	"fmt"

	"github.com/kickback/api/internal/pkg/log"
	"github.com/kickback/api/internal/platform/config"
)

// New builds the Cache selected by cfg.Backend
func New(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemoryCache(cfg.MaxMemory, cfg.CleanupInterval), nil
	case BackendRedis:
		return NewRedisCache(RedisOptions{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			Database:     cfg.Redis.Database,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxConnAge:   cfg.Redis.MaxConnAge,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidBackend, cfg.Backend)
	}
}

// NewServiceFromConfig returns a GenericCacheService for cfg. Disabled caching, or a
// backend that cannot be reached, yields a disabled service instead of an error.
func NewServiceFromConfig(cfg config.CacheConfig) *GenericCacheService {
	if !cfg.Enabled {
		return NewGenericCacheService(nil, cfg.Prefix, cfg.TTL)
	}

	c, err := New(cfg)
	if err != nil {
		log.Warn("Cache backend %q unavailable, continuing without cache: %v", cfg.Backend, err)
		return NewGenericCacheService(nil, cfg.Prefix, cfg.TTL)
	}
	log.Info("Cache initialised with %s backend", cfg.Backend)
	return NewGenericCacheService(c, cfg.Prefix, cfg.TTL)
}
