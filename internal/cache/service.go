package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kickback/api/internal/pkg/log"
)

// GenericCacheService stores JSON values under a shared key prefix
type GenericCacheService struct {
	cache   Cache
	prefix  string
	ttl     time.Duration
	enabled bool
}

// NewGenericCacheService wraps a Cache. A nil cache yields a disabled service.
func NewGenericCacheService(c Cache, prefix string, ttl time.Duration) *GenericCacheService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &GenericCacheService{cache: c, prefix: prefix, ttl: ttl, enabled: c != nil}
}

// GetCached retrieves and unmarshals cached data into target
func (s *GenericCacheService) GetCached(ctx context.Context, key string, target interface{}) error {
	if !s.IsEnabled() {
		return ErrCacheDisabled
	}

	fullKey := s.prefix + key
	data, err := s.cache.Get(ctx, fullKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Error("Cache get error for key %s: %v", fullKey, err)
		}
		return err
	}

	if err := json.Unmarshal(data, target); err != nil {
		log.Error("Cache data unmarshal error for key %s: %v", fullKey, err)
		return fmt.Errorf("%w: %v", ErrDeserializationFailed, err)
	}
	return nil
}

// CacheData marshals and stores data, using the default TTL unless one is given
func (s *GenericCacheService) CacheData(ctx context.Context, key string, data interface{}, ttl ...time.Duration) error {
	if !s.IsEnabled() {
		return ErrCacheDisabled
	}

	cacheTTL := s.ttl
	if len(ttl) > 0 && ttl[0] > 0 {
		cacheTTL = ttl[0]
	}

	raw, err := json.Marshal(data)
	if err != nil {
		log.Error("Cache data marshal error for key %s: %v", key, err)
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}

	fullKey := s.prefix + key
	if err := s.cache.Set(ctx, fullKey, raw, cacheTTL); err != nil {
		log.Error("Cache set error for key %s: %v", fullKey, err)
		return err
	}
	return nil
}

// InvalidatePattern removes all cache keys matching pattern
func (s *GenericCacheService) InvalidatePattern(ctx context.Context, pattern string) error {
	if !s.IsEnabled() {
		return ErrCacheDisabled
	}

	fullPattern := s.prefix + pattern
	if err := s.cache.DeletePattern(ctx, fullPattern); err != nil {
		log.Error("Cache pattern invalidation error for pattern %s: %v", fullPattern, err)
		return err
	}
	return nil
}

// InvalidateKey removes a single key
func (s *GenericCacheService) InvalidateKey(ctx context.Context, key string) error {
	if !s.IsEnabled() {
		return ErrCacheDisabled
	}
	return s.cache.Delete(ctx, s.prefix+key)
}

func (s *GenericCacheService) IsEnabled() bool {
	return s != nil && s.enabled && s.cache != nil
}

func (s *GenericCacheService) Stats() Stats {
	if !s.IsEnabled() {
		return Stats{}
	}
	return s.cache.Stats()
}

func (s *GenericCacheService) Close() error {
	if !s.IsEnabled() {
		return nil
	}
	return s.cache.Close()
}
