package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is the byte-level store behind GenericCacheService
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePattern removes all keys matching a glob pattern ("*" wildcard)
	DeletePattern(ctx context.Context, pattern string) error
	Close() error
	Stats() Stats
}

// Stats provides cache performance statistics
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRatio    float64 `json:"hitRatio"`
	Keys        int64   `json:"keys"`
	MemoryUsage int64   `json:"memoryUsage"`
	Evictions   int64   `json:"evictions"`
}

// Backend names accepted by New
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	ErrKeyNotFound           = errors.New("key not found")
	ErrCacheUnavailable      = errors.New("cache unavailable")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrInvalidBackend        = errors.New("invalid cache backend")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")
)

func hitRatio(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
