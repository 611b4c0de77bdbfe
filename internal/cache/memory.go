package cache

import (
	"context"
	"path"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultMaxEntries bounds the LRU when no memory budget narrows it further
const defaultMaxEntries = 10000

type memoryItem struct {
	value      []byte
	expiration time.Time
}

func (i memoryItem) size(key string) int64 {
	return int64(len(key) + len(i.value) + 64)
}

// MemoryCache is an in-process Cache backed by an LRU with a byte budget
type MemoryCache struct {
	mu        sync.Mutex
	items     *lru.Cache[string, memoryItem]
	maxMemory int64
	memory    int64

	hits      int64
	misses    int64
	evictions int64

	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a memory cache. A zero maxMemory disables the byte budget;
// a positive cleanupInterval starts a sweeper for expired items.
func NewMemoryCache(maxMemory int64, cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		maxMemory: maxMemory,
		stop:      make(chan struct{}),
	}
	items, _ := lru.NewWithEvict[string, memoryItem](defaultMaxEntries, func(key string, item memoryItem) {
		c.memory -= item.size(key)
	})
	c.items = items

	if cleanupInterval > 0 {
		go c.sweep(cleanupInterval)
	}
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items.Get(key)
	if !ok || time.Now().After(item.expiration) {
		if ok {
			c.items.Remove(key)
		}
		atomic.AddInt64(&c.misses, 1)
		return nil, ErrKeyNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := memoryItem{value: append([]byte(nil), value...), expiration: time.Now().Add(ttl)}
	c.items.Remove(key)
	if c.items.Add(key, item) {
		atomic.AddInt64(&c.evictions, 1)
	}
	c.memory += item.size(key)

	for c.maxMemory > 0 && c.memory > c.maxMemory && c.items.Len() > 1 {
		c.items.RemoveOldest()
		atomic.AddInt64(&c.evictions, 1)
	}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Remove(key)
	return nil
}

func (c *MemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.items.Keys() {
		if matched, _ := path.Match(pattern, key); matched {
			c.items.Remove(key)
		}
	}
	return nil
}

func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.mu.Lock()
		c.items.Purge()
		c.mu.Unlock()
	})
	return nil
}

func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	return Stats{
		Hits:        hits,
		Misses:      misses,
		HitRatio:    hitRatio(hits, misses),
		Keys:        int64(c.items.Len()),
		MemoryUsage: c.memory,
		Evictions:   atomic.LoadInt64(&c.evictions),
	}
}

func (c *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, key := range c.items.Keys() {
		if item, ok := c.items.Peek(key); ok && now.After(item.expiration) {
			c.items.Remove(key)
		}
	}
}
