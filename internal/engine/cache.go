package engine

import (
	"encoding/json"
	"sync"
	"time"
)

// Persister is the abstracted local key/value store backing the cache across
// restarts. Best effort only: write failures are swallowed, the cache is an
// accelerator and never a source of truth.
type Persister interface {
	ReadCache(key string) ([]byte, bool)
	WriteCache(key string, data []byte) error
	DeleteCache(key string) error
}

type cacheEntry[T any] struct {
	data      T
	fetchedAt time.Time
}

// Cache is a snapshot cache of last-known server data with explicit
// invalidation. No TTL: invalidation is event driven, and readers treat
// absent and stale identically (re-fetch on absent).
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry[T]
	persist Persister // may be nil
}

// NewCache returns a cache persisting through p. p may be nil for a purely
// in-memory cache.
func NewCache[T any](p Persister) *Cache[T] {
	return &Cache[T]{
		entries: map[string]cacheEntry[T]{},
		persist: p,
	}
}

// Get returns the cached value for key, if present.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.data, ok
}

// FetchedAt returns when the cached value for key was stored.
func (c *Cache[T]) FetchedAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.fetchedAt, ok
}

// Set overwrites the entry for key wholesale and persists it best effort.
func (c *Cache[T]) Set(key string, data T) {
	c.mu.Lock()
	c.entries[key] = cacheEntry[T]{data: data, fetchedAt: time.Now()}
	c.mu.Unlock()

	if c.persist != nil {
		if raw, err := json.Marshal(data); err == nil {
			_ = c.persist.WriteCache(key, raw)
		}
	}
}

// Invalidate removes the entry for key. Subsequent Gets report absent until
// the next Set.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	if c.persist != nil {
		_ = c.persist.DeleteCache(key)
	}
}

// Warm loads the persisted copy for key into memory, so a restart can paint
// from cache before the first backing-store round-trip completes. Returns
// the value if one was restored.
func (c *Cache[T]) Warm(key string) (T, bool) {
	var zero T
	if c.persist == nil {
		return zero, false
	}
	raw, ok := c.persist.ReadCache(key)
	if !ok {
		return zero, false
	}
	var data T
	if err := json.Unmarshal(raw, &data); err != nil {
		return zero, false
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry[T]{data: data, fetchedAt: time.Now()}
	c.mu.Unlock()
	return data, true
}
