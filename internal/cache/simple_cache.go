package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

func (e entry[V]) expired(at time.Time) bool {
	return !e.expiresAt.IsZero() && !at.Before(e.expiresAt)
}

// SimpleCache is a map-backed, goroutine-safe cache with per-item TTL.
// Expired entries are skipped on read and dropped by PurgeExpired.
type SimpleCache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
}

func NewSimpleCache[K comparable, V any]() *SimpleCache[K, V] {
	return &SimpleCache[K, V]{items: make(map[K]entry[V])}
}

// now is a small indirection to allow test stubbing.
var now = time.Now

func (c *SimpleCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok || e.expired(now()) {
		return zero, false
	}
	return e.value, true
}

func (c *SimpleCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: expiry(ttl)}
}

func (c *SimpleCache[K, V]) Update(key K, ttl time.Duration, fn func(current V, found bool) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if ok && e.expired(now()) {
		ok = false
	}
	if !ok {
		var zero V
		e = entry[V]{value: zero, expiresAt: expiry(ttl)}
	}
	e.value = fn(e.value, ok)
	c.items[key] = e
	return e.value
}

func (c *SimpleCache[K, V]) TTL(key K) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	ts := now()
	if !ok || e.expired(ts) {
		return 0, false
	}
	if e.expiresAt.IsZero() {
		return 0, true
	}
	return e.expiresAt.Sub(ts), true
}

func (c *SimpleCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len counts only non-expired entries.
func (c *SimpleCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ts := now()
	count := 0
	for _, e := range c.items {
		if !e.expired(ts) {
			count++
		}
	}
	return count
}

func (c *SimpleCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]entry[V])
}

func (c *SimpleCache[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := now()
	purged := 0
	for k, e := range c.items {
		if e.expired(ts) {
			delete(c.items, k)
			purged++
		}
	}
	return purged
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now().Add(ttl)
}

// Ensure SimpleCache implements Cache at compile time.
var _ Cache[string, int] = (*SimpleCache[string, int])(nil)
