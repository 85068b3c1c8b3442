package cache

import "time"

// Cache defines a minimal key-value cache API with optional TTL per entry.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores the value with an optional TTL. If ttl <= 0, the entry does not expire.
	Set(key K, value V, ttl time.Duration)

	// Update atomically replaces the value for key with fn(current, found).
	// A new entry gets ttl; an existing live entry keeps its expiry.
	Update(key K, ttl time.Duration, fn func(current V, found bool) V) V

	// TTL returns the time left before key expires.
	TTL(key K) (time.Duration, bool)

	Delete(key K)
	Len() int
	Clear()

	// PurgeExpired removes expired entries and returns how many were dropped.
	PurgeExpired() int
}
