package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Default sizing for callers that do not care to tune the cache.
const (
	DefaultMaxEntries = 10000
	DefaultTTL        = time.Hour
)

// Common errors for cache operations
var (
	// ErrCapacityExceeded is returned by Set when eviction could not free any
	// space for the incoming entry. It only occurs when the store holds no
	// evictable candidate, most commonly with a max entry count of zero.
	ErrCapacityExceeded = errors.New("cache capacity exceeded")

	// ErrInvalidTTL is reserved for caller-facing validation layers (see the
	// network package). The core never produces it: any TTL, including zero
	// and negative values, is accepted and mapped to "no expiration".
	ErrInvalidTTL = errors.New("invalid ttl")

	// ErrInternal is a catch-all for unexpected store failures. Not expected
	// in normal operation.
	ErrInternal = errors.New("internal cache error")
)

// entry is the value stored per key. The value and expiration are immutable
// once stored; an overwrite replaces the whole entry. Only the last-access
// counter mutates in place, and it does so atomically with relaxed meaning:
// it is a heuristic recency ranking, not a correctness-critical field.
type entry struct {
	value     string
	expiresAt int64 // unix nanoseconds, 0 means no expiration

	lastAccess atomic.Int64 // nanoseconds since cache creation
}

func (e *entry) expired(nowNanos int64) bool {
	return e.expiresAt != 0 && nowNanos > e.expiresAt
}

// Cache is a concurrent, capacity-bounded key-value cache with TTL expiration
// and approximate LRU eviction.
//
// The store is a sync.Map, so per-key operations never contend on a global
// lock. Recency is tracked as a monotonic integer offset per entry rather
// than a linked list, trading exact LRU ordering for lock-free touches.
//
// The max entry count is a soft bound: the capacity check in Set and the
// insert are two separate steps, so concurrent writers can transiently push
// the store above the bound. The next Set under pressure restores it.
//
// Cache owns no goroutines; expired entries are removed lazily on read, by
// CleanupExpired, or under capacity pressure in Set. Use Sweeper for a
// periodic cadence.
type Cache struct {
	store      sync.Map // key (string) -> *entry
	maxEntries int
	defaultTTL time.Duration
	start      time.Time // clock origin for recency counters

	size atomic.Int64 // physical entry count, includes not-yet-swept expired entries

	// Effectiveness counters, see Stats.
	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
}

// New creates a cache holding at most maxEntries entries, expiring them
// defaultTTL after insertion. A defaultTTL <= 0 disables expiration unless a
// Set provides its own TTL. A maxEntries of zero is accepted but makes every
// insert of a new key fail with ErrCapacityExceeded.
func New(maxEntries int, defaultTTL time.Duration) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		start:      time.Now(),
	}
}

// NewDefault creates a cache with DefaultMaxEntries and DefaultTTL.
func NewDefault() *Cache {
	return New(DefaultMaxEntries, DefaultTTL)
}

// now returns the recency counter for this instant. time.Since reads the
// monotonic clock, so counters are cheap integers and immune to wall clock
// adjustments.
func (c *Cache) now() int64 {
	return int64(time.Since(c.start))
}

// Get returns the value for key if it is present and not expired, marking the
// entry as recently used. An expired entry is removed before returning, so
// the next Get for the same key is a plain miss.
func (c *Cache) Get(key string) (string, bool) {
	v, ok := c.store.Load(key)
	if !ok {
		c.misses.Add(1)
		return "", false
	}

	e := v.(*entry)
	if e.expired(time.Now().UnixNano()) {
		// Best effort removal: only delete the exact entry we observed, so a
		// racing Set that already replaced it keeps its fresh entry.
		if c.store.CompareAndDelete(key, v) {
			c.size.Add(-1)
			c.expirations.Add(1)
		}
		c.misses.Add(1)
		return "", false
	}

	e.lastAccess.Store(c.now())
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *Cache) Set(key, value string) error {
	return c.set(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key, expiring it after ttl. A ttl <= 0 means
// the entry never expires.
func (c *Cache) SetWithTTL(key, value string, ttl time.Duration) error {
	return c.set(key, value, ttl)
}

func (c *Cache) set(key, value string, ttl time.Duration) error {
	now := time.Now()

	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}

	if int(c.size.Load()) >= c.maxEntries {
		// Overwriting a live key never needs space; only new keys reclaim.
		if _, exists := c.store.Load(key); !exists {
			if err := c.reclaim(now.UnixNano()); err != nil {
				return err
			}
		}
	}

	e := &entry{value: value, expiresAt: expiresAt}
	e.lastAccess.Store(c.now())
	if _, loaded := c.store.Swap(key, e); !loaded {
		c.size.Add(1)
	}
	return nil
}

// reclaim makes room for one incoming entry. Expired entries go first because
// sweeping them needs no ranking scan; live entries are then evicted one LRU
// victim at a time until the store is below the bound.
func (c *Cache) reclaim(nowNanos int64) error {
	c.cleanupAt(nowNanos)

	for int(c.size.Load()) >= c.maxEntries {
		if !c.evictLRU() {
			return ErrCapacityExceeded
		}
	}
	return nil
}

// evictLRU scans the full store once and removes the entry with the smallest
// recency counter. Ties are broken by whichever entry the traversal reaches
// first; sync.Map iteration order is unspecified, so ties within one recency
// tick fall arbitrarily. Returns false when the store held no candidate.
func (c *Cache) evictLRU() bool {
	var (
		victimKey string
		victim    any
		minAccess int64
		found     bool
	)
	c.store.Range(func(k, v any) bool {
		la := v.(*entry).lastAccess.Load()
		if !found || la < minAccess {
			victimKey, victim, minAccess, found = k.(string), v, la, true
		}
		return true
	})
	if !found {
		return false
	}

	// If a concurrent Set replaced the victim its entry is fresh again; skip
	// it and let the caller re-check the bound.
	if c.store.CompareAndDelete(victimKey, victim) {
		c.size.Add(-1)
		c.evictions.Add(1)
	}
	return true
}

// CleanupExpired removes every entry whose expiration has passed and returns
// the count removed. O(n) over the physical entry count. The cache never
// schedules this itself; callers own the cadence (see Sweeper).
func (c *Cache) CleanupExpired() int {
	return c.cleanupAt(time.Now().UnixNano())
}

func (c *Cache) cleanupAt(nowNanos int64) int {
	removed := 0
	c.store.Range(func(k, v any) bool {
		if v.(*entry).expired(nowNanos) {
			if c.store.CompareAndDelete(k, v) {
				c.size.Add(-1)
				c.expirations.Add(1)
				removed++
			}
		}
		return true
	})
	return removed
}

// Delete removes key if present. Returns true if an entry was removed,
// expired or not.
func (c *Cache) Delete(key string) bool {
	if _, loaded := c.store.LoadAndDelete(key); loaded {
		c.size.Add(-1)
		return true
	}
	return false
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.store.Range(func(k, v any) bool {
		if c.store.CompareAndDelete(k, v) {
			c.size.Add(-1)
		}
		return true
	})
}

// Size returns the physical entry count. Expired entries that have not been
// swept yet are included.
func (c *Cache) Size() int {
	return int(c.size.Load())
}

// Contains reports whether key holds a live (non-expired) entry. Unlike Get
// it does not refresh the entry's recency.
func (c *Cache) Contains(key string) bool {
	v, ok := c.store.Load(key)
	if !ok {
		return false
	}
	return !v.(*entry).expired(time.Now().UnixNano())
}

// SetTTL re-arms the expiration of a live key, counting ttl from now. A
// ttl <= 0 makes the entry permanent. Returns false when the key is absent
// or already expired.
func (c *Cache) SetTTL(key string, ttl time.Duration) bool {
	for {
		v, ok := c.store.Load(key)
		if !ok {
			return false
		}
		old := v.(*entry)
		now := time.Now()
		if old.expired(now.UnixNano()) {
			return false
		}

		var expiresAt int64
		if ttl > 0 {
			expiresAt = now.Add(ttl).UnixNano()
		}
		repl := &entry{value: old.value, expiresAt: expiresAt}
		repl.lastAccess.Store(old.lastAccess.Load())

		if c.store.CompareAndSwap(key, v, repl) {
			return true
		}
		// Lost a race with a concurrent Set or Delete; re-read and retry.
	}
}

// MaxEntries returns the configured capacity bound.
func (c *Cache) MaxEntries() int { return c.maxEntries }

// DefaultTTL returns the TTL applied by Set.
func (c *Cache) DefaultTTL() time.Duration { return c.defaultTTL }
