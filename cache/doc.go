// Package cache provides high-performance caching with concurrent access.
// This package implements:
// - Thread-safe cache with sync.Map
// - LRU eviction policy with an expired-first reclaim pass
// - TTL-based expiration (lazy on read, full-scan via CleanupExpired)
// - Approximate recency tracking with per-entry atomic counters
package cache
