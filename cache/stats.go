package cache

import "time"

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Entries     int     `json:"entries"`
	MaxEntries  int     `json:"max_entries"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Evictions   int64   `json:"evictions"`
	Expirations int64   `json:"expirations"`
	HitRate     float64 `json:"hit_rate"`
}

// Stats returns effectiveness counters. Counters are read individually, so a
// snapshot taken under concurrent traffic is approximate, never torn.
func (c *Cache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	s := Stats{
		Entries:     c.Size(),
		MaxEntries:  c.maxEntries,
		Hits:        hits,
		Misses:      misses,
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// EntryView is a read-only copy of a stored entry, used by diagnostics and
// the Arrow snapshot exporter.
type EntryView struct {
	Key        string        `json:"key"`
	Value      string        `json:"value"`
	ExpiresAt  time.Time     `json:"expires_at"`  // zero when the entry never expires
	LastAccess time.Duration `json:"last_access"` // offset from cache creation
}

// Snapshot returns a copy of all physically stored entries, including expired
// ones that have not been swept. Ordering is unspecified. The snapshot is not
// atomic with respect to concurrent writers.
func (c *Cache) Snapshot() []EntryView {
	out := make([]EntryView, 0, c.Size())
	c.store.Range(func(k, v any) bool {
		e := v.(*entry)
		view := EntryView{
			Key:        k.(string),
			Value:      e.value,
			LastAccess: time.Duration(e.lastAccess.Load()),
		}
		if e.expiresAt != 0 {
			view.ExpiresAt = time.Unix(0, e.expiresAt)
		}
		out = append(out, view)
		return true
	})
	return out
}
