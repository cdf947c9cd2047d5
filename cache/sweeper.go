package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Sweeper periodically removes expired entries from a Cache. The cache core
// performs no background work of its own; lazy expiry alone can leave dead
// entries in memory when keys are written once and never read again, and the
// sweeper exists to reclaim those.
//
// Sweeper owns its goroutine. Call Stop to release it.
type Sweeper struct {
	cache    *Cache
	interval time.Duration

	// OnSweep, if set before Start, is called after every sweep with the
	// number of entries removed and the scan duration. Used for metrics.
	OnSweep func(removed int, took time.Duration)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper that calls CleanupExpired on c every interval.
func NewSweeper(c *Cache, interval time.Duration) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		cache:    c,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins periodic sweeping. Returns an error if the sweeper is already
// running or was configured with a non-positive interval.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("sweeper already running")
	}
	if s.interval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	s.running = true
	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop halts sweeping and waits for the goroutine to exit. Safe to call more
// than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			removed := s.cache.CleanupExpired()
			if s.OnSweep != nil {
				s.OnSweep(removed, time.Since(start))
			}
		}
	}
}
