package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestConcurrentMixedOperations(t *testing.T) {
	const (
		workers      = 8
		opsPerWorker = 500
		keySpace     = 32
		maxEntries   = 24
	)

	c := New(maxEntries, time.Minute)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				key := fmt.Sprintf("k-%d", (worker+i)%keySpace)
				switch i % 4 {
				case 0, 1:
					if err := c.Set(key, "v:"+key); err != nil {
						t.Errorf("Set %s failed: %v", key, err)
						return
					}
				case 2:
					if v, ok := c.Get(key); ok && v != "v:"+key {
						t.Errorf("Get %s returned value never written: %q", key, v)
						return
					}
				case 3:
					c.Delete(key)
				}
			}
		}(w)
	}
	wg.Wait()

	// The capacity check and the insert are separate steps, so the bound may
	// be overshot by at most one entry per concurrently racing writer.
	if size := c.Size(); size > maxEntries+workers {
		t.Errorf("Size %d exceeds soft bound %d + %d writers", size, maxEntries, workers)
	}

	// A quiescent write under pressure restores the bound.
	if err := c.Set("quiescent", "v:quiescent"); err != nil {
		t.Fatalf("quiescent Set failed: %v", err)
	}
	if size := c.Size(); size > maxEntries {
		t.Errorf("Expected size <= %d after quiescent write, got %d", maxEntries, size)
	}
}

func TestConcurrentTouchSameKey(t *testing.T) {
	c := New(8, time.Minute)
	_ = c.Set("hot", "v:hot")

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if v, ok := c.Get("hot"); ok && v != "v:hot" {
					t.Errorf("Get returned torn value %q", v)
					return
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = c.Set("hot", "v:hot")
		}
	}()
	wg.Wait()

	if _, ok := c.Get("hot"); !ok {
		t.Error("Expected hot key to remain present")
	}
}

func TestConcurrentCleanupDuringWrites(t *testing.T) {
	c := New(128, 10*time.Millisecond)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 300; i++ {
				_ = c.Set(fmt.Sprintf("k-%d-%d", worker, i%16), "v")
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			c.CleanupExpired()
			time.Sleep(time.Millisecond)
		}
	}()
	wg.Wait()

	// Everything expires shortly; a final cleanup must drain the store.
	time.Sleep(30 * time.Millisecond)
	c.CleanupExpired()
	if size := c.Size(); size != 0 {
		t.Errorf("Expected empty cache after final cleanup, got %d", size)
	}
}
