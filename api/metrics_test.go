package api

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/apathy-ca/yori/cache"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("yori_test", prometheus.NewRegistry())
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	m.RecordOperation("get", "hit", time.Millisecond)
	m.RecordOperation("get", "miss", time.Millisecond)
	m.RecordOperation("set", "ok", time.Millisecond)

	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("get", "hit")); got != 1 {
		t.Errorf("Expected 1 get/hit operation, got %v", got)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("set", "ok")); got != 1 {
		t.Errorf("Expected 1 set/ok operation, got %v", got)
	}
}

func TestRecordSweep(t *testing.T) {
	m := NewMetrics("yori_test", prometheus.NewRegistry())

	m.RecordSweep(3, 2*time.Millisecond)
	m.RecordSweep(0, time.Millisecond)

	if got := testutil.ToFloat64(m.SweepsTotal); got != 2 {
		t.Errorf("Expected 2 sweeps, got %v", got)
	}
	if got := testutil.ToFloat64(m.SweepRemoved); got != 3 {
		t.Errorf("Expected 3 removed, got %v", got)
	}
}

func TestStatsSyncer(t *testing.T) {
	m := NewMetrics("yori_test", prometheus.NewRegistry())
	c := cache.New(10, time.Minute)
	sync := NewStatsSyncer(m, c)

	_ = c.Set("k", "v")
	_, _ = c.Get("k")
	_, _ = c.Get("missing")
	sync()

	if got := testutil.ToFloat64(m.HitsTotal); got != 1 {
		t.Errorf("Expected 1 hit after first sync, got %v", got)
	}
	if got := testutil.ToFloat64(m.MissesTotal); got != 1 {
		t.Errorf("Expected 1 miss after first sync, got %v", got)
	}
	if got := testutil.ToFloat64(m.Entries); got != 1 {
		t.Errorf("Expected entries gauge 1, got %v", got)
	}

	// Counters must advance by deltas, not absolutes, on repeat syncs.
	_, _ = c.Get("k")
	sync()
	sync()

	if got := testutil.ToFloat64(m.HitsTotal); got != 2 {
		t.Errorf("Expected 2 hits after repeat syncs, got %v", got)
	}
}

func TestNewMetricsServer(t *testing.T) {
	s := NewMetricsServer("127.0.0.1:0")
	if s == nil {
		t.Fatal("NewMetricsServer returned nil")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
