// Package api provides Prometheus metrics and the metrics HTTP endpoint for
// the yori cache engine.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apathy-ca/yori/cache"
)

// Metrics holds all Prometheus metrics for the cache engine.
type Metrics struct {
	// Cache effectiveness metrics
	HitsTotal        prometheus.Counter
	MissesTotal      prometheus.Counter
	EvictionsTotal   prometheus.Counter
	ExpirationsTotal prometheus.Counter
	Entries          prometheus.Gauge

	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Sweep metrics
	SweepsTotal   prometheus.Counter
	SweepRemoved  prometheus.Counter
	SweepDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with the given namespace,
// registered on reg. A nil reg registers on the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		}),
		MissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		}),
		EvictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Total number of entries evicted for capacity",
		}),
		ExpirationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expirations_total",
			Help:      "Total number of entries removed after their TTL passed",
		}),
		Entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Current number of physically stored entries",
		}),

		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total cache operations by op and status",
		}, []string{"op", "status"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Cache operation duration by op",
			Buckets:   []float64{.000001, .00001, .0001, .001, .01, .1, 1},
		}, []string{"op"}),

		SweepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Total number of expired-entry sweeps",
		}),
		SweepRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_removed_total",
			Help:      "Total number of entries removed by sweeps",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of full-scan sweeps in seconds",
			Buckets:   []float64{.0001, .001, .01, .1, .25, .5, 1, 2.5},
		}),
	}
}

// RecordOperation records a cache operation by name and outcome.
func (m *Metrics) RecordOperation(op, status string, duration time.Duration) {
	m.OperationsTotal.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordSweep records one sweep pass.
func (m *Metrics) RecordSweep(removed int, duration time.Duration) {
	m.SweepsTotal.Inc()
	m.SweepRemoved.Add(float64(removed))
	m.SweepDuration.Observe(duration.Seconds())
}

// statsSyncer mirrors the cache's internal counters into Prometheus
// collectors. The cache counts hits and evictions itself; counters only grow,
// so each sync adds the delta since the previous one.
type statsSyncer struct {
	metrics *Metrics
	last    cache.Stats
}

// NewStatsSyncer returns a function that mirrors c.Stats() into m. Callers
// own the cadence; the demo binary runs it on every sweep tick.
func NewStatsSyncer(m *Metrics, c *cache.Cache) func() {
	s := &statsSyncer{metrics: m}
	return func() {
		cur := c.Stats()
		s.metrics.HitsTotal.Add(float64(cur.Hits - s.last.Hits))
		s.metrics.MissesTotal.Add(float64(cur.Misses - s.last.Misses))
		s.metrics.EvictionsTotal.Add(float64(cur.Evictions - s.last.Evictions))
		s.metrics.ExpirationsTotal.Add(float64(cur.Expirations - s.last.Expirations))
		s.metrics.Entries.Set(float64(cur.Entries))
		s.last = cur
	}
}

// MetricsServer runs an HTTP server exposing /metrics endpoint.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer creates a new metrics server on the given address.
func NewMetricsServer(addr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &MetricsServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start starts the metrics server (blocking).
func (s *MetricsServer) Start() error {
	return s.server.ListenAndServe()
}

// StartAsync starts the metrics server in a goroutine.
func (s *MetricsServer) StartAsync() {
	go func() {
		_ = s.server.ListenAndServe()
	}()
}

// Stop gracefully stops the metrics server.
func (s *MetricsServer) Stop() error {
	return s.server.Close()
}
