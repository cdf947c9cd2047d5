package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apathy-ca/yori/api"
	"github.com/apathy-ca/yori/cache"
	"github.com/apathy-ca/yori/network"
)

// Version information
const (
	Version = "0.1.0"
	Name    = "yori-cache"
)

func main() {
	var (
		maxEntries    = flag.Int("max-entries", cache.DefaultMaxEntries, "Maximum number of cached entries")
		defaultTTL    = flag.Duration("ttl", cache.DefaultTTL, "Default entry TTL (0 disables expiration)")
		sweepInterval = flag.Duration("sweep", 30*time.Second, "Expired-entry sweep interval (0 disables sweeping)")
		host          = flag.String("host", "127.0.0.1", "Cache service host")
		port          = flag.Int("port", 5600, "Cache service port")
		metricsAddr   = flag.String("metrics-addr", ":9105", "Prometheus metrics listen address (empty disables)")
	)
	flag.Parse()

	log.Printf("%s v%s", Name, Version)
	log.Printf("config: maxEntries=%d ttl=%s sweep=%s", *maxEntries, *defaultTTL, *sweepInterval)

	c := cache.New(*maxEntries, *defaultTTL)

	var metrics *api.Metrics
	if *metricsAddr != "" {
		metrics = api.NewMetrics("yori_cache", nil)

		metricsServer := api.NewMetricsServer(*metricsAddr)
		metricsServer.StartAsync()
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				log.Printf("metrics server stop: %v", err)
			}
		}()
		log.Printf("metrics at http://%s/metrics", *metricsAddr)
	}

	if *sweepInterval > 0 {
		sweeper := cache.NewSweeper(c, *sweepInterval)
		if metrics != nil {
			syncStats := api.NewStatsSyncer(metrics, c)
			sweeper.OnSweep = func(removed int, took time.Duration) {
				metrics.RecordSweep(removed, took)
				syncStats()
			}
		}
		if err := sweeper.Start(); err != nil {
			log.Fatalf("Failed to start sweeper: %v", err)
		}
		defer sweeper.Stop()
	}

	service := network.NewCacheService(network.ServiceConfig{Host: *host, Port: *port}, c, metrics)
	if err := service.Start(); err != nil {
		log.Fatalf("Failed to start cache service: %v", err)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	service.Stop()
	log.Println("Cache service stopped.")
}
