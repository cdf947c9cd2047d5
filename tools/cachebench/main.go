package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apathy-ca/yori/network"
)

// BenchConfig holds configuration for the cache benchmark.
type BenchConfig struct {
	Address     string
	Concurrency int
	Duration    time.Duration
	KeySpace    int
	SetPercent  int
	TTL         time.Duration
	ReportFile  string
}

// BenchResult holds the results of a benchmark run.
type BenchResult struct {
	TotalRequests  int64
	SuccessfulReqs int64
	FailedReqs     int64
	Hits           int64
	Misses         int64
	TotalDuration  time.Duration
	AvgLatency     time.Duration
	MinLatency     time.Duration
	MaxLatency     time.Duration
	RequestsPerSec float64
}

func main() {
	config := parseFlags()

	fmt.Println("=== yori cache service benchmark ===")
	fmt.Printf("Target: %s\n", config.Address)
	fmt.Printf("Concurrency: %d workers\n", config.Concurrency)
	fmt.Printf("Duration: %v\n", config.Duration)
	fmt.Printf("Key space: %d keys, %d%% writes\n", config.KeySpace, config.SetPercent)
	fmt.Println()

	result := runBench(config)

	printResults(result)

	if config.ReportFile != "" {
		saveReport(config, result)
	}
}

func parseFlags() BenchConfig {
	config := BenchConfig{}

	flag.StringVar(&config.Address, "addr", "tcp://127.0.0.1:5600", "Cache service address")
	flag.IntVar(&config.Concurrency, "c", 10, "Number of concurrent workers")
	flag.DurationVar(&config.Duration, "d", 30*time.Second, "Duration of benchmark")
	flag.IntVar(&config.KeySpace, "keys", 1000, "Number of distinct keys")
	flag.IntVar(&config.SetPercent, "writes", 25, "Percentage of requests that are writes")
	flag.DurationVar(&config.TTL, "ttl", 0, "TTL for written entries (0 = server default)")
	flag.StringVar(&config.ReportFile, "o", "", "Output report file (JSON)")

	flag.Parse()

	return config
}

func runBench(config BenchConfig) BenchResult {
	var (
		totalReqs    int64
		successReqs  int64
		failedReqs   int64
		hits         int64
		misses       int64
		totalLatency int64
		minLatency   int64 = 1<<63 - 1
		maxLatency   int64
		wg           sync.WaitGroup
		stopChan     = make(chan struct{})
	)

	startTime := time.Now()

	for i := 0; i < config.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runWorker(workerID, config, stopChan, &totalReqs, &successReqs, &failedReqs, &hits, &misses, &totalLatency, &minLatency, &maxLatency)
		}(i)
	}

	time.Sleep(config.Duration)
	close(stopChan)
	wg.Wait()

	duration := time.Since(startTime)
	total := atomic.LoadInt64(&totalReqs)
	success := atomic.LoadInt64(&successReqs)

	var avgLatency time.Duration
	if success > 0 {
		avgLatency = time.Duration(atomic.LoadInt64(&totalLatency) / success)
	}

	return BenchResult{
		TotalRequests:  total,
		SuccessfulReqs: success,
		FailedReqs:     atomic.LoadInt64(&failedReqs),
		Hits:           atomic.LoadInt64(&hits),
		Misses:         atomic.LoadInt64(&misses),
		TotalDuration:  duration,
		AvgLatency:     avgLatency,
		MinLatency:     time.Duration(atomic.LoadInt64(&minLatency)),
		MaxLatency:     time.Duration(atomic.LoadInt64(&maxLatency)),
		RequestsPerSec: float64(total) / duration.Seconds(),
	}
}

func runWorker(id int, config BenchConfig, stop chan struct{}, totalReqs, successReqs, failedReqs, hits, misses, totalLatency, minLatency, maxLatency *int64) {
	// One REQ socket per worker; REQ enforces strict request/reply
	// alternation, so sharing one across workers would serialize everything.
	client := network.NewClient()
	if err := client.Connect(config.Address); err != nil {
		log.Printf("worker %d: connect failed: %v", id, err)
		atomic.AddInt64(failedReqs, 1)
		return
	}
	defer client.Close()

	for i := 0; ; i++ {
		select {
		case <-stop:
			return
		default:
			key := fmt.Sprintf("bench-%d", (id*7919+i)%config.KeySpace)

			start := time.Now()
			var err error
			if i%100 < config.SetPercent {
				err = client.SetWithTTL(key, fmt.Sprintf("v-%d-%d", id, i), config.TTL)
			} else {
				var found bool
				_, found, err = client.Get(key)
				if err == nil {
					if found {
						atomic.AddInt64(hits, 1)
					} else {
						atomic.AddInt64(misses, 1)
					}
				}
			}
			latency := time.Since(start)
			atomic.AddInt64(totalReqs, 1)

			if err != nil {
				atomic.AddInt64(failedReqs, 1)
				// Small sleep on error to avoid hammering
				time.Sleep(10 * time.Millisecond)
				continue
			}

			atomic.AddInt64(successReqs, 1)
			atomic.AddInt64(totalLatency, int64(latency))

			lat := int64(latency)
			for {
				old := atomic.LoadInt64(minLatency)
				if lat >= old || atomic.CompareAndSwapInt64(minLatency, old, lat) {
					break
				}
			}
			for {
				old := atomic.LoadInt64(maxLatency)
				if lat <= old || atomic.CompareAndSwapInt64(maxLatency, old, lat) {
					break
				}
			}
		}
	}
}

func printResults(result BenchResult) {
	fmt.Println("=== Results ===")
	fmt.Printf("Duration:        %v\n", result.TotalDuration.Round(time.Millisecond))
	fmt.Printf("Total Requests:  %d\n", result.TotalRequests)
	fmt.Printf("Successful:      %d (%.2f%%)\n", result.SuccessfulReqs, percent(result.SuccessfulReqs, result.TotalRequests))
	fmt.Printf("Failed:          %d (%.2f%%)\n", result.FailedReqs, percent(result.FailedReqs, result.TotalRequests))
	fmt.Printf("Hits:            %d\n", result.Hits)
	fmt.Printf("Misses:          %d\n", result.Misses)
	fmt.Printf("Requests/sec:    %.2f\n", result.RequestsPerSec)
	fmt.Printf("Avg Latency:     %v\n", result.AvgLatency.Round(time.Microsecond))
	fmt.Printf("Min Latency:     %v\n", result.MinLatency.Round(time.Microsecond))
	fmt.Printf("Max Latency:     %v\n", result.MaxLatency.Round(time.Microsecond))
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func saveReport(config BenchConfig, result BenchResult) {
	report := map[string]interface{}{
		"config": map[string]interface{}{
			"address":     config.Address,
			"concurrency": config.Concurrency,
			"duration":    config.Duration.String(),
			"key_space":   config.KeySpace,
			"writes_pct":  config.SetPercent,
		},
		"results": map[string]interface{}{
			"total_requests":   result.TotalRequests,
			"successful":       result.SuccessfulReqs,
			"failed":           result.FailedReqs,
			"hits":             result.Hits,
			"misses":           result.Misses,
			"requests_per_sec": result.RequestsPerSec,
			"avg_latency_ms":   float64(result.AvgLatency.Microseconds()) / 1000,
			"min_latency_ms":   float64(result.MinLatency.Microseconds()) / 1000,
			"max_latency_ms":   float64(result.MaxLatency.Microseconds()) / 1000,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	data, _ := json.MarshalIndent(report, "", "  ")
	if err := os.WriteFile(config.ReportFile, data, 0644); err != nil {
		log.Printf("Failed to write report: %v", err)
	} else {
		fmt.Printf("Report saved to: %s\n", config.ReportFile)
	}
}
