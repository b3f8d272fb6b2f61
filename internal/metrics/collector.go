package metrics

import (
	"sort"
	"sync"
	"time"
)

const latencyWindow = 1000

// ModelStats aggregates per-model request counters
type ModelStats struct {
	Model            string        `json:"model"`
	RequestCount     int64         `json:"request_count"`
	SuccessCount     int64         `json:"success_count"`
	FailureCount     int64         `json:"failure_count"`
	CacheHits        int64         `json:"cache_hits"`
	AvgLatencyMillis int64         `json:"avg_latency_ms"`
	LastUsed         time.Time     `json:"last_used"`
	totalLatency     time.Duration
}

// LatencyStats holds latency percentiles over the recent window
type LatencyStats struct {
	P50Millis int64 `json:"p50_ms"`
	P90Millis int64 `json:"p90_ms"`
	P95Millis int64 `json:"p95_ms"`
	P99Millis int64 `json:"p99_ms"`
}

// Snapshot is a point-in-time view of the collected stats
type Snapshot struct {
	UptimeSeconds    int64                  `json:"uptime_seconds"`
	TotalRequests    int64                  `json:"total_requests"`
	TotalErrors      int64                  `json:"total_errors"`
	CacheHits        int64                  `json:"cache_hits"`
	CacheHitRate     float64                `json:"cache_hit_rate"`
	PromptTokens     int64                  `json:"prompt_tokens"`
	CompletionTokens int64                  `json:"completion_tokens"`
	Latency          LatencyStats           `json:"latency"`
	ErrorCounts      map[string]int64       `json:"error_counts"`
	Models           map[string]*ModelStats `json:"models"`
}

// Collector aggregates in-process request metrics. Safe for concurrent
// use by many simultaneous requests.
type Collector struct {
	mu               sync.RWMutex
	startTime        time.Time
	totalRequests    int64
	totalErrors      int64
	cacheHits        int64
	promptTokens     int64
	completionTokens int64
	latencies        []time.Duration
	errorCounts      map[string]int64
	models           map[string]*ModelStats
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		startTime:   time.Now(),
		latencies:   make([]time.Duration, 0, latencyWindow),
		errorCounts: make(map[string]int64),
		models:      make(map[string]*ModelStats),
	}
}

// RecordRequest records one finished request
func (c *Collector) RecordRequest(model string, latency time.Duration, cacheHit, success bool, promptTokens, completionTokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	c.promptTokens += int64(promptTokens)
	c.completionTokens += int64(completionTokens)
	if cacheHit {
		c.cacheHits++
	}
	if !success {
		c.totalErrors++
	}

	c.latencies = append(c.latencies, latency)
	if len(c.latencies) > latencyWindow {
		c.latencies = c.latencies[len(c.latencies)-latencyWindow:]
	}

	if model == "" {
		return
	}
	stats, ok := c.models[model]
	if !ok {
		stats = &ModelStats{Model: model}
		c.models[model] = stats
	}
	stats.RequestCount++
	stats.totalLatency += latency
	stats.LastUsed = time.Now()
	if cacheHit {
		stats.CacheHits++
	}
	if success {
		stats.SuccessCount++
	} else {
		stats.FailureCount++
	}
	stats.AvgLatencyMillis = (stats.totalLatency / time.Duration(stats.RequestCount)).Milliseconds()
}

// RecordError tallies an error by kind
func (c *Collector) RecordError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorCounts[kind]++
}

// Snapshot returns a copy of the current stats
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds:    int64(time.Since(c.startTime).Seconds()),
		TotalRequests:    c.totalRequests,
		TotalErrors:      c.totalErrors,
		CacheHits:        c.cacheHits,
		PromptTokens:     c.promptTokens,
		CompletionTokens: c.completionTokens,
		ErrorCounts:      make(map[string]int64, len(c.errorCounts)),
		Models:           make(map[string]*ModelStats, len(c.models)),
	}
	if c.totalRequests > 0 {
		snap.CacheHitRate = float64(c.cacheHits) / float64(c.totalRequests)
	}
	for k, v := range c.errorCounts {
		snap.ErrorCounts[k] = v
	}
	for k, v := range c.models {
		clone := *v
		snap.Models[k] = &clone
	}

	if len(c.latencies) > 0 {
		sorted := make([]time.Duration, len(c.latencies))
		copy(sorted, c.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		snap.Latency = LatencyStats{
			P50Millis: percentile(sorted, 0.50).Milliseconds(),
			P90Millis: percentile(sorted, 0.90).Milliseconds(),
			P95Millis: percentile(sorted, 0.95).Milliseconds(),
			P99Millis: percentile(sorted, 0.99).Milliseconds(),
		}
	}

	return snap
}

// percentile picks the p-th percentile from a sorted slice
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
