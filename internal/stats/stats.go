// Package stats provides rolling performance statistics for NLWeb suggestions.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/reynard/nlweb/pkg/protocol"
)

// DefaultWindow is how long latency samples are retained.
const DefaultWindow = 300 * time.Second

type sample struct {
	at       time.Time
	duration time.Duration
}

// Collector collects and tracks suggestion statistics.
// Counters are cumulative; latency percentiles cover the retention window only.
type Collector struct {
	mu sync.Mutex

	startTime time.Time
	window    time.Duration
	now       func() time.Time

	samples []sample

	requestCount int64
	successCount int64
	errorCount   int64
	cacheHits    int64
	cacheMisses  int64
}

// Option configures a Collector.
type Option func(*Collector)

// WithWindow sets the latency retention window.
func WithWindow(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// NewCollector creates a new stats collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		window: DefaultWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startTime = c.now()
	return c
}

// RecordRequest records one routed request, cache hit or miss.
func (c *Collector) RecordRequest(duration time.Duration, cacheHit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestCount++
	if cacheHit {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}

	now := c.now()
	c.samples = append(c.samples, sample{at: now, duration: duration})
	c.prune(now)
}

// RecordSuccess records a request that the service answered.
func (c *Collector) RecordSuccess() {
	c.mu.Lock()
	c.successCount++
	c.mu.Unlock()
}

// RecordError records a request that the service rejected or failed.
func (c *Collector) RecordError() {
	c.mu.Lock()
	c.errorCount++
	c.mu.Unlock()
}

// Snapshot returns current statistics. cacheSize is reported as given.
func (c *Collector) Snapshot(cacheSize int) protocol.PerformanceStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune(c.now())

	ps := protocol.PerformanceStats{
		TotalRequests:          c.requestCount,
		SuccessfulRequests:     c.successCount,
		FailedRequests:         c.errorCount,
		CacheHits:              c.cacheHits,
		CacheMisses:            c.cacheMisses,
		CacheSize:              cacheSize,
		LatencySamplesRetained: len(c.samples),
	}

	if lookups := c.cacheHits + c.cacheMisses; lookups > 0 {
		ps.CacheHitRate = float64(c.cacheHits) / float64(lookups) * 100
	}

	if n := len(c.samples); n > 0 {
		ms := make([]float64, n)
		var total float64
		for i, s := range c.samples {
			ms[i] = durationToMs(s.duration)
			total += ms[i]
		}
		sort.Float64s(ms)

		ps.AvgProcessingTimeMs = total / float64(n)
		ps.P95ProcessingTimeMs = ms[percentileIndex(n, 0.95)]
		ps.P99ProcessingTimeMs = ms[percentileIndex(n, 0.99)]
	}

	return ps
}

// StartTime returns when the collector started.
func (c *Collector) StartTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTime
}

// prune drops samples older than the window. Samples arrive in time order.
// Caller must hold c.mu.
func (c *Collector) prune(now time.Time) {
	cutoff := now.Add(-c.window)
	i := 0
	for i < len(c.samples) && c.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.samples = append(c.samples[:0], c.samples[i:]...)
	}
}

// percentileIndex returns floor(n*p), clamped to the last index.
func percentileIndex(n int, p float64) int {
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// durationToMs converts a duration to fractional milliseconds.
func durationToMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
