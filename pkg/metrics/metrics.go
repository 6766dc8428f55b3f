package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds performance counters for the sidechain integration layer
type Metrics struct {
	// Request metrics
	TotalRequests      int64 `json:"total_requests"`
	SuccessfulRequests int64 `json:"successful_requests"`
	FailedRequests     int64 `json:"failed_requests"`
	ActiveRequests     int64 `json:"active_requests"`

	// Response time metrics
	AverageResponseTime time.Duration `json:"average_response_time"`
	MinResponseTime     time.Duration `json:"min_response_time"`
	MaxResponseTime     time.Duration `json:"max_response_time"`

	// Sidechain RPC metrics
	RPCCalls       int64         `json:"rpc_calls"`
	RPCFailures    int64         `json:"rpc_failures"`
	AverageRPCTime time.Duration `json:"average_rpc_time"`

	// Market data source metrics
	MarketAPIFetches int64 `json:"market_api_fetches"`
	MarketFallbacks  int64 `json:"market_fallbacks"`

	// Cache metrics
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`

	// Internal fields for calculations
	totalResponseTime time.Duration
	totalRPCTime      time.Duration
	mutex             sync.RWMutex
}

// Collector provides thread-safe metrics collection
type Collector struct {
	metrics   *Metrics
	startTime time.Time
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		metrics: &Metrics{
			MinResponseTime: time.Duration(^uint64(0) >> 1),
		},
		startTime: time.Now(),
	}
}

// RecordRequest records a new request
func (c *Collector) RecordRequest() {
	atomic.AddInt64(&c.metrics.TotalRequests, 1)
	atomic.AddInt64(&c.metrics.ActiveRequests, 1)
}

// RecordRequestComplete records request completion
func (c *Collector) RecordRequestComplete(duration time.Duration, success bool) {
	atomic.AddInt64(&c.metrics.ActiveRequests, -1)

	if success {
		atomic.AddInt64(&c.metrics.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&c.metrics.FailedRequests, 1)
	}

	c.metrics.mutex.Lock()
	defer c.metrics.mutex.Unlock()

	c.metrics.totalResponseTime += duration

	if duration < c.metrics.MinResponseTime {
		c.metrics.MinResponseTime = duration
	}
	if duration > c.metrics.MaxResponseTime {
		c.metrics.MaxResponseTime = duration
	}

	totalRequests := atomic.LoadInt64(&c.metrics.TotalRequests)
	if totalRequests > 0 {
		c.metrics.AverageResponseTime = c.metrics.totalResponseTime / time.Duration(totalRequests)
	}
}

// RecordRPCCall records one sidechain RPC round trip
func (c *Collector) RecordRPCCall(duration time.Duration, success bool) {
	atomic.AddInt64(&c.metrics.RPCCalls, 1)

	if !success {
		atomic.AddInt64(&c.metrics.RPCFailures, 1)
	}

	c.metrics.mutex.Lock()
	defer c.metrics.mutex.Unlock()

	c.metrics.totalRPCTime += duration

	totalRPCCalls := atomic.LoadInt64(&c.metrics.RPCCalls)
	if totalRPCCalls > 0 {
		c.metrics.AverageRPCTime = c.metrics.totalRPCTime / time.Duration(totalRPCCalls)
	}
}

// RecordMarketAPIFetch records a snapshot served by the external market API
func (c *Collector) RecordMarketAPIFetch() {
	atomic.AddInt64(&c.metrics.MarketAPIFetches, 1)
}

// RecordMarketFallback records a snapshot computed from the on-chain book
func (c *Collector) RecordMarketFallback() {
	atomic.AddInt64(&c.metrics.MarketFallbacks, 1)
}

// RecordCacheHit records a cache hit
func (c *Collector) RecordCacheHit() {
	atomic.AddInt64(&c.metrics.CacheHits, 1)
}

// RecordCacheMiss records a cache miss
func (c *Collector) RecordCacheMiss() {
	atomic.AddInt64(&c.metrics.CacheMisses, 1)
}

// GetMetrics returns a copy of current metrics
func (c *Collector) GetMetrics() *Metrics {
	c.metrics.mutex.RLock()
	defer c.metrics.mutex.RUnlock()

	return &Metrics{
		TotalRequests:       atomic.LoadInt64(&c.metrics.TotalRequests),
		SuccessfulRequests:  atomic.LoadInt64(&c.metrics.SuccessfulRequests),
		FailedRequests:      atomic.LoadInt64(&c.metrics.FailedRequests),
		ActiveRequests:      atomic.LoadInt64(&c.metrics.ActiveRequests),
		AverageResponseTime: c.metrics.AverageResponseTime,
		MinResponseTime:     c.metrics.MinResponseTime,
		MaxResponseTime:     c.metrics.MaxResponseTime,
		RPCCalls:            atomic.LoadInt64(&c.metrics.RPCCalls),
		RPCFailures:         atomic.LoadInt64(&c.metrics.RPCFailures),
		AverageRPCTime:      c.metrics.AverageRPCTime,
		MarketAPIFetches:    atomic.LoadInt64(&c.metrics.MarketAPIFetches),
		MarketFallbacks:     atomic.LoadInt64(&c.metrics.MarketFallbacks),
		CacheHits:           atomic.LoadInt64(&c.metrics.CacheHits),
		CacheMisses:         atomic.LoadInt64(&c.metrics.CacheMisses),
	}
}

// GetUptime returns the uptime since metrics collection started
func (c *Collector) GetUptime() time.Duration {
	return time.Since(c.startTime)
}

// GetCacheHitRatio returns the cache hit ratio as a percentage
func (c *Collector) GetCacheHitRatio() float64 {
	hits := atomic.LoadInt64(&c.metrics.CacheHits)
	misses := atomic.LoadInt64(&c.metrics.CacheMisses)
	total := hits + misses

	if total == 0 {
		return 0.0
	}

	return float64(hits) / float64(total) * 100.0
}

// GetSuccessRate returns the success rate as a percentage
func (c *Collector) GetSuccessRate() float64 {
	successful := atomic.LoadInt64(&c.metrics.SuccessfulRequests)
	total := atomic.LoadInt64(&c.metrics.TotalRequests)

	if total == 0 {
		return 0.0
	}

	return float64(successful) / float64(total) * 100.0
}

// Reset resets all metrics
func (c *Collector) Reset() {
	c.metrics.mutex.Lock()
	defer c.metrics.mutex.Unlock()

	atomic.StoreInt64(&c.metrics.TotalRequests, 0)
	atomic.StoreInt64(&c.metrics.SuccessfulRequests, 0)
	atomic.StoreInt64(&c.metrics.FailedRequests, 0)
	atomic.StoreInt64(&c.metrics.ActiveRequests, 0)
	atomic.StoreInt64(&c.metrics.RPCCalls, 0)
	atomic.StoreInt64(&c.metrics.RPCFailures, 0)
	atomic.StoreInt64(&c.metrics.MarketAPIFetches, 0)
	atomic.StoreInt64(&c.metrics.MarketFallbacks, 0)
	atomic.StoreInt64(&c.metrics.CacheHits, 0)
	atomic.StoreInt64(&c.metrics.CacheMisses, 0)

	c.metrics.AverageResponseTime = 0
	c.metrics.MinResponseTime = time.Duration(^uint64(0) >> 1)
	c.metrics.MaxResponseTime = 0
	c.metrics.AverageRPCTime = 0
	c.metrics.totalResponseTime = 0
	c.metrics.totalRPCTime = 0

	c.startTime = time.Now()
}
