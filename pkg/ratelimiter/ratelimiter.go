package ratelimiter

import (
	"sync"
	"time"
)

// counter tracks request count and reset time for one caller
type counter struct {
	count     int
	resetTime time.Time
}

// RateLimiter implements per-caller rate limiting over a fixed window.
// Callers are keyed by API key when authenticated, by client IP otherwise.
type RateLimiter struct {
	requests map[string]*counter
	mutex    sync.RWMutex
	limit    int
	window   time.Duration
}

// New creates a new RateLimiter with the specified limit and window
func New(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string]*counter),
		limit:    limit,
		window:   window,
	}
}

// Allow checks whether the caller may make a request.
// Returns false once the limit inside the current window is exceeded.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()

	c, exists := rl.requests[key]
	if !exists {
		rl.requests[key] = &counter{count: 1, resetTime: now.Add(rl.window)}
		return true
	}

	if now.After(c.resetTime) {
		c.count = 1
		c.resetTime = now.Add(rl.window)
		return true
	}

	if c.count >= rl.limit {
		return false
	}

	c.count++
	return true
}

// Info returns the current request count and window reset time for a caller
func (rl *RateLimiter) Info(key string) (count int, resetTime time.Time) {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	c, exists := rl.requests[key]
	if !exists || time.Now().After(c.resetTime) {
		return 0, time.Now().Add(rl.window)
	}

	return c.count, c.resetTime
}

// Limit returns the configured per-window request limit
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Cleanup removes expired entries to prevent memory leaks
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, c := range rl.requests {
		if now.After(c.resetTime) {
			delete(rl.requests, key)
		}
	}
}
