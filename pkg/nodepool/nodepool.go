package nodepool

import (
	"errors"
	"sync"
	"time"
)

// failureThreshold is the number of consecutive failures after which a
// node is considered unhealthy.
const failureThreshold = 3

// ErrEmptyPool is returned by Select when no endpoints are configured
var ErrEmptyPool = errors.New("node pool is empty")

// NodeHealth is the liveness/latency state of one RPC endpoint
type NodeHealth struct {
	URL                 string        `json:"url"`
	Healthy             bool          `json:"healthy"`
	Latency             time.Duration `json:"latency_ms"`
	LastCheck           time.Time     `json:"last_check"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

// Pool tracks health across a fixed set of interchangeable RPC endpoints
// and hands out the next healthy one round-robin. It is owned by the
// client instance rather than being process-global, and is safe for
// concurrent use.
type Pool struct {
	mu     sync.Mutex
	urls   []string
	health map[string]*NodeHealth
	cursor int
}

// New creates a Pool over the configured endpoint URLs. Health entries
// are created lazily on first use and never deleted.
func New(urls []string) *Pool {
	return &Pool{
		urls:   append([]string(nil), urls...),
		health: make(map[string]*NodeHealth),
	}
}

// Select returns the next healthy endpoint round-robin. If every node is
// currently unhealthy, the whole pool is reset to healthy and the next
// node is returned; a node that is still genuinely down will fail again
// and be re-marked. This trades strict correctness for availability
// during a transient pool-wide outage.
func (p *Pool) Select() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.urls) == 0 {
		return "", ErrEmptyPool
	}

	for i := 0; i < len(p.urls); i++ {
		url := p.urls[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.urls)

		if p.entry(url).Healthy {
			return url, nil
		}
	}

	// Pool-wide outage: reset everything rather than deadlock.
	for _, h := range p.health {
		h.Healthy = true
		h.ConsecutiveFailures = 0
	}

	url := p.urls[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.urls)
	return url, nil
}

// ReportSuccess records a successful round trip. Any success resets the
// failure counter and marks the node healthy.
func (p *Pool) ReportSuccess(url string, latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.entry(url)
	h.Healthy = true
	h.ConsecutiveFailures = 0
	h.Latency = latency
	h.LastCheck = time.Now()
}

// ReportFailure records a failed round trip. The node is marked unhealthy
// only after the failure threshold is reached.
func (p *Pool) ReportFailure(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.entry(url)
	h.ConsecutiveFailures++
	h.LastCheck = time.Now()
	if h.ConsecutiveFailures >= failureThreshold {
		h.Healthy = false
	}
}

// Health returns a snapshot of every endpoint's state in configured order
func (p *Pool) Health() []NodeHealth {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]NodeHealth, 0, len(p.urls))
	for _, url := range p.urls {
		out = append(out, *p.entry(url))
	}
	return out
}

// Size returns the number of configured endpoints
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.urls)
}

// entry returns the health record for url, creating it on first use.
// Caller must hold the lock.
func (p *Pool) entry(url string) *NodeHealth {
	h, ok := p.health[url]
	if !ok {
		h = &NodeHealth{URL: url, Healthy: true}
		p.health[url] = h
	}
	return h
}
