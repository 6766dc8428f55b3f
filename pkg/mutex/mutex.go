package mutex

import (
	"sync"
	"time"
)

// keyed is one per-key lock with the time it was last handed out
type keyed struct {
	mu       *sync.Mutex
	lastSeen time.Time
}

// RequestMutex hands out one mutex per key so concurrent requests for
// the same account or symbol coalesce into a single upstream fetch
// instead of hammering the RPC nodes in parallel.
type RequestMutex struct {
	mu       sync.RWMutex
	locks    map[string]*keyed
	idleTTL  time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a RequestMutex. Locks idle longer than idleTTL are
// reclaimed by a background sweeper.
func New(idleTTL time.Duration) *RequestMutex {
	rm := &RequestMutex{
		locks:   make(map[string]*keyed),
		idleTTL: idleTTL,
		done:    make(chan struct{}),
	}
	go rm.sweep()
	return rm
}

// GetMutex returns the mutex for key, creating it on first use
func (rm *RequestMutex) GetMutex(key string) *sync.Mutex {
	rm.mu.RLock()
	if k, ok := rm.locks[key]; ok {
		k.lastSeen = time.Now()
		rm.mu.RUnlock()
		return k.mu
	}
	rm.mu.RUnlock()

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if k, ok := rm.locks[key]; ok {
		k.lastSeen = time.Now()
		return k.mu
	}

	k := &keyed{mu: &sync.Mutex{}, lastSeen: time.Now()}
	rm.locks[key] = k
	return k.mu
}

// Size returns the number of live per-key locks
func (rm *RequestMutex) Size() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.locks)
}

func (rm *RequestMutex) sweep() {
	ticker := time.NewTicker(rm.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.reclaimIdle()
		case <-rm.done:
			return
		}
	}
}

// reclaimIdle drops locks that have sat unused past the idle TTL. A
// lock that is currently held is left alone.
func (rm *RequestMutex) reclaimIdle() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	cutoff := time.Now().Add(-rm.idleTTL)
	for key, k := range rm.locks {
		if k.lastSeen.Before(cutoff) && k.mu.TryLock() {
			k.mu.Unlock()
			delete(rm.locks, key)
		}
	}
}

// Stop terminates the sweeper. Safe to call more than once.
func (rm *RequestMutex) Stop() {
	rm.stopOnce.Do(func() { close(rm.done) })
}
