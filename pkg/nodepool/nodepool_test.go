package nodepool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSelect(t *testing.T) {
	urls := []string{"https://node-a", "https://node-b", "https://node-c"}

	t.Run("RoundRobin", func(t *testing.T) {
		pool := New(urls)

		first, err := pool.Select()
		require.NoError(t, err)
		second, err := pool.Select()
		require.NoError(t, err)
		third, err := pool.Select()
		require.NoError(t, err)
		fourth, err := pool.Select()
		require.NoError(t, err)

		assert.Equal(t, urls[0], first)
		assert.Equal(t, urls[1], second)
		assert.Equal(t, urls[2], third)
		assert.Equal(t, urls[0], fourth)
	})

	t.Run("NeverReturnsOutsidePool", func(t *testing.T) {
		pool := New(urls)
		known := map[string]bool{}
		for _, u := range urls {
			known[u] = true
		}

		for i := 0; i < 20; i++ {
			url, err := pool.Select()
			require.NoError(t, err)
			assert.True(t, known[url], "selected %q outside the configured pool", url)
			if i%3 == 0 {
				pool.ReportFailure(url)
			}
		}
	})

	t.Run("SkipsUnhealthyNodes", func(t *testing.T) {
		pool := New(urls)

		// node-a needs three consecutive failures to go unhealthy
		for i := 0; i < 3; i++ {
			pool.ReportFailure(urls[0])
		}

		for i := 0; i < 6; i++ {
			url, err := pool.Select()
			require.NoError(t, err)
			assert.NotEqual(t, urls[0], url)
		}
	})

	t.Run("EmptyPool", func(t *testing.T) {
		pool := New(nil)
		_, err := pool.Select()
		assert.ErrorIs(t, err, ErrEmptyPool)
	})
}

func TestPoolFailureThreshold(t *testing.T) {
	pool := New([]string{"https://node-a"})

	pool.ReportFailure("https://node-a")
	pool.ReportFailure("https://node-a")
	assert.True(t, pool.Health()[0].Healthy, "two failures must not mark a node unhealthy")
	assert.Equal(t, 2, pool.Health()[0].ConsecutiveFailures)

	pool.ReportFailure("https://node-a")
	assert.False(t, pool.Health()[0].Healthy)

	// Any success resets the counter and restores health
	pool.ReportSuccess("https://node-a", 42*time.Millisecond)
	h := pool.Health()[0]
	assert.True(t, h.Healthy)
	assert.Equal(t, 0, h.ConsecutiveFailures)
	assert.Equal(t, 42*time.Millisecond, h.Latency)
}

func TestPoolAllUnhealthyReset(t *testing.T) {
	urls := []string{"https://node-a", "https://node-b"}
	pool := New(urls)

	for _, u := range urls {
		for i := 0; i < 3; i++ {
			pool.ReportFailure(u)
		}
	}
	for _, h := range pool.Health() {
		require.False(t, h.Healthy)
	}

	// Selection must still return a node and reset the pool instead of
	// deadlocking on a transient pool-wide outage.
	url, err := pool.Select()
	require.NoError(t, err)
	assert.Contains(t, urls, url)

	healthyCount := 0
	for _, h := range pool.Health() {
		if h.Healthy {
			healthyCount++
		}
	}
	assert.Equal(t, len(urls), healthyCount)
}

func TestPoolConcurrentAccess(t *testing.T) {
	urls := []string{"https://node-a", "https://node-b", "https://node-c"}
	pool := New(urls)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				url, err := pool.Select()
				if err != nil {
					t.Error(err)
					return
				}
				if (n+j)%5 == 0 {
					pool.ReportFailure(url)
				} else {
					pool.ReportSuccess(url, time.Millisecond)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, pool.Health(), 3)
}
