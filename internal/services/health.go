package services

import (
	"context"
	"fmt"
	"time"

	"hive-engine-api/pkg/nodepool"
)

// HealthStatus represents the health status of a service
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck represents a health check result
type HealthCheck struct {
	Service      string        `json:"service"`
	Status       HealthStatus  `json:"status"`
	Message      string        `json:"message,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
	Timestamp    time.Time     `json:"timestamp"`
}

// HealthChecker reports the health of one backing service
type HealthChecker interface {
	CheckHealth(ctx context.Context) *HealthCheck
}

// ChainHealthChecker probes the sidechain RPC layer: a live block fetch
// plus the per-node liveness state kept by the pool.
type ChainHealthChecker struct {
	chain ChainReader
	pool  *nodepool.Pool
}

// NewChainHealthChecker creates a new chain health checker
func NewChainHealthChecker(chain ChainReader, pool *nodepool.Pool) *ChainHealthChecker {
	return &ChainHealthChecker{
		chain: chain,
		pool:  pool,
	}
}

// CheckHealth verifies the RPC layer can serve a block-info request
func (chc *ChainHealthChecker) CheckHealth(ctx context.Context) *HealthCheck {
	start := time.Now()

	healthCheck := &HealthCheck{
		Service:   "sidechain_rpc",
		Timestamp: start,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	block, err := chc.chain.LatestBlockInfo(ctx)
	healthCheck.ResponseTime = time.Since(start)
	if err != nil {
		healthCheck.Status = HealthStatusUnhealthy
		healthCheck.Message = fmt.Sprintf("block info fetch failed: %v", err)
		return healthCheck
	}

	healthCheck.Status = HealthStatusHealthy
	healthCheck.Message = fmt.Sprintf("latest block %d", block.BlockNumber)

	// Reachable overall, but flag a thinned pool
	healthy := 0
	for _, node := range chc.pool.Health() {
		if node.Healthy {
			healthy++
		}
	}
	if healthy < chc.pool.Size() {
		healthCheck.Status = HealthStatusDegraded
		healthCheck.Message = fmt.Sprintf("latest block %d, %d/%d nodes healthy",
			block.BlockNumber, healthy, chc.pool.Size())
	}

	return healthCheck
}

// NodeHealth returns the per-node liveness and latency state
func (chc *ChainHealthChecker) NodeHealth() []nodepool.NodeHealth {
	return chc.pool.Health()
}
