package handlers

import (
	"net/http"
	"time"

	"hive-engine-api/internal/services"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	chainChecker *services.ChainHealthChecker
	extraChecks  []services.HealthChecker
}

// NewHealthHandler creates a new health handler. Additional checkers
// (the key store, for instance) are folded into the overall status.
func NewHealthHandler(chainChecker *services.ChainHealthChecker, extra ...services.HealthChecker) *HealthHandler {
	return &HealthHandler{
		chainChecker: chainChecker,
		extraChecks:  extra,
	}
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status    services.HealthStatus            `json:"status"`
	Timestamp time.Time                        `json:"timestamp"`
	Services  map[string]*services.HealthCheck `json:"services"`
	Version   string                           `json:"version,omitempty"`
}

// GetHealth returns the overall health status
func (h *HealthHandler) GetHealth(c *gin.Context) {
	chainHealth := h.chainChecker.CheckHealth(c.Request.Context())

	checks := map[string]*services.HealthCheck{
		"sidechain_rpc": chainHealth,
	}
	overall := chainHealth.Status
	for _, checker := range h.extraChecks {
		check := checker.CheckHealth(c.Request.Context())
		checks[check.Service] = check
		if check.Status == services.HealthStatusUnhealthy {
			overall = services.HealthStatusUnhealthy
		} else if check.Status == services.HealthStatusDegraded && overall == services.HealthStatusHealthy {
			overall = services.HealthStatusDegraded
		}
	}

	response := HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Services:  checks,
		Version:   "1.0.0",
	}

	statusCode := http.StatusOK
	if overall == services.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// GetLiveness returns a simple liveness check
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// GetReadiness returns readiness status
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	chainHealth := h.chainChecker.CheckHealth(c.Request.Context())

	if chainHealth.Status == services.HealthStatusUnhealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not_ready",
			"message":   "sidechain RPC not available",
			"timestamp": time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// GetNodeHealth returns per-node liveness, latency and failure counters
func (h *HealthHandler) GetNodeHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"nodes":     h.chainChecker.NodeHealth(),
		"timestamp": time.Now(),
	})
}
