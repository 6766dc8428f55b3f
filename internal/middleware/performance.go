package middleware

import (
	"strconv"
	"time"

	"hive-engine-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// PerformanceMiddleware tracks request performance metrics
func PerformanceMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		collector.RecordRequest()

		c.Next()

		duration := time.Since(startTime)
		success := c.Writer.Status() >= 200 && c.Writer.Status() < 400

		collector.RecordRequestComplete(duration, success)

		c.Header("X-Response-Time", duration.String())
		c.Header("X-Response-Time-Ms", strconv.FormatInt(duration.Milliseconds(), 10))
	}
}
