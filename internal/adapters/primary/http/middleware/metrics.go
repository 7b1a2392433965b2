package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"model-promotion-service/internal/metrics"
)

// Metrics records per-route request counts and latency. Uses the route
// template (c.FullPath) rather than the raw URL to keep label cardinality
// bounded.
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.ObserveRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
