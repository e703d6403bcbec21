package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yungbote/northwind-slim-backend/internal/observability"
)

// unobservedRoutes are polled by infrastructure and would drown the API series.
var unobservedRoutes = map[string]bool{
	"/metrics":     true,
	"/healthcheck": true,
}

// Metrics records per-route request counts and latency for the API.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if unobservedRoutes[c.FullPath()] {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			// Unmatched paths share one series instead of one per URL.
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
