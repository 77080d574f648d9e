package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-invigilation-api/internal/service"
)

const unmatchedRoute = "unmatched"

// unmeteredPaths are scraped or polled often enough to drown out the API series.
var unmeteredPaths = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
	"/ready":   {},
}

// Metrics records request counts and latency per route template. Requests that
// match no route share one label so that download tokens and typos do not
// create new series.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, skip := unmeteredPaths[c.Request.URL.Path]; skip {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

func routeLabel(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		return unmatchedRoute
	}
	return strings.TrimSuffix(route, "/")
}
