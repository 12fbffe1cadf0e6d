package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder is the part of the collector the middleware needs
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// MetricsMiddleware creates a Gin middleware that collects HTTP metrics.
// Requests are labelled with the route pattern so path parameters do not
// create new series.
func MetricsMiddleware(recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		recorder.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
