package middleware

import (
	"time"

	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/retro-booth/internal/metrics"
)

// Metrics records Prometheus metrics for every request, labelled by route pattern.
func Metrics() func(*ginext.Context) {
	return func(c *ginext.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
