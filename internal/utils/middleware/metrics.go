package middleware

import (
	"time"

	"github.com/GuiSantosdev/clivus-dev-sub000/internal/utils/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics returns a middleware that records HTTP metrics.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath() // Use route pattern, not actual path
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		m.RecordHTTPRequest(method, path, c.Writer.Status(), time.Since(start))
	}
}
