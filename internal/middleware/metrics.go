package middleware

import (
	"net/http"
	"strconv"
	"time"

	"agriconnect/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request count, latency and in-flight requests per route template.
// A panic passing through is counted as a 500 and re-raised.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		m.HTTPRequestsInFlight.Inc()
		start := time.Now()

		defer func() {
			m.HTTPRequestsInFlight.Dec()

			status := c.Writer.Status()
			r := recover()
			if r != nil {
				status = http.StatusInternalServerError
			}

			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())

			if r != nil {
				panic(r)
			}
		}()

		c.Next()
	}
}
