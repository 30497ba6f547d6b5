package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dudesk/dudesk-chat/internal/observability"
)

// Metrics records request counts and latency. Long-lived stream routes
// listed in streams are counted but kept out of the latency histogram.
func Metrics(m *observability.Metrics, streams ...string) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	skip := make(map[string]bool, len(streams))
	for _, s := range streams {
		skip[s] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		dur := time.Since(start)
		if skip[route] {
			dur = -1
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), dur)
	}
}
