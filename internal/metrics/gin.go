package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware измеряет HTTP-запросы. Метка route берётся из шаблона маршрута gin.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
