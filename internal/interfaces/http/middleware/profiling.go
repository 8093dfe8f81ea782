package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
)

// Profiling labels pprof samples taken while a request runs with its route
// and resource so profiles can be filtered per endpoint.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		labels := pyroscope.Labels(
			"method", c.Request.Method,
			"route", route,
			"resource", resourceOf(route),
		)
		pyroscope.TagWrapper(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceOf returns the first static segment after the version prefix:
// "/api/v1/units/:id/transition" -> "units"
func resourceOf(route string) string {
	for _, part := range strings.Split(route, "/") {
		switch {
		case part == "", part == "api", strings.HasPrefix(part, ":"):
			continue
		case len(part) > 1 && part[0] == 'v' && strings.Trim(part[1:], "0123456789") == "":
			continue
		}
		return part
	}
	return ""
}
