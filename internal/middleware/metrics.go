package middleware

import (
	"strconv"
	"time"

	"bazaar/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records a request counter and a latency histogram for every route.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		metrics.HTTPRequests.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Method(), path).Observe(float64(time.Since(start).Milliseconds()))
		return err
	}
}
