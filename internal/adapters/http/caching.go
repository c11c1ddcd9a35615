package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0"

		case strings.HasPrefix(path, "/v1/stops/nearby"):
			ttl = "public, max-age=60" // Location queries, distances are stable

		case strings.HasSuffix(path, "/arrivals"):
			ttl = "no-cache" // Live ETAs go stale in seconds

		case strings.HasPrefix(path, "/v1/routes/"):
			ttl = "public, max-age=600" // Topology changes rarely

		case strings.HasPrefix(path, "/v1/stops/"):
			ttl = "public, max-age=600"

		case strings.HasPrefix(path, "/v1/plans"):
			ttl = "private, max-age=0" // Plan log is operator-facing

		case path == "/v1/status":
			ttl = "public, max-age=60"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=60" // Conservative default
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
