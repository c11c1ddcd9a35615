package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shuttleplan",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shuttleplan",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Planner metrics
	PlansComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shuttleplan",
		Subsystem: "planner",
		Name:      "plans_computed_total",
		Help:      "Total itinerary comparisons computed",
	}, []string{"recommended"})

	ItinerariesFound = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shuttleplan",
		Subsystem: "planner",
		Name:      "itineraries_per_plan",
		Help:      "Number of viable itineraries per planning request",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	CandidatesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shuttleplan",
		Subsystem: "planner",
		Name:      "candidates_dropped_total",
		Help:      "Candidate (route, stop pair) combinations dropped before synthesis",
	}, []string{"reason"})

	PlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shuttleplan",
		Subsystem: "planner",
		Name:      "plan_duration_seconds",
		Help:      "Wall-clock duration of a full planning fan-out",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// Upstream metrics
	UpstreamCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shuttleplan",
		Subsystem: "upstream",
		Name:      "calls_total",
		Help:      "Total calls to upstream collaborators",
	}, []string{"service", "outcome"})

	UpstreamCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shuttleplan",
		Subsystem: "upstream",
		Name:      "call_duration_seconds",
		Help:      "Upstream call latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service"})

	// Walk-segment cache metrics
	WalkCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shuttleplan",
		Subsystem: "walkcache",
		Name:      "hits_total",
		Help:      "Walking-segment cache hits",
	})

	WalkCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shuttleplan",
		Subsystem: "walkcache",
		Name:      "misses_total",
		Help:      "Walking-segment cache misses",
	})

	// Shared (valkey) cache metrics
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shuttleplan",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total shared-cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shuttleplan",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total shared-cache misses",
	}, []string{"operation"})

	// Catalog snapshot metrics
	SnapshotFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shuttleplan",
		Subsystem: "catalog",
		Name:      "snapshot_fallbacks_total",
		Help:      "Times the stop catalog was served from the database snapshot",
	})

	SnapshotRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shuttleplan",
		Subsystem: "catalog",
		Name:      "snapshot_refreshes_total",
		Help:      "Completed catalog snapshot refreshes",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shuttleplan",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
