package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

// planRequest is the body of the itinerary endpoints.
type planRequest struct {
	Origin          pointParam `json:"origin"`
	Destination     pointParam `json:"destination"`
	BaselineSeconds *int       `json:"baseline_seconds,omitempty"`
}

type pointParam struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p pointParam) toDomain() domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat, Lon: p.Lon}
}

// PlanItinerariesHandler returns every viable shuttle itinerary for a trip.
// POST /v1/itineraries {"origin":{"lat":..,"lon":..},"destination":{...}}
func PlanItinerariesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req planRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		items, err := deps.Planner.FindItineraries(c.UserContext(), req.Origin.toDomain(), req.Destination.toDomain())
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.JSON(fiber.Map{
			"itineraries": items,
			"count":       len(items),
		})
	}
}

// CompareHandler plans itineraries and weighs the best against a baseline.
// POST /v1/itineraries/compare
func CompareHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req planRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.BaselineSeconds != nil && *req.BaselineSeconds < 0 {
			return errBadRequest(c, "baseline_seconds must not be negative")
		}

		cmp, err := deps.Planner.Compare(c.UserContext(), req.Origin.toDomain(), req.Destination.toDomain(), req.BaselineSeconds)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.JSON(cmp)
	}
}

// NearbyStopsHandler returns stops within a radius of a point.
// GET /v1/stops/nearby?lat=..&lon=..&radius=500&limit=10
func NearbyStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 10)

		if lat == 0 && lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if radius <= 0 || radius > 5000 {
			return errBadRequest(c, "radius must be between 1 and 5000 meters")
		}
		if limit <= 0 || limit > 50 {
			limit = 10
		}

		stops, err := deps.Catalog.NearestStops(c.UserContext(), domain.GeoPoint{Lat: lat, Lon: lon}, radius, limit)
		if err != nil {
			if strings.Contains(err.Error(), "invalid reference point") {
				return errBadRequest(c, err.Error())
			}
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stops)
	}
}

// GetStopHandler returns a single stop by catalog code.
func GetStopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Params("code")
		if code == "" {
			return errBadRequest(c, "stop code is required")
		}
		stop, err := deps.Catalog.ExactStop(c.UserContext(), code)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if stop == nil {
			return errNotFound(c, "stop not found")
		}
		return c.JSON(stop)
	}
}

// StopArrivalsHandler returns normalized live arrivals for one route at a stop.
// GET /v1/stops/:code/arrivals?route=A
func StopArrivalsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Params("code")
		if code == "" {
			return errBadRequest(c, "stop code is required")
		}
		route, ok := parseRoute(c.Query("route"))
		if !ok {
			return errBadRequest(c, "route must be one of A, B, C")
		}

		candidates, err := deps.Arrivals.ArrivalsFor(c.UserContext(), code, route)
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.JSON(fiber.Map{
			"stop_code":  code,
			"route_code": route,
			"arrivals":   candidates,
		})
	}
}

// RouteStopsHandler returns the ordered stop sequence of a route.
func RouteStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, ok := parseRoute(c.Params("code"))
		if !ok {
			return errBadRequest(c, "route must be one of A, B, C")
		}

		seq, err := deps.Membership.StopsOn(c.UserContext(), route)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(fiber.Map{
			"route_code": route,
			"stops":      seq,
		})
	}
}

// RecentPlansHandler returns the latest plan log entries, newest first.
// GET /v1/plans/recent?offset=0&limit=20
func RecentPlansHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.PlanLog == nil {
			return errInternal(c, "plan log not available")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		// Fetch one past the page so the Link header can tell if more exist.
		records, err := deps.PlanLog.Recent(c.UserContext(), offset+limit+1)
		if err != nil {
			return errInternal(c, err.Error())
		}

		total := len(records)
		if offset >= total {
			records = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			records = records[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: records, Pagination: pg})
	}
}

// StatusHandler reports snapshot freshness and stored volumes.
// GET /v1/status
func StatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Snapshots == nil {
			return errInternal(c, "database not available")
		}

		stops, plans, err := deps.Snapshots.Counts(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		refreshedAt, err := deps.Snapshots.LastRefreshedAt(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}

		lastRefresh := ""
		if !refreshedAt.IsZero() {
			lastRefresh = refreshedAt.UTC().Format(time.RFC3339)
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(fiber.Map{
			"snapshot_stops": stops,
			"plans_logged":   plans,
			"last_refresh":   lastRefresh,
			"routes":         domain.AllRoutes,
		})
	}
}

func parseRoute(raw string) (domain.RouteCode, bool) {
	code := domain.RouteCode(strings.ToUpper(strings.TrimSpace(raw)))
	for _, r := range domain.AllRoutes {
		if code == r {
			return r, true
		}
	}
	return "", false
}
