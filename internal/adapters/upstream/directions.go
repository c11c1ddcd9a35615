package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

type directionsRequest struct {
	Origin      wirePoint `json:"origin"`
	Destination wirePoint `json:"destination"`
}

type wirePoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type directionsResponse struct {
	// Duration is either a JSON number of seconds or a string like "337s".
	Duration       json.RawMessage `json:"duration"`
	DistanceMeters float64         `json:"distanceMeters"`
	Polyline       string          `json:"polyline"`
}

// Walk implements ports.WalkingDirections: an authoritative walking leg from
// the external directions service.
func (c *Client) Walk(ctx context.Context, origin, destination domain.GeoPoint) (*domain.WalkSegment, error) {
	req := directionsRequest{
		Origin:      wirePoint{Latitude: origin.Lat, Longitude: origin.Lon},
		Destination: wirePoint{Latitude: destination.Lat, Longitude: destination.Lon},
	}

	var resp directionsResponse
	if err := c.postJSON(ctx, "directions", c.directionsURL+"/walk", req, &resp); err != nil {
		return nil, fmt.Errorf("fetch walking directions: %w", err)
	}

	secs, err := parseDurationSeconds(resp.Duration)
	if err != nil {
		return nil, fmt.Errorf("walking directions duration: %w", err)
	}

	return &domain.WalkSegment{
		DistanceMeters:  resp.DistanceMeters,
		DurationSeconds: secs,
		Polyline:        resp.Polyline,
	}, nil
}

// parseDurationSeconds accepts a JSON number of seconds or a "<n>s" string.
func parseDurationSeconds(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("duration missing")
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num < 0 {
			return 0, fmt.Errorf("negative duration %f", num)
		}
		return int(math.Ceil(num)), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("unrecognized duration %s", string(raw))
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "s")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized duration %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return int(math.Ceil(f)), nil
}
