package upstream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

// catalogStop is the wire format of one stop catalog entry.
type catalogStop struct {
	Code        string  `json:"code"`
	DisplayName string  `json:"displayName"`
	ShortCode   string  `json:"shortCode"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// ListStops implements ports.StopCatalog. Entries without usable coordinates
// are dropped rather than mapped to (0, 0).
func (c *Client) ListStops(ctx context.Context) ([]domain.Stop, error) {
	var raw []catalogStop
	url := c.catalogURL + "/stops"
	if err := c.getJSON(ctx, "catalog", url, &raw); err != nil {
		return nil, fmt.Errorf("fetch stop catalog: %w", err)
	}

	stops := make([]domain.Stop, 0, len(raw))
	for _, e := range raw {
		loc := domain.GeoPoint{Lat: e.Latitude, Lon: e.Longitude}
		if e.Code == "" || !loc.Valid() {
			slog.Debug("skipping malformed catalog entry", "code", e.Code)
			continue
		}
		stops = append(stops, domain.Stop{
			Code:        e.Code,
			DisplayName: e.DisplayName,
			ShortCode:   e.ShortCode,
			Location:    loc,
		})
	}
	return stops, nil
}
