package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

// arrivalsResponse is the live feed payload for one stop. The two arrival
// fields are deliberately kept raw: upstream sends them as strings, numbers,
// or a sentinel, and normalization belongs to the usecase layer. Occupancy
// fields are present on the wire but unused here.
type arrivalsResponse struct {
	StopCode string         `json:"stopCode"`
	Routes   []routeArrival `json:"routes"`
}

type routeArrival struct {
	Route      string          `json:"route"`
	Arrival1   json.RawMessage `json:"arrival1"`
	Arrival2   json.RawMessage `json:"arrival2"`
	Vehicle1   string          `json:"vehicle1"`
	Vehicle2   string          `json:"vehicle2"`
	Occupancy1 json.RawMessage `json:"occupancy1"`
	Occupancy2 json.RawMessage `json:"occupancy2"`
}

// EntriesForStop implements ports.ArrivalsFeed.
func (c *Client) EntriesForStop(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
	var raw arrivalsResponse
	url := fmt.Sprintf("%s/stops/%s/arrivals", c.arrivalsURL, stopCode)
	if err := c.getJSON(ctx, "arrivals", url, &raw); err != nil {
		return nil, fmt.Errorf("fetch arrivals for stop %s: %w", stopCode, err)
	}

	entries := make([]domain.RawRouteArrivals, 0, len(raw.Routes))
	for _, r := range raw.Routes {
		entries = append(entries, domain.RawRouteArrivals{
			RouteCode:  r.Route,
			Estimates:  []json.RawMessage{r.Arrival1, r.Arrival2},
			VehicleIDs: []string{r.Vehicle1, r.Vehicle2},
		})
	}
	return entries, nil
}
