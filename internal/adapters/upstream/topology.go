package upstream

import (
	"context"
	"fmt"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

type sequenceEntry struct {
	Code      string `json:"code"`
	ShortCode string `json:"shortCode"`
}

// StopSequence implements ports.RouteTopology: the ordered stop sequence for
// one pass of the route. Order on the wire is authoritative.
func (c *Client) StopSequence(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error) {
	var raw []sequenceEntry
	url := fmt.Sprintf("%s/routes/%s/stops", c.topologyURL, route)
	if err := c.getJSON(ctx, "topology", url, &raw); err != nil {
		return nil, fmt.Errorf("fetch stop sequence for route %s: %w", route, err)
	}

	seq := make([]domain.SequencedStop, 0, len(raw))
	for _, e := range raw {
		if e.Code == "" {
			continue
		}
		short := e.ShortCode
		if short == "" {
			short = e.Code
		}
		seq = append(seq, domain.SequencedStop{Code: e.Code, ShortCode: short})
	}
	return seq, nil
}
