package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/ports"
)

// ArrivalsService fetches and normalizes live arrival estimates. The feed is
// an untrusted external signal: estimate fields arrive as strings, numbers, or
// a sentinel, and anything that does not parse to a non-negative minute value
// is dropped rather than defaulted. "Unknown" must never read as "now".
type ArrivalsService struct {
	feed        ports.ArrivalsFeed
	publisher   ports.EventPublisher
	maxArrivals int
}

// NewArrivalsService creates a new ArrivalsService. publisher may be nil.
func NewArrivalsService(feed ports.ArrivalsFeed, publisher ports.EventPublisher, maxArrivals int) *ArrivalsService {
	return &ArrivalsService{feed: feed, publisher: publisher, maxArrivals: maxArrivals}
}

// ArrivalsFor returns up to maxArrivals candidate arrivals of route at the
// stop, in upstream order. The upstream order encodes vehicle dispatch
// sequence, so it is preserved even when the ETAs are non-monotonic.
func (s *ArrivalsService) ArrivalsFor(ctx context.Context, stopCode string, route domain.RouteCode) ([]domain.ArrivalCandidate, error) {
	if stopCode == "" {
		return nil, fmt.Errorf("stop code is required")
	}

	entries, err := s.feed.EntriesForStop(ctx, stopCode)
	if err != nil {
		return nil, fmt.Errorf("arrivals for stop %s: %w", stopCode, err)
	}

	var candidates []domain.ArrivalCandidate
	for _, entry := range entries {
		if !strings.EqualFold(entry.RouteCode, string(route)) {
			continue
		}
		for i, raw := range entry.Estimates {
			if len(candidates) >= s.maxArrivals {
				break
			}
			minutes, ok := parseETAMinutes(raw)
			if !ok {
				continue
			}
			vehicle := ""
			if i < len(entry.VehicleIDs) {
				vehicle = entry.VehicleIDs[i]
			}
			candidates = append(candidates, domain.ArrivalCandidate{
				ETASeconds: minutes * 60,
				VehicleID:  vehicle,
			})
		}
		break
	}

	if s.publisher != nil && len(candidates) > 0 {
		_ = s.publisher.PublishArrivalSnapshot(ctx, stopCode, route, candidates)
	}

	return candidates, nil
}

// parseETAMinutes normalizes a raw estimate field into whole minutes. The
// second return value is false when the value is absent, unparsable, or
// negative. Absence stays tagged; it never becomes a numeric default.
func parseETAMinutes(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		m := int(num)
		if m < 0 {
			return 0, false
		}
		return m, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || m < 0 {
		return 0, false
	}
	return m, true
}
