package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/ports"
	"github.com/campusgo/shuttleplan/internal/pkg/metrics"
)

// MembershipService decides whether a fixed route serves an ordered stop pair.
type MembershipService struct {
	topology       ports.RouteTopology
	cache          ports.CacheService
	perStopSeconds int
}

// NewMembershipService creates a new MembershipService. perStopSeconds is the
// coarse ride-time estimate per hop, standing in for historical travel data.
func NewMembershipService(topology ports.RouteTopology, cache ports.CacheService, perStopSeconds int) *MembershipService {
	return &MembershipService{topology: topology, cache: cache, perStopSeconds: perStopSeconds}
}

// RouteConnects reports whether route visits departureCode and then
// arrivalCode within one forward pass of its stop sequence. Routes that loop
// back are not followed across the wraparound: an arrival index at or before
// the departure index never connects, even on circular routes.
func (s *MembershipService) RouteConnects(ctx context.Context, route domain.RouteCode, departureCode, arrivalCode string) (domain.RouteMembership, error) {
	var none domain.RouteMembership

	if departureCode == "" || arrivalCode == "" {
		return none, fmt.Errorf("departure and arrival codes are required")
	}
	if departureCode == arrivalCode {
		return none, nil
	}

	seq, err := s.stopSequence(ctx, route)
	if err != nil {
		return none, fmt.Errorf("route %s topology: %w", route, err)
	}

	depIdx, arrIdx := -1, -1
	for i, stop := range seq {
		if stop.Code == departureCode && depIdx == -1 {
			depIdx = i
		}
		if stop.Code == arrivalCode && arrIdx == -1 {
			arrIdx = i
		}
	}
	if depIdx == -1 || arrIdx == -1 || arrIdx <= depIdx {
		return none, nil
	}

	intermediate := make([]string, 0, arrIdx-depIdx-1)
	for _, stop := range seq[depIdx+1 : arrIdx] {
		intermediate = append(intermediate, stop.ShortCode)
	}

	return domain.RouteMembership{
		Connects:             true,
		IntermediateStops:    intermediate,
		EstimatedRideSeconds: (arrIdx - depIdx) * s.perStopSeconds,
	}, nil
}

// StopsOn returns the ordered stop sequence of a route.
func (s *MembershipService) StopsOn(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error) {
	return s.stopSequence(ctx, route)
}

func (s *MembershipService) stopSequence(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error) {
	cacheKey := "topology:" + string(route)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var seq []domain.SequencedStop
			if err := json.Unmarshal(data, &seq); err == nil {
				metrics.CacheHits.WithLabelValues("topology").Inc()
				return seq, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("topology").Inc()
	}

	seq, err := s.topology.StopSequence(ctx, route)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(seq); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return seq, nil
}
