package ports

import (
	"context"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

// StopCatalog fetches the full campus stop catalog from its upstream service.
type StopCatalog interface {
	ListStops(ctx context.Context) ([]domain.Stop, error)
}

// RouteTopology fetches a route's ordered stop sequence.
type RouteTopology interface {
	StopSequence(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error)
}

// ArrivalsFeed fetches the live shuttle arrivals feed for one stop. Estimate
// values are returned raw; normalization is the caller's concern.
type ArrivalsFeed interface {
	EntriesForStop(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error)
}

// WalkingDirections asks the external directions service for a walking leg.
type WalkingDirections interface {
	Walk(ctx context.Context, origin, destination domain.GeoPoint) (*domain.WalkSegment, error)
}
