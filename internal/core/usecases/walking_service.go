package usecases

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/ports"
	"github.com/campusgo/shuttleplan/internal/pkg/geospatial"
	"github.com/campusgo/shuttleplan/internal/pkg/metrics"
)

// segmentKey identifies a walking leg by its endpoints rounded to microdegrees
// (sub-meter), so nearly identical queries share one cache entry.
type segmentKey struct {
	oLat, oLon, dLat, dLon int64
}

func keyFor(origin, destination domain.GeoPoint) segmentKey {
	return segmentKey{
		oLat: int64(math.Round(origin.Lat * 1e6)),
		oLon: int64(math.Round(origin.Lon * 1e6)),
		dLat: int64(math.Round(destination.Lat * 1e6)),
		dLon: int64(math.Round(destination.Lon * 1e6)),
	}
}

type inflight struct {
	done chan struct{}
	seg  domain.WalkSegment
	ok   bool
}

// WalkingEstimator produces walking legs, preferring the external directions
// service and falling back to the straight-line heuristic. It owns the
// process-lifetime segment cache: authoritative results are cached by rounded
// endpoint pair, heuristic ones are not (cheap to recompute, not
// authoritative). Safe for concurrent use across planner candidates; a call
// already in flight for the same key is joined rather than duplicated.
type WalkingEstimator struct {
	directions ports.WalkingDirections
	speedMps   float64
	log        *slog.Logger

	mu       sync.Mutex
	segments map[segmentKey]domain.WalkSegment
	pending  map[segmentKey]*inflight
}

// NewWalkingEstimator creates a new WalkingEstimator. directions may be nil,
// in which case every leg uses the heuristic.
func NewWalkingEstimator(directions ports.WalkingDirections, speedMps float64, log *slog.Logger) *WalkingEstimator {
	if log == nil {
		log = slog.Default()
	}
	return &WalkingEstimator{
		directions: directions,
		speedMps:   speedMps,
		log:        log,
		segments:   make(map[segmentKey]domain.WalkSegment),
		pending:    make(map[segmentKey]*inflight),
	}
}

// WalkingSegment returns a walking leg from origin to destination. It never
// fails: a directions error degrades to the heuristic estimate.
func (e *WalkingEstimator) WalkingSegment(ctx context.Context, origin, destination domain.GeoPoint) domain.WalkSegment {
	key := keyFor(origin, destination)

	e.mu.Lock()
	if seg, hit := e.segments[key]; hit {
		e.mu.Unlock()
		metrics.WalkCacheHits.Inc()
		return seg
	}
	if call, dup := e.pending[key]; dup {
		e.mu.Unlock()
		select {
		case <-call.done:
			if call.ok {
				metrics.WalkCacheHits.Inc()
				return call.seg
			}
		case <-ctx.Done():
		}
		return e.heuristic(origin, destination)
	}
	call := &inflight{done: make(chan struct{})}
	e.pending[key] = call
	e.mu.Unlock()

	metrics.WalkCacheMisses.Inc()

	var seg domain.WalkSegment
	ok := false
	if e.directions != nil {
		if result, err := e.directions.Walk(ctx, origin, destination); err == nil {
			seg, ok = *result, true
		} else {
			e.log.Debug("walking directions failed, using heuristic", "error", err)
		}
	}

	e.mu.Lock()
	if ok {
		e.segments[key] = seg
	}
	call.seg, call.ok = seg, ok
	delete(e.pending, key)
	e.mu.Unlock()
	close(call.done)

	if ok {
		return seg
	}
	return e.heuristic(origin, destination)
}

func (e *WalkingEstimator) heuristic(origin, destination domain.GeoPoint) domain.WalkSegment {
	dist := geospatial.Haversine(origin.Lat, origin.Lon, destination.Lat, destination.Lon)
	return domain.WalkSegment{
		DistanceMeters:  dist,
		DurationSeconds: geospatial.WalkDuration(dist, e.speedMps),
		Heuristic:       true,
	}
}
