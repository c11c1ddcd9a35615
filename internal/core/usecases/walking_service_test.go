package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/usecases"
)

// --- Mock WalkingDirections ---

type mockDirections struct {
	walkFn func(ctx context.Context, origin, destination domain.GeoPoint) (*domain.WalkSegment, error)

	mu    sync.Mutex
	calls int
}

func (m *mockDirections) Walk(ctx context.Context, origin, destination domain.GeoPoint) (*domain.WalkSegment, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.walkFn != nil {
		return m.walkFn(ctx, origin, destination)
	}
	return &domain.WalkSegment{DistanceMeters: 100, DurationSeconds: 72, Polyline: "abc"}, nil
}

func (m *mockDirections) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestWalkingEstimator_CachesAuthoritativeSegments(t *testing.T) {
	dirs := &mockDirections{}
	est := usecases.NewWalkingEstimator(dirs, 1.4, nil)

	origin := domain.GeoPoint{Lat: 40.0, Lon: -3.0}
	dest := domain.GeoPoint{Lat: 40.001, Lon: -3.0}

	first := est.WalkingSegment(context.Background(), origin, dest)
	second := est.WalkingSegment(context.Background(), origin, dest)

	if first != second {
		t.Errorf("expected identical cached segment, got %+v vs %+v", first, second)
	}
	if first.Heuristic {
		t.Error("expected an authoritative segment, got heuristic")
	}
	if dirs.callCount() != 1 {
		t.Errorf("expected exactly 1 directions call, got %d", dirs.callCount())
	}
}

// Coordinates that agree to within a microdegree are the same walking leg.
func TestWalkingEstimator_RoundsCacheKey(t *testing.T) {
	dirs := &mockDirections{}
	est := usecases.NewWalkingEstimator(dirs, 1.4, nil)

	dest := domain.GeoPoint{Lat: 40.001, Lon: -3.0}
	est.WalkingSegment(context.Background(), domain.GeoPoint{Lat: 40.0000001, Lon: -3.0}, dest)
	est.WalkingSegment(context.Background(), domain.GeoPoint{Lat: 40.0000004, Lon: -3.0}, dest)

	if dirs.callCount() != 1 {
		t.Errorf("expected sub-microdegree jitter to share one cache entry, got %d calls", dirs.callCount())
	}
}

func TestWalkingEstimator_HeuristicFallback(t *testing.T) {
	dirs := &mockDirections{
		walkFn: func(ctx context.Context, origin, destination domain.GeoPoint) (*domain.WalkSegment, error) {
			return nil, errors.New("directions down")
		},
	}
	est := usecases.NewWalkingEstimator(dirs, 1.4, nil)

	origin := domain.GeoPoint{Lat: 40.0, Lon: -3.0}
	dest := domain.GeoPoint{Lat: 40.0036, Lon: -3.0} // about 400m north

	seg := est.WalkingSegment(context.Background(), origin, dest)
	if !seg.Heuristic {
		t.Fatal("expected heuristic fallback when directions fail")
	}
	if seg.DistanceMeters < 380 || seg.DistanceMeters > 420 {
		t.Errorf("expected roughly 400m straight-line distance, got %.1f", seg.DistanceMeters)
	}
	if seg.DurationSeconds < 270 || seg.DurationSeconds > 300 {
		t.Errorf("expected roughly 286s at 1.4 m/s, got %d", seg.DurationSeconds)
	}
	if seg.Polyline != "" {
		t.Error("heuristic segment must not carry a polyline")
	}
}

// Heuristic results are recomputed, not cached, so the directions service is
// retried on the next request for the same leg.
func TestWalkingEstimator_DoesNotCacheHeuristic(t *testing.T) {
	dirs := &mockDirections{
		walkFn: func(ctx context.Context, origin, destination domain.GeoPoint) (*domain.WalkSegment, error) {
			return nil, errors.New("directions down")
		},
	}
	est := usecases.NewWalkingEstimator(dirs, 1.4, nil)

	origin := domain.GeoPoint{Lat: 40.0, Lon: -3.0}
	dest := domain.GeoPoint{Lat: 40.001, Lon: -3.0}

	est.WalkingSegment(context.Background(), origin, dest)
	est.WalkingSegment(context.Background(), origin, dest)

	if dirs.callCount() != 2 {
		t.Errorf("expected a retry after heuristic fallback, got %d calls", dirs.callCount())
	}
}

func TestWalkingEstimator_NilDirections(t *testing.T) {
	est := usecases.NewWalkingEstimator(nil, 1.4, nil)

	seg := est.WalkingSegment(context.Background(),
		domain.GeoPoint{Lat: 40.0, Lon: -3.0},
		domain.GeoPoint{Lat: 40.001, Lon: -3.0})
	if !seg.Heuristic {
		t.Error("expected heuristic segment without a directions service")
	}
}

func TestWalkingEstimator_ConcurrentSameLeg(t *testing.T) {
	dirs := &mockDirections{}
	est := usecases.NewWalkingEstimator(dirs, 1.4, nil)

	origin := domain.GeoPoint{Lat: 40.0, Lon: -3.0}
	dest := domain.GeoPoint{Lat: 40.001, Lon: -3.0}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seg := est.WalkingSegment(context.Background(), origin, dest)
			if seg.DurationSeconds != 72 {
				t.Errorf("expected 72s segment, got %d", seg.DurationSeconds)
			}
		}()
	}
	wg.Wait()

	if dirs.callCount() != 1 {
		t.Errorf("expected concurrent requests to share one directions call, got %d", dirs.callCount())
	}
}
