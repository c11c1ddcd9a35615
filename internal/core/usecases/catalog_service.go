package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/ports"
	"github.com/campusgo/shuttleplan/internal/pkg/geospatial"
	"github.com/campusgo/shuttleplan/internal/pkg/metrics"
)

const catalogCacheKey = "catalog:stops"

// CatalogService resolves stops from the upstream catalog, with read-through
// caching and a database snapshot as degraded-mode fallback.
type CatalogService struct {
	catalog   ports.StopCatalog
	snapshots ports.StopSnapshotRepository
	cache     ports.CacheService
}

// NewCatalogService creates a new CatalogService. snapshots and cache may be
// nil; the service then works directly against the upstream.
func NewCatalogService(catalog ports.StopCatalog, snapshots ports.StopSnapshotRepository, cache ports.CacheService) *CatalogService {
	return &CatalogService{catalog: catalog, snapshots: snapshots, cache: cache}
}

// NearestStops returns stops within radiusMeters of point, ascending by
// distance, truncated to maxCount. A catalog failure surfaces as an error with
// an empty result; callers treat that as "no candidates", not as fatal.
func (s *CatalogService) NearestStops(ctx context.Context, point domain.GeoPoint, radiusMeters float64, maxCount int) ([]domain.Stop, error) {
	if !point.Valid() {
		return nil, fmt.Errorf("invalid reference point %+v", point)
	}
	if maxCount <= 0 {
		return nil, nil
	}

	all, err := s.allStops(ctx)
	if err != nil {
		return nil, err
	}

	var nearby []domain.Stop
	for _, stop := range all {
		d := geospatial.Haversine(point.Lat, point.Lon, stop.Location.Lat, stop.Location.Lon)
		if d > radiusMeters {
			continue
		}
		dist := d
		stop.Distance = &dist
		nearby = append(nearby, stop)
	}

	sort.Slice(nearby, func(i, j int) bool {
		if *nearby[i].Distance != *nearby[j].Distance {
			return *nearby[i].Distance < *nearby[j].Distance
		}
		return nearby[i].Code < nearby[j].Code // deterministic tie-break
	})

	if len(nearby) > maxCount {
		nearby = nearby[:maxCount]
	}
	return nearby, nil
}

// ExactStop returns the stop with the given catalog code, or nil if unknown.
func (s *CatalogService) ExactStop(ctx context.Context, code string) (*domain.Stop, error) {
	if code == "" {
		return nil, fmt.Errorf("stop code is required")
	}

	all, err := s.allStops(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Code == code {
			stop := all[i]
			return &stop, nil
		}
	}
	return nil, nil
}

// allStops resolves the full catalog: shared cache first, then the upstream,
// then the database snapshot when the upstream is unreachable.
func (s *CatalogService) allStops(ctx context.Context) ([]domain.Stop, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, catalogCacheKey); err == nil {
			var stops []domain.Stop
			if err := json.Unmarshal(data, &stops); err == nil {
				metrics.CacheHits.WithLabelValues("catalog").Inc()
				return stops, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("catalog").Inc()
	}

	stops, err := s.catalog.ListStops(ctx)
	if err != nil {
		if s.snapshots == nil {
			return nil, fmt.Errorf("stop catalog unavailable: %w", err)
		}
		slog.Warn("stop catalog upstream failed, using snapshot", "error", err)
		snap, snapErr := s.snapshots.List(ctx)
		if snapErr != nil || len(snap) == 0 {
			return nil, fmt.Errorf("stop catalog unavailable: %w", err)
		}
		metrics.SnapshotFallbacks.Inc()
		return snap, nil
	}

	// Stops change rarely; 5 minutes keeps repeat plans off the upstream.
	if s.cache != nil {
		if data, err := json.Marshal(stops); err == nil {
			_ = s.cache.Set(ctx, catalogCacheKey, data, 300)
		}
	}

	return stops, nil
}
