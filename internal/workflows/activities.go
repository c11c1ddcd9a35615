package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/ports"
	"github.com/campusgo/shuttleplan/internal/pkg/metrics"
)

// RefreshActivities holds the activity implementations for the catalog
// refresh workflow.
type RefreshActivities struct {
	Catalog   ports.StopCatalog
	Snapshots ports.StopSnapshotRepository
	Cache     ports.CacheService
	Publisher ports.EventPublisher
}

// FetchCatalog pulls the full stop catalog from the upstream.
func (a *RefreshActivities) FetchCatalog(ctx context.Context) ([]domain.Stop, error) {
	stops, err := a.Catalog.ListStops(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if len(stops) == 0 {
		// An empty catalog is almost certainly an upstream fault; keeping
		// the previous snapshot beats wiping it.
		return nil, fmt.Errorf("catalog returned no stops")
	}
	return stops, nil
}

// StoreSnapshot replaces the fallback snapshot with a fresh catalog.
func (a *RefreshActivities) StoreSnapshot(ctx context.Context, stops []domain.Stop) error {
	if err := a.Snapshots.Replace(ctx, stops); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	metrics.SnapshotRefreshes.Inc()
	return nil
}

// InvalidateCatalogCache drops the shared catalog cache so the next plan
// reads the fresh data.
func (a *RefreshActivities) InvalidateCatalogCache(ctx context.Context) error {
	if a.Cache == nil {
		return nil
	}
	if err := a.Cache.Delete(ctx, "catalog:stops"); err != nil {
		log.Printf("catalog cache invalidation failed: %v", err)
	}
	return nil
}

// PublishRefreshed announces the refresh on the event bus.
func (a *RefreshActivities) PublishRefreshed(ctx context.Context, stopCount int) error {
	if a.Publisher == nil {
		return nil
	}
	return a.Publisher.PublishCatalogRefreshed(ctx, stopCount)
}
