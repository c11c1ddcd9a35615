package ports

import (
	"context"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPlanComputed(ctx context.Context, rec *domain.PlanRecord) error
	PublishArrivalSnapshot(ctx context.Context, stopCode string, route domain.RouteCode, candidates []domain.ArrivalCandidate) error
	PublishCatalogRefreshed(ctx context.Context, stopCount int) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
