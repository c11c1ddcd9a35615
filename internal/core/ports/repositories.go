package ports

import (
	"context"
	"time"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

// PlanLogRepository persists comparison outcomes for offline analysis.
type PlanLogRepository interface {
	Insert(ctx context.Context, rec *domain.PlanRecord) error
	Recent(ctx context.Context, limit int) ([]domain.PlanRecord, error)
}

// StopSnapshotRepository stores the last known stop catalog, used as a
// degraded-mode fallback when the live catalog upstream is unreachable.
type StopSnapshotRepository interface {
	Replace(ctx context.Context, stops []domain.Stop) error
	List(ctx context.Context) ([]domain.Stop, error)
	LastRefreshedAt(ctx context.Context) (time.Time, error)
	Counts(ctx context.Context) (stops int, plans int, err error)
}
