package postgres

import (
	"context"
	"fmt"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

// PlanLogRepo implements ports.PlanLogRepository with pgx.
type PlanLogRepo struct {
	db *DB
}

// NewPlanLogRepo creates a new PlanLogRepo.
func NewPlanLogRepo(db *DB) *PlanLogRepo {
	return &PlanLogRepo{db: db}
}

// Insert records one comparison outcome.
func (r *PlanLogRepo) Insert(ctx context.Context, rec *domain.PlanRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO plan_log (
			origin_lat, origin_lon, destination_lat, destination_lon,
			candidate_count, best_total_seconds, best_route_code, best_catchable,
			baseline_seconds, recommend_internal, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11)
	`, rec.Origin.Lat, rec.Origin.Lon, rec.Destination.Lat, rec.Destination.Lon,
		rec.CandidateCount, rec.BestTotalSeconds, rec.BestRouteCode, rec.BestCatchable,
		rec.BaselineSeconds, rec.RecommendInternal, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert plan record: %w", err)
	}
	return nil
}

// Recent returns the newest plan records, newest first.
func (r *PlanLogRepo) Recent(ctx context.Context, limit int) ([]domain.PlanRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text,
		       origin_lat, origin_lon, destination_lat, destination_lon,
		       candidate_count, best_total_seconds, COALESCE(best_route_code, ''), best_catchable,
		       baseline_seconds, recommend_internal, created_at
		FROM plan_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.PlanRecord
	for rows.Next() {
		var rec domain.PlanRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Origin.Lat, &rec.Origin.Lon, &rec.Destination.Lat, &rec.Destination.Lon,
			&rec.CandidateCount, &rec.BestTotalSeconds, &rec.BestRouteCode, &rec.BestCatchable,
			&rec.BaselineSeconds, &rec.RecommendInternal, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
