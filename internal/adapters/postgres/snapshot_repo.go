package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// SnapshotRepo implements ports.StopSnapshotRepository with pgx. It holds the
// last full catalog the refresher saw, so planning survives a catalog outage
// with slightly stale stop data.
type SnapshotRepo struct {
	db *DB
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Replace swaps the snapshot for the given stops in one transaction.
func (r *SnapshotRepo) Replace(ctx context.Context, stops []domain.Stop) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM stop_snapshots`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, s := range stops {
		batch.Queue(`
			INSERT INTO stop_snapshots (code, display_name, short_code, lat, lon, refreshed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, s.Code, s.DisplayName, s.ShortCode, s.Location.Lat, s.Location.Lon, now)
	}
	br := tx.SendBatch(ctx, batch)
	for range stops {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	return tx.Commit(ctx)
}

// List returns the snapshotted catalog.
func (r *SnapshotRepo) List(ctx context.Context) ([]domain.Stop, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT code, display_name, short_code, lat, lon
		FROM stop_snapshots
		ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []domain.Stop
	for rows.Next() {
		var s domain.Stop
		if err := rows.Scan(&s.Code, &s.DisplayName, &s.ShortCode, &s.Location.Lat, &s.Location.Lon); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// LastRefreshedAt reports when the snapshot was last replaced.
func (r *SnapshotRepo) LastRefreshedAt(ctx context.Context) (time.Time, error) {
	var ts *time.Time
	err := r.db.Pool.QueryRow(ctx, `SELECT MAX(refreshed_at) FROM stop_snapshots`).Scan(&ts)
	if err != nil {
		return time.Time{}, err
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return *ts, nil
}

// Counts reports snapshot and plan log sizes for the status endpoint.
func (r *SnapshotRepo) Counts(ctx context.Context) (int, int, error) {
	var stops, plans int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM stop_snapshots),
		       (SELECT COUNT(*) FROM plan_log)
	`).Scan(&stops, &plans)
	if err != nil {
		return 0, 0, err
	}
	return stops, plans, nil
}
