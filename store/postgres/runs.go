package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// SIMULATION RUNS
// =============================================================================

// SaveRun inserts a run or updates its mutable fields.
func (s *Store) SaveRun(ctx context.Context, r production.Run) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (id, name, order_id, status, outcome, total_hours, request_json,
			result_json, error, created_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			outcome = EXCLUDED.outcome,
			total_hours = EXCLUDED.total_hours,
			result_json = EXCLUDED.result_json,
			error = EXCLUDED.error,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at`,
		r.ID, r.Name, r.OrderID, string(r.Status), r.Outcome, r.TotalHours, r.RequestJSON,
		r.ResultJSON, r.Error, r.CreatedAt, r.StartedAt, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun returns generic.ErrEntityNotFound for an unknown ID.
func (s *Store) GetRun(ctx context.Context, id string) (*production.Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, order_id, status, outcome, total_hours, request_json, result_json,
			error, created_at, started_at, completed_at
		FROM runs WHERE id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, generic.ErrEntityNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns runs newest first, optionally filtered by status, without
// their request and result documents.
func (s *Store) ListRuns(ctx context.Context, status production.RunStatus, limit int) ([]production.Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, order_id, status, outcome, total_hours, '', '',
			error, created_at, started_at, completed_at
		FROM runs
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runs []production.Run
	err = collect(rows, func(rows pgx.Rows) error {
		r, err := scanRun(rows)
		if err != nil {
			return err
		}
		runs = append(runs, r)
		return nil
	})
	return runs, err
}

func scanRun(row pgx.Row) (production.Run, error) {
	var r production.Run
	var status string
	err := row.Scan(&r.ID, &r.Name, &r.OrderID, &status, &r.Outcome, &r.TotalHours,
		&r.RequestJSON, &r.ResultJSON, &r.Error, &r.CreatedAt, &r.StartedAt, &r.CompletedAt)
	r.Status = production.RunStatus(status)
	return r, err
}
