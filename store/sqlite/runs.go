package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// SIMULATION RUNS
// =============================================================================

// SaveRun inserts a run or updates its mutable fields.
func (s *Store) SaveRun(ctx context.Context, r production.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO runs (id, name, order_id, status, outcome, total_hours, request_json,
			result_json, error, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			outcome = excluded.outcome,
			total_hours = excluded.total_hours,
			result_json = excluded.result_json,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.OrderID, string(r.Status), r.Outcome, r.TotalHours, r.RequestJSON,
		r.ResultJSON, r.Error, r.CreatedAt.Format(time.RFC3339Nano),
		formatTime(r.StartedAt), formatTime(r.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun returns generic.ErrEntityNotFound for an unknown ID.
func (s *Store) GetRun(ctx context.Context, id string) (*production.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, order_id, status, outcome, total_hours, request_json, result_json,
			error, created_at, started_at, completed_at
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, generic.ErrEntityNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns runs newest first, optionally filtered by status. The
// stored request and result documents are left empty.
func (s *Store) ListRuns(ctx context.Context, status production.RunStatus, limit int) ([]production.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, name, order_id, status, outcome, total_hours, '', '',
			error, created_at, started_at, completed_at
		FROM runs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []production.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (production.Run, error) {
	var (
		r                      production.Run
		status                 string
		createdAt              string
		startedAt, completedAt sql.NullString
	)
	err := row.Scan(&r.ID, &r.Name, &r.OrderID, &status, &r.Outcome, &r.TotalHours,
		&r.RequestJSON, &r.ResultJSON, &r.Error, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return r, err
	}
	r.Status = production.RunStatus(status)
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	r.StartedAt = parseTime(startedAt)
	r.CompletedAt = parseTime(completedAt)
	return r, nil
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
