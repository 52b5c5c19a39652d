package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/warp/production-engine/generic"
)

// =============================================================================
// ENTRY STORE (generic.Store scoped to one run)
// =============================================================================

// EntryStore is the append-only cash journal of a single run. Pass it as
// engine.Options.Store to persist the journal while the run executes.
type EntryStore struct {
	parent *Store
	runID  string
}

// Entries returns the journal of a run.
func (s *Store) Entries(runID string) *EntryStore {
	return &EntryStore{parent: s, runID: runID}
}

var _ generic.Store = (*EntryStore)(nil)

func (es *EntryStore) Append(ctx context.Context, e generic.Entry) error {
	es.parent.mu.Lock()
	defer es.parent.mu.Unlock()
	return es.appendEntry(ctx, es.parent.db, e)
}

// AppendBatch writes every entry or none.
func (es *EntryStore) AppendBatch(ctx context.Context, entries []generic.Entry) error {
	es.parent.mu.Lock()
	defer es.parent.mu.Unlock()

	keys := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IdempotencyKey == "" {
			continue
		}
		if keys[e.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		keys[e.IdempotencyKey] = true
	}

	tx, err := es.parent.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if err := es.appendEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (es *EntryStore) appendEntry(ctx context.Context, db execer, e generic.Entry) error {
	var metadata sql.NullString
	if len(e.Metadata) > 0 {
		b, _ := json.Marshal(e.Metadata)
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO entries (run_id, id, account, day, kind, category, delta_value, delta_unit,
			reference_id, reason, idempotency_key, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		es.runID, string(e.ID), string(e.Account), int(e.Day), string(e.Kind), string(e.Category),
		e.Delta.Value.String(), string(e.Delta.Unit),
		nullString(e.ReferenceID), nullString(e.Reason), nullString(e.IdempotencyKey), metadata,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// Load returns the account's entries by day, same-day entries in insertion
// order.
func (es *EntryStore) Load(ctx context.Context, account generic.AccountID) ([]generic.Entry, error) {
	return es.query(ctx, `WHERE run_id = ? AND account = ?`, es.runID, string(account))
}

func (es *EntryStore) LoadRange(ctx context.Context, account generic.AccountID, r generic.DayRange) ([]generic.Entry, error) {
	return es.query(ctx, `WHERE run_id = ? AND account = ? AND day >= ? AND day <= ?`,
		es.runID, string(account), int(r.From), int(r.To))
}

func (es *EntryStore) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	es.parent.mu.RLock()
	defer es.parent.mu.RUnlock()

	var count int
	err := es.parent.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE run_id = ? AND idempotency_key = ?`,
		es.runID, idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func (es *EntryStore) query(ctx context.Context, where string, args ...any) ([]generic.Entry, error) {
	es.parent.mu.RLock()
	defer es.parent.mu.RUnlock()

	var entries []generic.Entry
	err := es.parent.each(ctx, `
		SELECT id, account, day, kind, category, delta_value, delta_unit,
			reference_id, reason, idempotency_key, metadata_json
		FROM entries `+where+` ORDER BY day, seq`, func(rows *sql.Rows) error {
		var (
			e                          generic.Entry
			id, account, kind, cat     string
			day                        int
			value, unit                string
			ref, reason, key, metadata sql.NullString
		)
		if err := rows.Scan(&id, &account, &day, &kind, &cat, &value, &unit, &ref, &reason, &key, &metadata); err != nil {
			return err
		}
		e.ID = generic.EntryID(id)
		e.Account = generic.AccountID(account)
		e.Day = generic.Day(day)
		e.Kind = generic.EntryKind(kind)
		e.Category = generic.Category(cat)
		e.Delta = generic.Amount{Value: parseDecimal(value), Unit: generic.Unit(unit)}
		e.ReferenceID, e.Reason, e.IdempotencyKey = ref.String, reason.String, key.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return fmt.Errorf("entry %s metadata: %w", id, err)
			}
		}
		entries = append(entries, e)
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	return entries, nil
}
