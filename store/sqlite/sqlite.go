/*
Package sqlite persists the catalog, orders and simulation runs in SQLite.

PURPOSE:
  The engine never touches a database. This store is the repository side:
  it implements production.Loader for catalog and orders, records queued
  and finished runs, and can back a run's cash ledger (EntryStore) so the
  journal of a stored run can be replayed later.

KEY TABLES:
  materials, equipment, roles, employees, employee_roles   catalog
  processes          one row per process, chains as JSON
  periodic_expenses  overhead
  orders, order_items
  runs               submitted simulations and their rendered results
  entries            append-only cash journal, scoped by run_id

MIGRATIONS:
  Versioned SQL files under migrations/, embedded and applied with goose on
  New(). The same numbering is used by store/postgres.

DECIMALS:
  Money and quantities are stored as TEXT and parsed with shopspring
  decimal, so nothing is rounded through float64.

CONCURRENCY:
  sync.RWMutex around every statement. ":memory:" databases are limited to
  a single connection because each connection would get its own database.

USAGE:
  st, err := sqlite.New("./data/prodsim.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  sc, err := production.LoadScenario(ctx, st, "ord-1", production.DefaultSettings())

SEE ALSO:
  - catalog.go: Loader implementation
  - runs.go: run records
  - entries.go: generic.Store over the entries table
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements production.Loader and run persistence on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) a database and applies pending migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on"
	if dbPath != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Reset clears catalog, orders, runs and journals (for demos and tests).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"entries", "runs", "order_items", "orders", "periodic_expenses",
		"processes", "employee_roles", "employees", "roles", "equipment", "materials",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
