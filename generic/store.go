/*
store.go - Persistence interface for ledger entries

PURPOSE:
  Defines the interface between the ledger and its backing storage.
  A simulation run keeps its cash book in memory; the same contract lets
  a durable store replay a finished run.

APPEND-ONLY CONTRACT:
  - Append(): Single entry write
  - AppendBatch(): Atomic multi-entry write
  - NO Update() or Delete() methods exist

ATOMIC BATCHES:
  AppendBatch() ensures all-or-nothing semantics. When a material batch
  is prepaid, the net and VAT entries are written together or not at all.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory, the default for a simulation run
  - store/sqlite/entries.go: SQLite journal scoped to a stored run

SEE ALSO:
  - ledger.go: Higher-level interface using Store
*/
package generic

import "context"

// =============================================================================
// STORE - Interface for entry persistence (append-only)
// =============================================================================

// Store handles persistence of entries.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists an entry. Returns error if idempotency key exists.
	Append(ctx context.Context, e Entry) error

	// AppendBatch persists multiple entries atomically.
	// Either all succeed or none do.
	AppendBatch(ctx context.Context, entries []Entry) error

	// Load returns all entries for an account, ordered by Day.
	// Entries on the same day keep insertion order.
	Load(ctx context.Context, account AccountID) ([]Entry, error)

	// LoadRange returns entries in [r.From, r.To].
	LoadRange(ctx context.Context, account AccountID, r DayRange) ([]Entry, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}
