/*
ledger.go - Append-only cash log

PURPOSE:
  The Ledger is the immutable source of truth for every money movement of
  a simulation run. Material prepayments, payroll, overhead, client
  payments and depreciation are all recorded here. Cash balance is always
  computed by replaying entries - there's no separate "balance" field that
  can get out of sync.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, entries cannot be modified
  3. AUDITABLE: Every balance change is traceable to a day and category
  4. IDEMPOTENT: Same idempotency key = same entry (no duplicates)

IDEMPOTENCY IN PRACTICE:
  Settlements use deterministic keys ("batch:<id>:postpay",
  "periodic:settlement"). Booking the same key twice is rejected with
  ErrDuplicateIdempotencyKey, which callers treat as "already booked".
  This is how exactly-once batch payments and the guarded end-of-run
  settlement are enforced.

NON-CASH ENTRIES:
  Depreciation is recorded as KindNonCash. It appears in day reports but
  never moves the balance computed by BalanceAt.

SEE ALSO:
  - store.go: Low-level persistence interface
  - ledger/ledger.go: Production-domain wrapper that books entries
*/
package generic

import "context"

// =============================================================================
// LEDGER - Append-only entry log
// =============================================================================

// Ledger is the source of truth for all cash movements.
//
// INVARIANTS:
//   - Append-only: No Update, No Delete. EVER.
//   - Immutable: Once written, entries cannot be modified.
//   - Auditable: Every balance change is traceable.
type Ledger interface {
	// Append adds an entry. Fails if idempotency key exists.
	// This is the ONLY write operation.
	Append(ctx context.Context, e Entry) error

	// AppendBatch adds multiple entries atomically.
	// Used when a settlement books net and VAT together.
	AppendBatch(ctx context.Context, entries []Entry) error

	// Entries returns all entries for an account, ordered by day.
	Entries(ctx context.Context, account AccountID) ([]Entry, error)

	// EntriesInRange returns entries with From <= Day <= To.
	EntriesInRange(ctx context.Context, account AccountID, r DayRange) ([]Entry, error)

	// BalanceAt computes the cash balance at the end of a day.
	// Non-cash entries are ignored.
	BalanceAt(ctx context.Context, account AccountID, day Day) (Amount, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, e Entry) error {
	if e.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, e.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.Append(ctx, e)
}

func (l *DefaultLedger) AppendBatch(ctx context.Context, entries []Entry) error {
	// Check all idempotency keys first
	for _, e := range entries {
		if e.IdempotencyKey != "" {
			exists, err := l.Store.Exists(ctx, e.IdempotencyKey)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateIdempotencyKey
			}
		}
	}
	return l.Store.AppendBatch(ctx, entries)
}

func (l *DefaultLedger) Entries(ctx context.Context, account AccountID) ([]Entry, error) {
	return l.Store.Load(ctx, account)
}

func (l *DefaultLedger) EntriesInRange(ctx context.Context, account AccountID, r DayRange) ([]Entry, error) {
	return l.Store.LoadRange(ctx, account, r)
}

func (l *DefaultLedger) BalanceAt(ctx context.Context, account AccountID, day Day) (Amount, error) {
	entries, err := l.Store.Load(ctx, account)
	if err != nil {
		return Amount{}, err
	}

	balance := NewAmount(0, UnitCurrency)
	for _, e := range entries {
		if e.Day > day {
			break
		}
		if e.Kind.AffectsCash() {
			balance = balance.Add(e.Delta)
		}
	}
	return balance, nil
}
