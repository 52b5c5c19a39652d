/*
Package generic provides the domain-agnostic accounting primitives of the
production engine.

PURPOSE:
  This package contains types and algorithms that know nothing about
  materials, machines or orders. Money, stock quantities and working time
  are all Amounts; every cash movement is an immutable Entry in an
  append-only Ledger; days and hours come from a simulated Clock.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal quantity with a unit (currency, pieces, hours)
  - Entry: An immutable ledger record of a cash or non-cash movement
  - EntryKind: cash_in, cash_out or non_cash
  - Category: What the money was for (materials, labor, periodic, ...)

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified, only appended
  2. Precision: Uses decimal.Decimal to avoid floating-point drift in money
  3. Type Safety: Strong typing for IDs prevents mixing accounts and entries
  4. Auditability: Every entry has reason, reference, and idempotency key

USAGE:
  entry := generic.Entry{
      Account:  generic.AccountCash,
      Day:      3,
      Kind:     generic.KindCashOut,
      Category: generic.CategoryLabor,
      Delta:    generic.Money(decimal.NewFromInt(-1200)),
  }

SEE ALSO:
  - ledger.go: Entry persistence interface
  - balance.go: Day-by-day cash replay
  - projection.go: Overdraft detection
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Decimal quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitCurrency Unit = "currency"
	UnitPieces   Unit = "pcs"
	UnitHours    Unit = "hours"
	UnitMinutes  Unit = "minutes"
)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

// Money wraps a decimal as a currency amount.
func Money(v decimal.Decimal) Amount { return Amount{Value: v, Unit: UnitCurrency} }

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) Abs() Amount                  { return Amount{Value: a.Value.Abs(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// RoundCents rounds a monetary amount for display. Ledger math stays exact.
func (a Amount) RoundCents() Amount { return Amount{Value: a.Value.Round(2), Unit: a.Unit} }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type EntryID string

// AccountCash is the single cash account a simulation run books into.
const AccountCash AccountID = "cash"

// =============================================================================
// ENTRY - Atomic cash or non-cash movement
// =============================================================================

type EntryKind string

const (
	KindCashIn  EntryKind = "cash_in"  // Money entering the account (client payments, opening balance)
	KindCashOut EntryKind = "cash_out" // Money leaving the account
	KindNonCash EntryKind = "non_cash" // Recorded cost with no cash effect (depreciation)
)

// AffectsCash reports whether entries of this kind move the cash balance.
func (k EntryKind) AffectsCash() bool { return k == KindCashIn || k == KindCashOut }

type Category string

const (
	CategoryOpening      Category = "opening"
	CategoryClient       Category = "client"
	CategoryMaterials    Category = "materials"
	CategoryMaterialsVAT Category = "materials_vat"
	CategoryLabor        Category = "labor"
	CategoryPeriodic     Category = "periodic"
	CategoryPeriodicVAT  Category = "periodic_vat"
	CategoryDepreciation Category = "depreciation"
)

// OutflowCategories lists cash-out categories in report order.
var OutflowCategories = []Category{
	CategoryMaterials,
	CategoryMaterialsVAT,
	CategoryLabor,
	CategoryPeriodic,
	CategoryPeriodicVAT,
}

// Entry is a single immutable record in a Ledger.
// Delta is signed: positive for cash_in, negative for cash_out and non_cash.
type Entry struct {
	ID             EntryID
	Account        AccountID
	Day            Day
	Kind           EntryKind
	Category       Category
	Delta          Amount
	ReferenceID    string
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string
}
