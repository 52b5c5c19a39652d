package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/production-engine/engine"
	"github.com/warp/production-engine/factory"
	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
	"github.com/warp/production-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func boxScenario(t *testing.T) *production.Scenario {
	t.Helper()
	doc, ok := factory.PresetDocument("box-demo")
	require.True(t, ok)
	sc, err := factory.NewScenarioFactory().FromDocument(doc)
	require.NoError(t, err)
	return sc
}

// =============================================================================
// CATALOG AND ORDERS
// =============================================================================

func TestCatalog_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	sc := boxScenario(t)

	require.NoError(t, st.SaveCatalog(ctx, &sc.Catalog))
	got, err := st.LoadCatalog(ctx)
	require.NoError(t, err)

	assert.Len(t, got.Materials, len(sc.Catalog.Materials))
	assert.Len(t, got.Equipment, len(sc.Catalog.Equipment))
	assert.Len(t, got.Employees, len(sc.Catalog.Employees))
	assert.Len(t, got.Expenses, len(sc.Catalog.Expenses))

	for _, want := range sc.Catalog.Materials {
		m, ok := got.Material(want.ID)
		require.True(t, ok, want.ID)
		assert.True(t, m.UnitCost.Equal(want.UnitCost), want.ID)
		assert.True(t, m.InitialStock.Equal(want.InitialStock), want.ID)
		assert.Equal(t, want.ShippingLeadDays, m.ShippingLeadDays)
	}

	for _, e := range got.Employees {
		if e.ID == "bob" {
			assert.ElementsMatch(t, []string{"cutter-op", "gluer-op"}, e.RoleIDs)
		}
	}

	p, ok := got.Process("carton")
	require.True(t, ok)
	want, _ := sc.Catalog.Process("carton")
	require.Len(t, p.Chains, len(want.Chains))
	for i := range want.Chains {
		assert.Equal(t, want.Chains[i].ID, p.Chains[i].ID)
		assert.Equal(t, want.Chains[i].Type, p.Chains[i].Type)
		require.Len(t, p.Chains[i].Operations, len(want.Chains[i].Operations))
	}
}

func TestSaveCatalog_ReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	sc := boxScenario(t)

	require.NoError(t, st.SaveCatalog(ctx, &sc.Catalog))

	smaller := sc.Catalog
	smaller.Expenses = nil
	require.NoError(t, st.SaveCatalog(ctx, &smaller))

	got, err := st.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Expenses)
	assert.Len(t, got.Materials, len(sc.Catalog.Materials))
}

func TestOrder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	sc := boxScenario(t)

	require.NoError(t, st.SaveOrder(ctx, &sc.Order))
	got, err := st.LoadOrder(ctx, sc.Order.ID)
	require.NoError(t, err)

	require.Len(t, got.Items, 1)
	assert.True(t, got.TotalValue().Equal(sc.Order.TotalValue()))
	require.Len(t, got.PaymentSchedule, 2)
	assert.True(t, got.PaymentSchedule[0].Percent.Valid)
	assert.True(t, got.PaymentSchedule[0].Percent.Decimal.Equal(decimal.NewFromInt(30)))

	board := got.BatchParams["board"]
	assert.True(t, board.PrepayPercent.Valid)
	assert.True(t, board.PrepayPercent.Decimal.Equal(decimal.NewFromInt(50)))

	orders, err := st.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 1, orders[0].Items)
}

func TestLoadOrder_NotFound(t *testing.T) {
	_, err := newStore(t).LoadOrder(context.Background(), "nope")
	assert.ErrorIs(t, err, generic.ErrEntityNotFound)
}

func TestLoadScenario_FromStore(t *testing.T) {
	// GIVEN: catalog and order saved in the store
	// WHEN: a scenario is assembled from it and simulated
	// THEN: the run completes just like the in-memory preset

	ctx := context.Background()
	st := newStore(t)
	sc := boxScenario(t)
	require.NoError(t, st.SaveCatalog(ctx, &sc.Catalog))
	require.NoError(t, st.SaveOrder(ctx, &sc.Order))

	loaded, err := production.LoadScenario(ctx, st, sc.Order.ID, sc.Settings)
	require.NoError(t, err)

	res, err := engine.Run(ctx, loaded, engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCompleted, res.Status)
}

// =============================================================================
// RUNS
// =============================================================================

func TestRuns_SaveUpdateGet(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	run := production.Run{
		ID:          "run-1",
		Name:        "box-demo",
		OrderID:     "ord-carton-1000",
		Status:      production.RunQueued,
		RequestJSON: `{"preset":"box-demo"}`,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, st.SaveRun(ctx, run))

	started := time.Now().UTC()
	run.Status = production.RunCompleted
	run.Outcome = "completed"
	run.TotalHours = 42
	run.ResultJSON = `{"status":"completed"}`
	run.StartedAt = &started
	run.CompletedAt = &started
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, production.RunCompleted, got.Status)
	assert.Equal(t, 42, got.TotalHours)
	assert.Equal(t, `{"preset":"box-demo"}`, got.RequestJSON)
	assert.Equal(t, `{"status":"completed"}`, got.ResultJSON)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.IsFinished())

	_, err = st.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrEntityNotFound)
}

func TestListRuns_NewestFirstAndFiltered(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	for i, status := range []production.RunStatus{production.RunCompleted, production.RunFailed, production.RunQueued} {
		require.NoError(t, st.SaveRun(ctx, production.Run{
			ID:          string(rune('a' + i)),
			Status:      status,
			RequestJSON: "{}",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := st.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Empty(t, all[0].RequestJSON)

	failed, err := st.ListRuns(ctx, production.RunFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].ID)

	limited, err := st.ListRuns(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// =============================================================================
// ENTRY STORE
// =============================================================================

func cashEntry(day generic.Day, amount int64, key string) generic.Entry {
	return generic.Entry{
		ID:             generic.EntryID(key),
		Account:        generic.AccountCash,
		Day:            day,
		Kind:           generic.KindCashOut,
		Category:       generic.CategoryLabor,
		Delta:          generic.Money(decimal.NewFromInt(amount)),
		IdempotencyKey: key,
		Metadata:       map[string]string{"employee": "ann"},
	}
}

func TestEntryStore_AppendAndLoadInOrder(t *testing.T) {
	ctx := context.Background()
	es := newStore(t).Entries("run-1")

	require.NoError(t, es.Append(ctx, cashEntry(2, -10, "k1")))
	require.NoError(t, es.Append(ctx, cashEntry(1, -20, "k2")))
	require.NoError(t, es.Append(ctx, cashEntry(2, -30, "k3")))

	got, err := es.Load(ctx, generic.AccountCash)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"k2", "k1", "k3"}, []string{got[0].IdempotencyKey, got[1].IdempotencyKey, got[2].IdempotencyKey})
	assert.True(t, got[0].Delta.Value.Equal(decimal.NewFromInt(-20)))
	assert.Equal(t, "ann", got[0].Metadata["employee"])

	ranged, err := es.LoadRange(ctx, generic.AccountCash, generic.DayRange{From: 2, To: 2})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}

func TestEntryStore_Idempotency(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	es := st.Entries("run-1")

	require.NoError(t, es.Append(ctx, cashEntry(1, -10, "k1")))
	assert.ErrorIs(t, es.Append(ctx, cashEntry(1, -10, "k1")), generic.ErrDuplicateIdempotencyKey)

	exists, err := es.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)

	// Keys are scoped per run
	other := st.Entries("run-2")
	require.NoError(t, other.Append(ctx, cashEntry(1, -10, "k1")))
}

func TestEntryStore_BatchIsAtomic(t *testing.T) {
	// GIVEN: an existing key
	// WHEN: a batch repeats it
	// THEN: nothing from the batch is written

	ctx := context.Background()
	es := newStore(t).Entries("run-1")
	require.NoError(t, es.Append(ctx, cashEntry(1, -10, "k1")))

	err := es.AppendBatch(ctx, []generic.Entry{cashEntry(1, -5, "k2"), cashEntry(1, -5, "k1")})
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	exists, err := es.Exists(ctx, "k2")
	require.NoError(t, err)
	assert.False(t, exists)

	err = es.AppendBatch(ctx, []generic.Entry{cashEntry(1, -5, "k3"), cashEntry(1, -5, "k3")})
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)
}

func TestEntryStore_BacksEngineRun(t *testing.T) {
	// GIVEN: a run whose ledger is backed by the entries table
	// WHEN: the simulation finishes
	// THEN: the stored journal replays to the same closing balance

	ctx := context.Background()
	st := newStore(t)
	sc := boxScenario(t)

	res, err := engine.Run(ctx, sc, engine.Options{Store: st.Entries("run-1")})
	require.NoError(t, err)
	require.Equal(t, engine.StatusCompleted, res.Status)

	stored, err := st.Entries("run-1").Load(ctx, generic.AccountCash)
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	assert.Equal(t, generic.CategoryOpening, stored[0].Category)

	days := generic.ReplayDays(stored, generic.DayRange{From: 1, To: res.FinalDay})
	want, err := res.Ledger.Cash(ctx, res.FinalDay)
	require.NoError(t, err)
	assert.True(t, days[len(days)-1].Closing.Value.Equal(want), "closing %s, ledger %s", days[len(days)-1].Closing.Value, want)
}
