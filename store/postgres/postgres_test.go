package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/production-engine/engine"
	"github.com/warp/production-engine/factory"
	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
	"github.com/warp/production-engine/store/postgres"
)

// Set PRODSIM_TEST_POSTGRES_DSN to a disposable database to run these.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("PRODSIM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PRODSIM_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	st, err := postgres.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, st.Reset(ctx))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPostgres_CatalogAndOrder(t *testing.T) {
	// GIVEN: the box preset saved into Postgres
	// WHEN: a scenario is loaded back and simulated
	// THEN: it completes like the in-memory preset

	st := newStore(t)
	ctx := context.Background()

	doc, _ := factory.PresetDocument("box-demo")
	sc, err := factory.NewScenarioFactory().FromDocument(doc)
	require.NoError(t, err)

	require.NoError(t, st.SaveCatalog(ctx, &sc.Catalog))
	require.NoError(t, st.SaveOrder(ctx, &sc.Order))

	loaded, err := production.LoadScenario(ctx, st, sc.Order.ID, sc.Settings)
	require.NoError(t, err)
	assert.Len(t, loaded.Catalog.Materials, len(sc.Catalog.Materials))
	assert.True(t, loaded.Order.TotalValue().Equal(sc.Order.TotalValue()))

	res, err := engine.Run(ctx, loaded, engine.Options{})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusCompleted, res.Status)

	_, err = st.LoadOrder(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrEntityNotFound)
}

func TestPostgres_Runs(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	run := production.Run{ID: "run-1", Status: production.RunQueued, RequestJSON: "{}", CreatedAt: now}
	require.NoError(t, st.SaveRun(ctx, run))

	run.Status = production.RunFailed
	run.Error = "boom"
	run.CompletedAt = &now
	require.NoError(t, st.SaveRun(ctx, run))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, production.RunFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
	require.NotNil(t, got.CompletedAt)

	list, err := st.ListRuns(ctx, production.RunFailed, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = st.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrEntityNotFound)
}
