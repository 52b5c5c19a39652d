package variance_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/production-engine/variance"
)

func TestApply_NoVarianceReturnsBase(t *testing.T) {
	for _, m := range []variance.Mode{variance.ModeNone, variance.ModeMin, variance.ModeMax, variance.ModeRandom} {
		assert.Equal(t, 42.0, variance.Apply(42, 0, m, nil), "mode %s", m)
	}
	assert.Equal(t, 42.0, variance.Apply(42, 10, variance.ModeNone, nil))
}

func TestApply_DeterministicBounds(t *testing.T) {
	assert.InDelta(t, 90.0, variance.Apply(100, 10, variance.ModeMin, nil), 1e-9)
	assert.InDelta(t, 110.0, variance.Apply(100, 10, variance.ModeMax, nil), 1e-9)
	assert.LessOrEqual(t, variance.Apply(100, 35, variance.ModeMin, nil), 100.0)
	assert.GreaterOrEqual(t, variance.Apply(100, 35, variance.ModeMax, nil), 100.0)
}

func TestApply_RandomFullRangeStaysInBounds(t *testing.T) {
	// GIVEN: v = 20%
	// WHEN: Drawing 10,000 times
	// THEN: Every value lies in [base*(1-v), base*(1+v)]

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10000; i++ {
		got := variance.Apply(50, 20, variance.ModeRandom, rng)
		require.GreaterOrEqual(t, got, 40.0)
		require.LessOrEqual(t, got, 60.0)
	}
}

func TestApply_RandomPositiveNeverBelowBase(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 10000; i++ {
		got := variance.Apply(10, 15, variance.ModeRandomPositive, rng)
		require.GreaterOrEqual(t, got, 10.0)
		require.LessOrEqual(t, got, 11.5)
	}
}

func TestPolicy_PessimisticIsAsymmetric(t *testing.T) {
	// GIVEN: A pessimistic policy at 10%
	// THEN: Productivity takes the minimum, cost takes the maximum

	p := variance.NewPolicy(variance.ModePessimistic, 10, 1)
	assert.InDelta(t, 9.0, p.Productivity(10, 0), 1e-9)
	assert.InDelta(t, 1.1, p.CostMultiplier(), 1e-9)

	o := variance.NewPolicy(variance.ModeOptimistic, 10, 1)
	assert.InDelta(t, 11.0, o.Productivity(10, 0), 1e-9)
	assert.InDelta(t, 0.9, o.CostMultiplier(), 1e-9)
}

func TestPolicy_RandomPositiveDegradesProductivityAndRaisesCost(t *testing.T) {
	p := variance.NewPolicy(variance.ModeRandomPositive, 20, 3)
	for i := 0; i < 1000; i++ {
		prod := p.Productivity(10, 0)
		require.LessOrEqual(t, prod, 10.0)
		require.GreaterOrEqual(t, prod, 8.0)

		cost := p.CostMultiplier()
		require.GreaterOrEqual(t, cost, 1.0)
		require.LessOrEqual(t, cost, 1.2)
	}
}

func TestPolicy_OperationPercentOverridesDefault(t *testing.T) {
	p := variance.NewPolicy(variance.ModeMin, 10, 1)
	assert.InDelta(t, 50.0, p.Productivity(100, 50), 1e-9)
	assert.InDelta(t, 90.0, p.Productivity(100, 0), 1e-9)
}

func TestPolicy_SameSeedReproduces(t *testing.T) {
	a := variance.NewPolicy(variance.ModeRandom, 25, 99)
	b := variance.NewPolicy(variance.ModeRandom, 25, 99)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Productivity(10, 0), b.Productivity(10, 0))
	}
}

func TestParseMode(t *testing.T) {
	m, err := variance.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, variance.ModeNone, m)

	m, err = variance.ParseMode("Pessimistic")
	require.NoError(t, err)
	assert.Equal(t, variance.ModePessimistic, m)

	_, err = variance.ParseMode("chaotic")
	assert.Error(t, err)
}
