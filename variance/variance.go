/*
Package variance perturbs nominal rates and costs to model uncertainty.

PURPOSE:
  A production plan is authored with nominal numbers: a press makes 120
  sheets per hour, a worker costs 18 per hour. Real runs deviate. A Mode
  names how a nominal value is turned into the effective value used by
  the scheduler and the ledger.

MODES (v = variance percent):
  none            base
  min             base * (1 - v/100)
  max             base * (1 + v/100)
  random_positive base * (1 + U[0, v]/100)
  random          base * (1 + U[-v, v]/100)

COMPOSITE MODES:
  pessimistic  productivity uses min, cost uses max
  optimistic   productivity uses max, cost uses min

  For random_positive the productivity side is mirrored downward
  (base * (1 - U[0, v]/100)), so "random positive" always means "worse
  than planned" on both sides.

DETERMINISM:
  Randomness comes from a seeded *rand.Rand owned by the Policy, so a run
  with the same seed reproduces exactly.

SEE ALSO:
  - engine/engine.go: productivity and cost multipliers per cycle
*/
package variance

import (
	"fmt"
	"math/rand"
	"strings"
)

// =============================================================================
// MODE
// =============================================================================

type Mode string

const (
	ModeNone           Mode = "none"
	ModeMin            Mode = "min"
	ModeMax            Mode = "max"
	ModeRandomPositive Mode = "random_positive"
	ModeRandom         Mode = "random"
	ModePessimistic    Mode = "pessimistic"
	ModeOptimistic     Mode = "optimistic"
)

// ParseMode converts user input to a Mode. Empty input means ModeNone.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return ModeNone, nil
	case ModeNone, ModeMin, ModeMax, ModeRandomPositive, ModeRandom, ModePessimistic, ModeOptimistic:
		return m, nil
	}
	return "", fmt.Errorf("unknown variance mode %q", s)
}

// IsRandom reports whether the mode draws from the random source.
func (m Mode) IsRandom() bool { return m == ModeRandom || m == ModeRandomPositive }

// =============================================================================
// APPLY
// =============================================================================

// Apply returns the effective value of base under mode with a variance of
// percent. A zero percent or ModeNone returns base unchanged. Composite modes
// are not meaningful here and behave like ModeNone; use Policy.Productivity
// and Policy.Cost for them. rng may be nil for deterministic modes.
func Apply(base, percent float64, mode Mode, rng *rand.Rand) float64 {
	if percent <= 0 {
		return base
	}
	v := percent / 100
	switch mode {
	case ModeMin:
		return base * (1 - v)
	case ModeMax:
		return base * (1 + v)
	case ModeRandomPositive:
		return base * (1 + draw(rng)*v)
	case ModeRandom:
		return base * (1 + (2*draw(rng)-1)*v)
	}
	return base
}

func draw(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}

// =============================================================================
// POLICY
// =============================================================================

// Policy binds a mode, a default magnitude and a random source.
type Policy struct {
	Mode    Mode
	Percent float64

	rng *rand.Rand
}

// NewPolicy creates a policy whose random draws are reproducible from seed.
func NewPolicy(mode Mode, percent float64, seed int64) *Policy {
	if mode == "" {
		mode = ModeNone
	}
	return &Policy{Mode: mode, Percent: percent, rng: rand.New(rand.NewSource(seed))}
}

// Productivity perturbs a rate. percent overrides the policy magnitude when
// positive (operations carry their own variance).
func (p *Policy) Productivity(base, percent float64) float64 {
	if percent <= 0 {
		percent = p.Percent
	}
	switch p.Mode {
	case ModePessimistic:
		return Apply(base, percent, ModeMin, nil)
	case ModeOptimistic:
		return Apply(base, percent, ModeMax, nil)
	case ModeRandomPositive:
		// mirror: productivity only ever degrades
		return 2*base - Apply(base, percent, ModeRandomPositive, p.rng)
	}
	return Apply(base, percent, p.Mode, p.rng)
}

// Cost perturbs a cost-side value (wages, depreciation, material usage).
func (p *Policy) Cost(base float64) float64 {
	switch p.Mode {
	case ModePessimistic:
		return Apply(base, p.Percent, ModeMax, nil)
	case ModeOptimistic:
		return Apply(base, p.Percent, ModeMin, nil)
	}
	return Apply(base, p.Percent, p.Mode, p.rng)
}

// CostMultiplier is Cost applied to 1.
func (p *Policy) CostMultiplier() float64 { return p.Cost(1) }
