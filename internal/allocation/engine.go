// Package allocation implements the prize decision function.
//
// Decide is pure apart from the injected random source: given the counters of
// prizes already handed out and how far into the operating window we are, it
// returns the outcome for exactly one claim. All pacing behavior lives in the
// per-tier curve parameters, not in code.
package allocation

import (
	"math/rand"

	"giveaway/internal/models"
)

// TierParams tunes the per-claim win probability curve for one prize tier.
type TierParams struct {
	// BaseRate is the probability when the tier is exactly on schedule.
	BaseRate float64
	// DeficitWeight scales how strongly being behind (or ahead of) the
	// pro-rata schedule moves the probability.
	DeficitWeight float64
	// UrgencyFactor amplifies a positive deficit as the window runs out, so
	// stock left late in the day still moves.
	UrgencyFactor float64
	// MinRate and MaxRate clamp the final probability. MinRate above zero
	// keeps a tier winnable whenever capacity remains; MaxRate below one
	// keeps a single hot streak from draining a tier instantly.
	MinRate float64
	MaxRate float64
}

// Tier is one prize pool: its capacity, its prize names, and its curve.
// A negative capacity means unlimited; zero means the tier is empty.
type Tier struct {
	Capacity int
	Prizes   []string
	Params   TierParams
}

// Unlimited reports whether the tier has no stock ceiling.
func (t Tier) Unlimited() bool { return t.Capacity < 0 }

// Remaining returns how many units the tier still has given the counter.
// For unlimited tiers it is always positive.
func (t Tier) Remaining(given int) int {
	if t.Unlimited() {
		return 1
	}
	if r := t.Capacity - given; r > 0 {
		return r
	}
	return 0
}

// Counters is the snapshot of prizes already given that a decision is based
// on. The caller re-validates capacity inside the commit transaction; the
// snapshot only shapes probabilities.
type Counters struct {
	BigGiven   int
	SmallGiven int
}

// Decision is the result of one allocation roll.
type Decision struct {
	Won   bool
	Tier  models.PrizeTier
	Prize string
}

// Engine holds the configured tiers. It is stateless between calls.
type Engine struct {
	Big   Tier
	Small Tier
}

// NewEngine builds an engine from two tier configurations.
func NewEngine(big, small Tier) *Engine {
	return &Engine{Big: big, Small: small}
}

// Decide runs one claim through both tiers. The big tier is rolled first;
// only a miss there falls through to the small tier. rng is the sole source
// of nondeterminism, so a seeded source makes the whole call deterministic.
func (e *Engine) Decide(c Counters, windowProgress float64, rng *rand.Rand) Decision {
	if e.Big.Remaining(c.BigGiven) > 0 && len(e.Big.Prizes) > 0 {
		p := Probability(e.Big, c.BigGiven, windowProgress)
		if rng.Float64() < p {
			return Decision{
				Won:   true,
				Tier:  models.TierBig,
				Prize: e.Big.Prizes[rng.Intn(len(e.Big.Prizes))],
			}
		}
	}

	if e.Small.Remaining(c.SmallGiven) > 0 && len(e.Small.Prizes) > 0 {
		p := Probability(e.Small, c.SmallGiven, windowProgress)
		if p >= 1.0 || rng.Float64() < p {
			return Decision{
				Won:   true,
				Tier:  models.TierSmall,
				Prize: e.Small.Prizes[rng.Intn(len(e.Small.Prizes))],
			}
		}
	}

	return Decision{}
}

// SmallFallback picks a small prize without a probability roll. The workflow
// uses it when a big-prize commit loses a capacity race and the claim must be
// settled from the unlimited tier.
func (e *Engine) SmallFallback(rng *rand.Rand) (Decision, bool) {
	if !e.Small.Unlimited() || len(e.Small.Prizes) == 0 {
		return Decision{}, false
	}
	return Decision{
		Won:   true,
		Tier:  models.TierSmall,
		Prize: e.Small.Prizes[rng.Intn(len(e.Small.Prizes))],
	}, true
}

// Probability computes the per-claim win probability for a tier.
//
// For a finite tier the curve is anchored to the pro-rata schedule: with
// progress w and capacity cap, the tier "should" have given w*cap units by
// now. The normalized deficit (expected - given)/cap pushes the rate up when
// the tier is behind and down when it is ahead, and a positive deficit is
// further amplified by UrgencyFactor*progress so leftover stock clears late
// in the window. The result is clamped into [MinRate, MaxRate].
//
// An unlimited tier has no schedule; it runs at the clamped base rate
// (typically 1.0 for an everyone-wins tier).
func Probability(t Tier, given int, windowProgress float64) float64 {
	if windowProgress < 0 {
		windowProgress = 0
	} else if windowProgress > 1 {
		windowProgress = 1
	}

	rate := t.Params.BaseRate
	if !t.Unlimited() {
		if given >= t.Capacity {
			return 0
		}
		expected := windowProgress * float64(t.Capacity)
		deficit := (expected - float64(given)) / float64(t.Capacity)
		rate += t.Params.DeficitWeight * deficit
		if deficit > 0 {
			rate *= 1 + t.Params.UrgencyFactor*windowProgress
		}
	}

	if rate < t.Params.MinRate {
		rate = t.Params.MinRate
	}
	if rate > t.Params.MaxRate {
		rate = t.Params.MaxRate
	}
	return rate
}
