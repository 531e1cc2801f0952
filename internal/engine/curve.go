package engine

import "math"

const (
	// MaxTicks is the length of a full round at 1 tick per second.
	MaxTicks = 30

	// HouseEdge is the designed long-run operator share. The payout curve is
	// built so the edge is the same at every cash-out tick, which is what
	// makes every cash-out strategy equally (un)profitable.
	HouseEdge = 0.08
)

// RiskPerSecond returns the hazard probability applied at tick t.
// The ramp runs 1% -> 10%, capped, and is monotonic non-decreasing.
// Non-positive ticks return 0 so callers never have to guard.
func RiskPerSecond(t int) float64 {
	switch {
	case t <= 0:
		return 0
	case t <= 5:
		return 0.01 + float64(t-1)*0.005
	case t <= 10:
		return 0.03 + float64(t-5)*0.004
	case t <= 20:
		return 0.05 + float64(t-10)*0.002
	default:
		r := 0.07 + float64(t-20)*0.003
		if r > 0.10 {
			r = 0.10
		}
		return r
	}
}

// SurvivalProbability is the chance of reaching tick t alive,
// the product of (1 - RiskPerSecond(i)) for i = 1..t.
func SurvivalProbability(t int) float64 {
	if t > MaxTicks {
		t = MaxTicks
	}
	p := 1.0
	for i := 1; i <= t; i++ {
		p *= 1 - RiskPerSecond(i)
	}
	return p
}

// multiplierExact is the unrounded curve value. Deriving the multiplier from
// the survival product keeps ExpectedValue(t) pinned at 1-HouseEdge for every
// tick, so cashing out early or late changes nothing about the edge.
func multiplierExact(t int) float64 {
	if t <= 0 {
		return 1.0
	}
	return (1 - HouseEdge) / SurvivalProbability(t)
}

// PayoutMultiplier returns the multiplier paid for a cash-out at tick t,
// rounded to cents precision. Ticks beyond MaxTicks clamp to the final value.
func PayoutMultiplier(t int) float64 {
	return round2(multiplierExact(t))
}

// ExpectedValue is survival * multiplier on the unrounded curve.
func ExpectedValue(t int) float64 {
	if t <= 0 {
		return 1.0
	}
	return SurvivalProbability(t) * multiplierExact(t)
}

// HouseEdgeAt reports the operator share realized at tick t.
func HouseEdgeAt(t int) float64 {
	return 1 - ExpectedValue(t)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
