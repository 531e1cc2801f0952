package engine_test

import (
	"math"
	"testing"

	"rush-miniapp-backend/internal/engine"
)

func TestRiskCurveShape(t *testing.T) {
	if engine.RiskPerSecond(0) != 0 {
		t.Errorf("risk at tick 0 should be 0, got %f", engine.RiskPerSecond(0))
	}
	if engine.RiskPerSecond(-3) != 0 {
		t.Errorf("risk at negative tick should be 0, got %f", engine.RiskPerSecond(-3))
	}

	prev := 0.0
	for tick := 1; tick <= engine.MaxTicks; tick++ {
		r := engine.RiskPerSecond(tick)
		if r <= 0 || r > 1 {
			t.Errorf("tick %d: risk %f out of (0,1]", tick, r)
		}
		if r < prev {
			t.Errorf("tick %d: risk %f decreased from %f", tick, r, prev)
		}
		prev = r
	}

	if got := engine.RiskPerSecond(1); math.Abs(got-0.01) > 1e-12 {
		t.Errorf("risk at tick 1 should be 1%%, got %f", got)
	}
	if got := engine.RiskPerSecond(30); math.Abs(got-0.10) > 1e-12 {
		t.Errorf("risk at tick 30 should cap at 10%%, got %f", got)
	}
	if got := engine.RiskPerSecond(500); got != 0.10 {
		t.Errorf("risk beyond the cap should stay at 10%%, got %f", got)
	}
}

func TestSurvivalStrictlyDecreasing(t *testing.T) {
	prev := 1.0
	for tick := 1; tick <= engine.MaxTicks; tick++ {
		s := engine.SurvivalProbability(tick)
		if s >= prev {
			t.Errorf("tick %d: survival %f did not decrease from %f", tick, s, prev)
		}
		if s <= 0 || s > 1 {
			t.Errorf("tick %d: survival %f out of (0,1]", tick, s)
		}
		prev = s
	}

	if got := engine.SurvivalProbability(1); math.Abs(got-0.99) > 1e-12 {
		t.Errorf("survival at tick 1 should be 0.99, got %f", got)
	}
}

func TestHouseEdgeInvariantAcrossTicks(t *testing.T) {
	for tick := 1; tick <= engine.MaxTicks; tick++ {
		edge := engine.HouseEdgeAt(tick)
		if math.Abs(edge-engine.HouseEdge) > 1e-9 {
			t.Errorf("tick %d: house edge %f deviates from %f", tick, edge, engine.HouseEdge)
		}

		// With the payout rounded to cents the realized edge may drift by up
		// to half a cent of multiplier.
		realized := 1 - engine.SurvivalProbability(tick)*engine.PayoutMultiplier(tick)
		if math.Abs(realized-engine.HouseEdge) > 0.006 {
			t.Errorf("tick %d: realized edge %f too far from %f", tick, realized, engine.HouseEdge)
		}
	}
}

func TestPayoutMultiplierBounds(t *testing.T) {
	if got := engine.PayoutMultiplier(0); got != 1.0 {
		t.Errorf("multiplier at tick 0 should be neutral 1.0, got %f", got)
	}
	if got := engine.PayoutMultiplier(-10); got != 1.0 {
		t.Errorf("multiplier at negative tick should be neutral 1.0, got %f", got)
	}

	prev := 0.0
	for tick := 1; tick <= engine.MaxTicks; tick++ {
		m := engine.PayoutMultiplier(tick)
		if m < prev {
			t.Errorf("tick %d: multiplier %f decreased from %f", tick, m, prev)
		}
		if m >= 100 {
			t.Errorf("tick %d: multiplier %f outside sane bounds", tick, m)
		}
		prev = m
	}

	// Very large ticks clamp to the end of the curve instead of exploding.
	if got := engine.PayoutMultiplier(1 << 20); got != engine.PayoutMultiplier(engine.MaxTicks) {
		t.Errorf("multiplier beyond MaxTicks should clamp, got %f", got)
	}
}

func TestEarliestCashoutIsStillHouseFavored(t *testing.T) {
	// survival(1)=0.99 and the tick-1 multiplier combine to EV ~0.92: the edge
	// holds even at the earliest cash-out point.
	ev := engine.SurvivalProbability(1) * engine.PayoutMultiplier(1)
	if math.Abs(ev-0.92) > 0.005 {
		t.Errorf("expected value at tick 1 should be ~0.92, got %f", ev)
	}
}
