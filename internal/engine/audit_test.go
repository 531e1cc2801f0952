package engine_test

import (
	"fmt"
	"testing"

	"rush-miniapp-backend/internal/engine"
)

// pairWithLateHazard searches nonces for a scheduled hazard past tick 1 so the
// win-by-earlier-cashout cases are expressible.
func pairWithLateHazard(t *testing.T) (engine.SeedPair, int) {
	t.Helper()
	for nonce := int64(0); nonce < 500; nonce++ {
		pair := engine.SeedPair{
			ServerSeed:     testServerSeed,
			ServerSeedHash: engine.HashSeed(testServerSeed),
			ClientSeed:     testClientSeed,
			Nonce:          nonce,
		}
		if hazard := engine.ScheduledHazardTick(pair); hazard > 1 {
			return pair, hazard
		}
	}
	t.Fatal("no seed pair with hazard past tick 1 in 500 nonces")
	return engine.SeedPair{}, 0
}

func TestAuditAcceptsGenuineLoss(t *testing.T) {
	pair, hazard := pairWithLateHazard(t)

	outcome := engine.Outcome{
		Result:     engine.ResultLoss,
		Payout:     0,
		HazardTick: hazard,
	}

	report := engine.Audit(pair.ServerSeed, pair.ServerSeedHash, pair.ClientSeed, pair.Nonce, outcome)
	if !report.IsValid {
		t.Errorf("genuine loss flagged invalid: %v", report.Errors)
	}
	if len(report.Errors) != 0 {
		t.Errorf("genuine loss should have zero errors, got %v", report.Errors)
	}
}

func TestAuditAcceptsGenuineCashoutWin(t *testing.T) {
	pair, hazard := pairWithLateHazard(t)

	outcome := engine.Outcome{
		Result:          engine.ResultWin,
		Payout:          100 * engine.PayoutMultiplier(hazard-1),
		FinalMultiplier: engine.PayoutMultiplier(hazard - 1),
		HazardTick:      hazard,
		CashoutTick:     hazard - 1,
	}

	report := engine.Audit(pair.ServerSeed, pair.ServerSeedHash, pair.ClientSeed, pair.Nonce, outcome)
	if !report.IsValid {
		t.Errorf("genuine win flagged invalid: %v", report.Errors)
	}
}

func TestAuditRejectsFalsifiedHazardTick(t *testing.T) {
	pair, hazard := pairWithLateHazard(t)

	outcome := engine.Outcome{
		Result:     engine.ResultLoss,
		HazardTick: hazard - 1,
	}

	report := engine.Audit(pair.ServerSeed, pair.ServerSeedHash, pair.ClientSeed, pair.Nonce, outcome)
	if report.IsValid {
		t.Error("falsified hazard tick passed audit")
	}
	if len(report.Errors) == 0 {
		t.Error("falsified hazard tick should produce at least one error")
	}
}

func TestAuditRejectsFalsifiedResult(t *testing.T) {
	pair, hazard := pairWithLateHazard(t)

	// No cashout but claimed as a win.
	outcome := engine.Outcome{
		Result:     engine.ResultWin,
		Payout:     999,
		HazardTick: hazard,
	}

	report := engine.Audit(pair.ServerSeed, pair.ServerSeedHash, pair.ClientSeed, pair.Nonce, outcome)
	if report.IsValid {
		t.Error("win without cashout passed audit")
	}

	// Cashout at the hazard tick claimed as a win.
	outcome = engine.Outcome{
		Result:      engine.ResultWin,
		HazardTick:  hazard,
		CashoutTick: hazard,
	}
	report = engine.Audit(pair.ServerSeed, pair.ServerSeedHash, pair.ClientSeed, pair.Nonce, outcome)
	if report.IsValid {
		t.Error("cashout at the hazard tick must not audit as a win")
	}
}

func TestAuditRejectsBrokenCommitment(t *testing.T) {
	pair, hazard := pairWithLateHazard(t)

	outcome := engine.Outcome{Result: engine.ResultLoss, HazardTick: hazard}
	report := engine.Audit(pair.ServerSeed, "deadbeef", pair.ClientSeed, pair.Nonce, outcome)
	if report.IsValid {
		t.Error("mismatched commitment passed audit")
	}
}

func TestAuditAcceptsShieldedTimeoutWin(t *testing.T) {
	pair, hazard := pairWithLateHazard(t)

	outcome := engine.Outcome{
		Result:          engine.ResultWin,
		FinalMultiplier: engine.PayoutMultiplier(engine.MaxTicks),
		HazardTick:      hazard,
		EventsTriggered: []string{fmt.Sprintf("%s@%d", engine.TriggerShielded, hazard)},
	}

	report := engine.Audit(pair.ServerSeed, pair.ServerSeedHash, pair.ClientSeed, pair.Nonce, outcome)
	if !report.IsValid {
		t.Errorf("shielded timeout win flagged invalid: %v", report.Errors)
	}
}
