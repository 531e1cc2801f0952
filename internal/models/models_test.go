package models_test

import (
	"testing"

	"rush-miniapp-backend/internal/engine"
	"rush-miniapp-backend/internal/models"
)

func TestStartRoundRequestValidate(t *testing.T) {
	req := &models.StartRoundRequest{BetAmount: 50}
	if err := req.Validate(1, 10000); err != nil {
		t.Errorf("valid bet failed validation: %v", err)
	}

	tooSmall := &models.StartRoundRequest{BetAmount: 0}
	if err := tooSmall.Validate(1, 10000); err == nil {
		t.Error("zero bet should fail validation")
	}

	tooBig := &models.StartRoundRequest{BetAmount: 20000}
	if err := tooBig.Validate(1, 10000); err == nil {
		t.Error("oversized bet should fail validation")
	}
}

func TestRoundStateTerminal(t *testing.T) {
	if models.RoundStateActive.Terminal() {
		t.Error("active should not be terminal")
	}
	for _, s := range []models.RoundState{models.RoundStateCashedOut, models.RoundStateLost, models.RoundStateTimedOut} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestRoundViewWithholdsSecretsWhileLive(t *testing.T) {
	pair, err := engine.NewSeedPair("player_seed", 1)
	if err != nil {
		t.Fatalf("failed to create seed pair: %v", err)
	}

	round := &models.Round{
		ID:       models.GenerateRoundID(),
		PlayerID: 42,
		State:    models.RoundStateActive,
		SeedPair: pair,
		Timeline: engine.BuildTimeline(pair),
		PowerUps: models.NewPowerUpLoadout(),
	}

	view := round.View()
	if view.SeedPair.ServerSeed != "" {
		t.Error("live view must not reveal the server seed")
	}
	if view.SeedPair.ServerSeedHash != pair.ServerSeedHash {
		t.Error("live view must carry the commitment")
	}
	if len(view.Timeline) != 0 {
		t.Error("live view must not reveal the timeline")
	}

	round.State = models.RoundStateLost
	round.Outcome = &engine.Outcome{Result: engine.ResultLoss, HazardTick: engine.ScheduledHazardTick(pair)}

	view = round.View()
	if view.SeedPair.ServerSeed != pair.ServerSeed {
		t.Error("terminal view must reveal the server seed")
	}
	if len(view.Timeline) == 0 {
		t.Error("terminal view must reveal the timeline")
	}
	if view.Outcome == nil {
		t.Error("terminal view must carry the outcome")
	}
}

func TestGeneratedIDs(t *testing.T) {
	if models.GenerateRoundID() == models.GenerateRoundID() {
		t.Error("round IDs should not collide")
	}
	if models.GenerateTransactionID() == "" {
		t.Error("transaction ID should not be empty")
	}
}
