package services_test

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"rush-miniapp-backend/internal/config"
	"rush-miniapp-backend/internal/engine"
	"rush-miniapp-backend/internal/models"
	"rush-miniapp-backend/internal/services"
)

func TestRedisService(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	redisService, err := services.NewRedisService(cfg, zap.NewNop())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer redisService.Close()

	playerID := int64(999999)
	redisService.DeleteWallet(playerID)

	wallet, err := redisService.GetWallet(playerID)
	if err != nil {
		t.Fatalf("Failed to get wallet: %v", err)
	}

	if wallet.Balance != 10000 {
		t.Errorf("Expected default balance 10000, got %f", wallet.Balance)
	}
	if wallet.ClientSeed == "" {
		t.Error("New wallet should carry a generated client seed")
	}

	betAmount := 1000.0
	if err := redisService.Debit(playerID, betAmount, "round_test_123"); err != nil {
		t.Errorf("Failed to debit bet: %v", err)
	}

	wallet, err = redisService.GetWallet(playerID)
	if err != nil {
		t.Fatalf("Failed to get wallet after debit: %v", err)
	}

	if wallet.Balance != 9000 {
		t.Errorf("Expected balance 9000 after debit, got %f", wallet.Balance)
	}
	if wallet.TotalWagered != 1000 {
		t.Errorf("Expected total wagered 1000, got %f", wallet.TotalWagered)
	}

	if err := redisService.Debit(playerID, 1e9, "round_test_123"); !errors.Is(err, services.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds on oversized debit, got %v", err)
	}

	if err := redisService.Credit(playerID, 1500, "round_test_123"); err != nil {
		t.Errorf("Failed to credit payout: %v", err)
	}

	wallet, err = redisService.GetWallet(playerID)
	if err != nil {
		t.Fatalf("Failed to get wallet after credit: %v", err)
	}

	if wallet.Balance != 10500 {
		t.Errorf("Expected balance 10500 after credit, got %f", wallet.Balance)
	}
	if wallet.TotalWon != 1500 {
		t.Errorf("Expected total won 1500, got %f", wallet.TotalWon)
	}

	transactions, err := redisService.GetPlayerTransactions(playerID, 10)
	if err != nil {
		t.Fatalf("Failed to get transactions: %v", err)
	}
	var haveBet, haveWin bool
	for _, tx := range transactions {
		if tx.RoundID != "round_test_123" {
			continue
		}
		switch tx.Type {
		case models.TransactionTypeBet:
			haveBet = true
		case models.TransactionTypeWin:
			haveWin = true
		}
	}
	if !haveBet || !haveWin {
		t.Errorf("Debit and credit should each record a transaction, got bet=%v win=%v", haveBet, haveWin)
	}

	n1, err := redisService.NextNonce(playerID)
	if err != nil {
		t.Fatalf("Failed to reserve nonce: %v", err)
	}
	n2, err := redisService.NextNonce(playerID)
	if err != nil {
		t.Fatalf("Failed to reserve nonce: %v", err)
	}
	if n2 != n1+1 {
		t.Errorf("Nonces should be sequential, got %d then %d", n1, n2)
	}

	ok, err := redisService.ReserveActiveRound(playerID, "round_test_123")
	if err != nil || !ok {
		t.Fatalf("Failed to reserve active round slot: ok=%v err=%v", ok, err)
	}
	ok, err = redisService.ReserveActiveRound(playerID, "round_test_456")
	if err != nil {
		t.Fatalf("Failed to check active round slot: %v", err)
	}
	if ok {
		t.Error("Second reservation should be rejected while the first holds")
	}
	if err := redisService.ReleaseActiveRound(playerID); err != nil {
		t.Errorf("Failed to release active round slot: %v", err)
	}

	pair, err := engine.NewSeedPair(wallet.ClientSeed, n1)
	if err != nil {
		t.Fatalf("Failed to build seed pair: %v", err)
	}

	round := &models.Round{
		ID:              "round_test_123",
		PlayerID:        playerID,
		BetAmount:       betAmount,
		State:           models.RoundStateCashedOut,
		CurrentTick:     5,
		BaseMultiplier:  engine.PayoutMultiplier(5),
		BonusMultiplier: 1.0,
		RiskMultiplier:  1.0,
		SeedPair:        pair,
		Timeline:        engine.BuildTimeline(pair),
		CreatedAt:       time.Now(),
		EndedAt:         time.Now(),
	}

	if err := redisService.SaveRound(round); err != nil {
		t.Errorf("Failed to save round: %v", err)
	}

	retrieved, err := redisService.GetRound("round_test_123")
	if err != nil {
		t.Fatalf("Failed to get round: %v", err)
	}
	if retrieved.ID != round.ID || retrieved.SeedPair.ServerSeedHash != pair.ServerSeedHash {
		t.Error("Round did not survive the store round trip")
	}

	if err := redisService.CompleteRound(round); err != nil {
		t.Errorf("Failed to complete round: %v", err)
	}

	history, err := redisService.GetRoundHistory(playerID, 10)
	if err != nil {
		t.Errorf("Failed to get round history: %v", err)
	}
	if len(history) == 0 || history[0].ID != round.ID {
		t.Error("Completed round should lead the history")
	}

	allowed, err := redisService.CheckRateLimit(playerID, "start_round", 5, time.Minute)
	if err != nil {
		t.Errorf("Failed to check rate limit: %v", err)
	}
	if !allowed {
		t.Error("First request should be allowed")
	}

	redisService.DeleteWallet(playerID)
	redisService.DeleteRound(round.ID)
	redisService.ClearRateLimit(playerID, "start_round")
}
