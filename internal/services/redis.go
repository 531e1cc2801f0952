package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rush-miniapp-backend/internal/config"
	"rush-miniapp-backend/internal/engine"
	"rush-miniapp-backend/internal/models"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
	log    *zap.Logger
}

func NewRedisService(cfg *config.Config, log *zap.Logger) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{client: client, ctx: ctx, log: log}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// --- sessions ---

func (s *RedisService) StoreUserSession(session *models.UserSession, expiry time.Duration) error {
	key := fmt.Sprintf(KeyUserSession, session.ID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, expiry).Err()
}

func (s *RedisService) GetUserSession(playerID int64, sessionID string) (*models.UserSession, error) {
	key := fmt.Sprintf(KeyUserSession, playerID, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var session models.UserSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}

	session.LastAccessed = time.Now()
	updated, _ := json.Marshal(session)
	s.client.Set(s.ctx, key, updated, TTLUserSession)

	return &session, nil
}

func (s *RedisService) DeleteUserSession(playerID int64, sessionID string) error {
	key := fmt.Sprintf(KeyUserSession, playerID, sessionID)
	return s.client.Del(s.ctx, key).Err()
}

// --- wallets ---

func (s *RedisService) GetWallet(playerID int64) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, playerID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		clientSeed, seedErr := engine.GenerateClientSeed()
		if seedErr != nil {
			return nil, seedErr
		}

		wallet := &models.Wallet{
			PlayerID:   playerID,
			Balance:    10000, // demo bankroll, in cents
			ClientSeed: clientSeed,
			Nonce:      0,
		}

		if err := s.SaveWallet(wallet); err != nil {
			return nil, fmt.Errorf("failed to create wallet: %v", err)
		}
		return wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %v", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %v", err)
	}

	return &wallet, nil
}

func (s *RedisService) SaveWallet(wallet *models.Wallet) error {
	key := fmt.Sprintf(KeyWallet, wallet.PlayerID)

	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %v", err)
	}

	return s.client.Set(s.ctx, key, data, 0).Err()
}

// debitScript atomically checks and moves the bet out of the spendable
// balance, so two concurrent debits can never both pass the balance check.
var debitScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	if wallet.balance < amount then
		return redis.error_reply("insufficient balance")
	end

	wallet.balance = wallet.balance - amount
	wallet.total_wagered = wallet.total_wagered + amount

	redis.call("SET", key, cjson.encode(wallet))

	return "OK"
`)

var creditScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	wallet.balance = wallet.balance + amount
	if amount > 0 then
		wallet.total_won = wallet.total_won + amount
	end

	redis.call("SET", key, cjson.encode(wallet))

	return "OK"
`)

// Debit implements the Ledger boundary: called exactly once at round start.
func (s *RedisService) Debit(playerID int64, amount float64, roundID string) error {
	if _, err := s.GetWallet(playerID); err != nil {
		return err
	}

	key := fmt.Sprintf(KeyWallet, playerID)
	if err := debitScript.Run(s.ctx, s.client, []string{key}, amount).Err(); err != nil {
		if strings.Contains(err.Error(), "insufficient balance") {
			return ErrInsufficientFunds
		}
		return fmt.Errorf("failed to debit bet: %v", err)
	}

	if err := s.recordTransaction(playerID, models.TransactionTypeBet, -amount, roundID,
		fmt.Sprintf("Bet of %s on round %s", models.FormatCurrency(amount), roundID)); err != nil {
		s.log.Warn("failed to record bet transaction",
			zap.Int64("player_id", playerID),
			zap.String("round_id", roundID),
			zap.Error(err))
	}
	return nil
}

// Credit implements the Ledger boundary: called exactly once at terminal
// resolution, zero allowed.
func (s *RedisService) Credit(playerID int64, amount float64, roundID string) error {
	key := fmt.Sprintf(KeyWallet, playerID)
	if err := creditScript.Run(s.ctx, s.client, []string{key}, amount).Err(); err != nil {
		return fmt.Errorf("failed to credit payout: %v", err)
	}

	if amount > 0 {
		if err := s.recordTransaction(playerID, models.TransactionTypeWin, amount, roundID,
			fmt.Sprintf("Payout of %s on round %s", models.FormatCurrency(amount), roundID)); err != nil {
			s.log.Warn("failed to record payout transaction",
				zap.Int64("player_id", playerID),
				zap.String("round_id", roundID),
				zap.Error(err))
		}
	}
	return nil
}

// --- round store ---

// NextNonce reserves the next per-player round nonce and keeps the wallet's
// published counter in sync.
func (s *RedisService) NextNonce(playerID int64) (int64, error) {
	wallet, err := s.GetWallet(playerID)
	if err != nil {
		return 0, err
	}

	nonce := wallet.Nonce
	wallet.Nonce++
	if err := s.SaveWallet(wallet); err != nil {
		return 0, err
	}
	return nonce, nil
}

// ReserveActiveRound is the atomic check-and-set behind the one active round
// per player invariant: SETNX either claims the slot or observes the holder.
func (s *RedisService) ReserveActiveRound(playerID int64, roundID string) (bool, error) {
	key := fmt.Sprintf(KeyActiveRound, playerID)
	ok, err := s.client.SetNX(s.ctx, key, roundID, TTLActiveRound).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve active round: %v", err)
	}
	return ok, nil
}

func (s *RedisService) ReleaseActiveRound(playerID int64) error {
	key := fmt.Sprintf(KeyActiveRound, playerID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) GetActiveRoundID(playerID int64) (string, error) {
	key := fmt.Sprintf(KeyActiveRound, playerID)
	id, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

func (s *RedisService) SaveRound(round *models.Round) error {
	key := fmt.Sprintf(KeyRound, round.ID)

	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %v", err)
	}

	return s.client.Set(s.ctx, key, data, TTLRound).Err()
}

func (s *RedisService) GetRound(roundID string) (*models.Round, error) {
	key := fmt.Sprintf(KeyRound, roundID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("round not found: %s", roundID)
		}
		return nil, fmt.Errorf("failed to get round: %v", err)
	}

	var round models.Round
	if err := json.Unmarshal([]byte(data), &round); err != nil {
		return nil, fmt.Errorf("failed to unmarshal round: %v", err)
	}

	return &round, nil
}

func (s *RedisService) CompleteRound(round *models.Round) error {
	if err := s.SaveRound(round); err != nil {
		return err
	}

	completedKey := fmt.Sprintf(KeyCompletedRounds, round.PlayerID)
	if err := s.client.ZAdd(s.ctx, completedKey, redis.Z{
		Score:  float64(round.EndedAt.Unix()),
		Member: round.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to completed rounds: %v", err)
	}

	// Keep only the last 100 rounds per player.
	s.client.ZRemRangeByRank(s.ctx, completedKey, 0, -101)

	return nil
}

func (s *RedisService) GetRoundHistory(playerID int64, limit int64) ([]*models.Round, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	completedKey := fmt.Sprintf(KeyCompletedRounds, playerID)

	roundIDs, err := s.client.ZRevRange(s.ctx, completedKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get round IDs: %v", err)
	}

	var rounds []*models.Round
	for _, roundID := range roundIDs {
		round, err := s.GetRound(roundID)
		if err != nil {
			continue
		}
		rounds = append(rounds, round)
	}

	return rounds, nil
}

// --- transactions ---

func (s *RedisService) recordTransaction(playerID int64, txType models.TransactionType, amount float64, roundID, description string) error {
	wallet, err := s.GetWallet(playerID)
	if err != nil {
		return err
	}

	tx := &models.Transaction{
		ID:            models.GenerateTransactionID(),
		PlayerID:      playerID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: wallet.Balance - amount,
		BalanceAfter:  wallet.Balance,
		RoundID:       roundID,
		Description:   description,
		CreatedAt:     time.Now(),
	}

	return s.SaveTransaction(tx)
}

func (s *RedisService) SaveTransaction(tx *models.Transaction) error {
	txKey := fmt.Sprintf(KeyTransaction, tx.ID)

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %v", err)
	}

	if err := s.client.Set(s.ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	playerTxKey := fmt.Sprintf(KeyPlayerTransaction, tx.PlayerID)
	if err := s.client.ZAdd(s.ctx, playerTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.Unix()),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to player transactions: %v", err)
	}

	// Keep only last 100 transactions
	s.client.ZRemRangeByRank(s.ctx, playerTxKey, 0, -101)

	return nil
}

func (s *RedisService) GetPlayerTransactions(playerID int64, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	playerTxKey := fmt.Sprintf(KeyPlayerTransaction, playerID)

	txIDs, err := s.client.ZRevRange(s.ctx, playerTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %v", err)
	}

	var transactions []*models.Transaction
	for _, txID := range txIDs {
		txKey := fmt.Sprintf(KeyTransaction, txID)

		data, err := s.client.Get(s.ctx, txKey).Result()
		if err != nil {
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}

		transactions = append(transactions, &tx)
	}

	return transactions, nil
}

// --- rate limits ---

func (s *RedisService) CheckRateLimit(playerID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

// --- test helpers ---

func (s *RedisService) DeleteWallet(playerID int64) error {
	key := fmt.Sprintf(KeyWallet, playerID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) DeleteRound(roundID string) error {
	key := fmt.Sprintf(KeyRound, roundID)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) ClearRateLimit(playerID int64, action string) error {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)
	return s.client.Del(s.ctx, key).Err()
}
