package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rush-miniapp-backend/internal/config"
	"rush-miniapp-backend/internal/engine"
	"rush-miniapp-backend/internal/models"
	"rush-miniapp-backend/internal/services"
)

type RoundHandler struct {
	rounds       *services.RoundManager
	redisService *services.RedisService
	cfg          *config.Config
}

func NewRoundHandler(rounds *services.RoundManager, redisService *services.RedisService, cfg *config.Config) *RoundHandler {
	return &RoundHandler{
		rounds:       rounds,
		redisService: redisService,
		cfg:          cfg,
	}
}

// statusFor maps the service error taxonomy onto HTTP. Unknown errors stay 500
// so a bug never masquerades as a player mistake.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidBet):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrNotRoundOwner):
		return http.StatusForbidden
	case errors.Is(err, services.ErrRoundNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyActiveRound),
		errors.Is(err, services.ErrAlreadyCashedOut),
		errors.Is(err, services.ErrCashoutTooEarly),
		errors.Is(err, services.ErrRoundNotActive),
		errors.Is(err, services.ErrNoPendingEvent),
		errors.Is(err, services.ErrPowerUpAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, services.ErrUnknownPowerUp):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *RoundHandler) StartRound(c *gin.Context) {
	playerID := c.GetInt64("user_id")

	var req models.StartRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := req.Validate(h.cfg.MinBet, h.cfg.MaxBet); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	// Rate Limit: 30 round starts per minute
	allowed, err := h.redisService.CheckRateLimit(playerID, "start_round", 30, 1*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many rounds. Please wait."})
		return
	}

	clientSeed := req.ClientSeed
	if clientSeed == "" {
		// Fall back to the wallet's published client seed.
		if wallet, err := h.redisService.GetWallet(playerID); err == nil {
			clientSeed = wallet.ClientSeed
		}
	}

	view, err := h.rounds.StartRound(playerID, req.BetAmount, clientSeed)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to start round",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   view,
	})
}

func (h *RoundHandler) Cashout(c *gin.Context) {
	playerID := c.GetInt64("user_id")

	var req models.CashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	// Rate Limit: 60 cashouts per minute
	allowed, err := h.redisService.CheckRateLimit(playerID, "cashout", 60, 1*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limit check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many cashouts. Please wait."})
		return
	}

	outcome, err := h.rounds.CashOut(playerID, req.RoundID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to cash out",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  outcome,
	})
}

func (h *RoundHandler) ChooseEvent(c *gin.Context) {
	playerID := c.GetInt64("user_id")

	var req models.ChooseEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if req.Choice != models.ChoiceAccept && req.Choice != models.ChoiceDecline {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Choice must be accept or decline",
		})
		return
	}

	view, err := h.rounds.ChooseEvent(playerID, req.RoundID, req.Choice)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to resolve event",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   view,
	})
}

func (h *RoundHandler) UsePowerUp(c *gin.Context) {
	playerID := c.GetInt64("user_id")

	var req models.PowerUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	view, err := h.rounds.UsePowerUp(playerID, req.RoundID, req.Kind)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to use power-up",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   view,
	})
}

func (h *RoundHandler) GetRoundState(c *gin.Context) {
	roundID := c.Param("id")

	view, err := h.rounds.GetRoundState(roundID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Round not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   view,
	})
}

func (h *RoundHandler) GetActiveRound(c *gin.Context) {
	playerID := c.GetInt64("user_id")

	roundID, err := h.redisService.GetActiveRoundID(playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to look up active round",
			"details": err.Error(),
		})
		return
	}
	if roundID == "" {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"round":   nil,
		})
		return
	}

	view, err := h.rounds.GetRoundState(roundID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to load active round",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"round":   view,
	})
}

func (h *RoundHandler) GetRoundHistory(c *gin.Context) {
	playerID := c.GetInt64("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	rounds, err := h.redisService.GetRoundHistory(playerID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get round history",
			"details": err.Error(),
		})
		return
	}

	var response []models.RoundView
	for _, round := range rounds {
		response = append(response, round.View())
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rounds":  response,
		"count":   len(response),
	})
}

func (h *RoundHandler) GetBalance(c *gin.Context) {
	playerID := c.GetInt64("user_id")

	wallet, err := h.redisService.GetWallet(playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get wallet",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": gin.H{
			"available":     wallet.Balance - wallet.LockedBalance,
			"locked":        wallet.LockedBalance,
			"total":         wallet.Balance,
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
			"nonce":         wallet.Nonce,
			"client_seed":   wallet.ClientSeed,
		},
	})
}

func (h *RoundHandler) GetTransactions(c *gin.Context) {
	playerID := c.GetInt64("user_id")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	transactions, err := h.redisService.GetPlayerTransactions(playerID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get transactions",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// GetVerificationData publishes the player's current fairness material. The
// per-round commitment travels with the round view; this endpoint covers the
// seed and nonce the next round will use.
func (h *RoundHandler) GetVerificationData(c *gin.Context) {
	playerID := c.GetInt64("user_id")

	wallet, err := h.redisService.GetWallet(playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get verification data",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": models.VerificationData{
			ClientSeed:   wallet.ClientSeed,
			CurrentNonce: wallet.Nonce,
		},
	})
}

// VerifyRound replays a finished round from its revealed seeds and checks the
// claimed outcome. It needs no session state, so cheating claims can be
// audited by anyone holding the published material.
func (h *RoundHandler) VerifyRound(c *gin.Context) {
	var req models.VerifyRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	claimed := engine.Outcome{
		Result:          engine.RoundResult(req.Result),
		Payout:          req.Payout,
		FinalMultiplier: req.FinalMultiplier,
		HazardTick:      req.HazardTick,
		CashoutTick:     req.CashoutTick,
		EventsTriggered: req.EventsTriggered,
	}

	report := engine.Audit(req.ServerSeed, req.ServerSeedHash, req.ClientSeed, req.Nonce, claimed)

	pair := engine.SeedPair{
		ServerSeed:     req.ServerSeed,
		ServerSeedHash: req.ServerSeedHash,
		ClientSeed:     req.ClientSeed,
		Nonce:          req.Nonce,
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"verification": gin.H{
			"valid":       report.IsValid,
			"errors":      report.Errors,
			"hazard_tick": engine.ScheduledHazardTick(pair),
			"timeline":    engine.BuildTimeline(pair),
		},
	})
}
