package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rush-miniapp-backend/internal/models"
	"rush-miniapp-backend/internal/services"
)

type AuthHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
}

func NewAuthHandler(redisService *services.RedisService, jwtService *services.JWTService) *AuthHandler {
	return &AuthHandler{
		redisService: redisService,
		jwtService:   jwtService,
	}
}

// Login issues a session token for the demo wallet flow. The player id is
// client-asserted here; a production deployment swaps this handler for one
// backed by a real identity provider.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		PlayerID int64  `json:"player_id" binding:"required"`
		Username string `json:"username"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	session := &models.UserSession{
		ID:           req.PlayerID,
		SessionID:    uuid.New().String(),
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
	}

	if err := h.redisService.StoreUserSession(session, services.TTLUserSession); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create session",
			"details": err.Error(),
		})
		return
	}

	token, err := h.jwtService.GenerateToken(req.PlayerID, session.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to issue token",
			"details": err.Error(),
		})
		return
	}

	// Touch the wallet so the client sees a funded balance right away.
	wallet, err := h.redisService.GetWallet(req.PlayerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to prepare wallet",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"session": gin.H{
			"session_id": session.SessionID,
			"created_at": session.CreatedAt,
		},
		"wallet": gin.H{
			"balance":     wallet.Balance,
			"client_seed": wallet.ClientSeed,
			"nonce":       wallet.Nonce,
		},
	})
}
