package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"rush-miniapp-backend/internal/config"
	"rush-miniapp-backend/internal/handlers"
	"rush-miniapp-backend/internal/logger"
	"rush-miniapp-backend/internal/middleware"
	"rush-miniapp-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Env)
	defer logger.Log.Sync()

	redisService, err := services.NewRedisService(cfg, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisService.Close()

	jwtService := services.NewJWTService(cfg)

	wsHandler := handlers.NewWebSocketHandler(redisService, logger.Log)

	// Redis is both the round store and the wallet ledger; the websocket hub
	// is the event publisher. The server tick is one second.
	roundManager := services.NewRoundManager(
		redisService,
		redisService,
		wsHandler,
		logger.Log,
		cfg.MinBet,
		cfg.MaxBet,
		time.Second,
	)

	authHandler := handlers.NewAuthHandler(redisService, jwtService)
	userHandler := handlers.NewUserHandler(redisService)
	roundHandler := handlers.NewRoundHandler(roundManager, redisService, cfg)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.POST("/auth/login", authHandler.Login)

	// Verification is deliberately public: anyone holding revealed seeds can
	// replay a round without an account.
	router.POST("/verify", roundHandler.VerifyRound)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.POST("/logout", userHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		rounds := protected.Group("/rounds")
		{
			rounds.POST("/start", roundHandler.StartRound)
			rounds.POST("/cashout", roundHandler.Cashout)
			rounds.POST("/choose", roundHandler.ChooseEvent)
			rounds.POST("/powerup", roundHandler.UsePowerUp)

			rounds.GET("/active", roundHandler.GetActiveRound)
			rounds.GET("/history", roundHandler.GetRoundHistory)
			rounds.GET("/:id", roundHandler.GetRoundState)
		}

		wallet := protected.Group("/wallet")
		{
			wallet.GET("/balance", roundHandler.GetBalance)
			wallet.GET("/transactions", roundHandler.GetTransactions)
		}

		protected.GET("/verification", roundHandler.GetVerificationData)
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	logger.Log.Info("Server starting", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		logger.Log.Fatal("Failed to start server", zap.Error(err))
	}
}
