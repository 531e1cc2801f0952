package services

import "time"

const (
	KeyUserSession       = "user:%d:session:%s"
	KeyPlayerInfo        = "player:%d:info"
	KeyWallet            = "wallet:%d"
	KeyRound             = "round:%s"
	KeyActiveRound       = "player:%d:active_round"
	KeyCompletedRounds   = "player:%d:completed_rounds"
	KeyTransaction       = "transaction:%s"
	KeyPlayerTransaction = "player:%d:transactions"
	KeyRateLimit         = "ratelimit:%d:%s"

	TTLUserSession = 24 * time.Hour
	TTLPlayerInfo  = 30 * 24 * time.Hour // 30 days
	TTLRound       = 7 * 24 * time.Hour  // 7 days
	TTLTransaction = 30 * 24 * time.Hour // 30 days

	// Active-round slots outlive the longest possible round (30 ticks plus
	// decision windows) by a wide margin, as a crash backstop.
	TTLActiveRound = 10 * time.Minute
)
