package services

import "errors"

// Contract violations are reported as typed errors; the round's state is left
// unchanged when one is returned.
var (
	ErrInvalidBet         = errors.New("bet amount outside configured limits")
	ErrAlreadyActiveRound = errors.New("player already has an active round")
	ErrRoundNotFound      = errors.New("round not found")
	ErrRoundNotActive     = errors.New("round is not active")
	ErrAlreadyCashedOut   = errors.New("round already cashed out")
	ErrCashoutTooEarly    = errors.New("cashout before the first tick")
	ErrNotRoundOwner      = errors.New("round belongs to another player")
	ErrNoPendingEvent     = errors.New("no event awaiting a choice")
	ErrUnknownPowerUp     = errors.New("unknown power-up kind")
	ErrPowerUpAlreadyUsed = errors.New("power-up already used")
	ErrInsufficientFunds  = errors.New("insufficient balance")
)
