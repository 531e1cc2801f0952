package models

type StartRoundRequest struct {
	BetAmount  float64 `json:"bet_amount" binding:"required"`
	ClientSeed string  `json:"client_seed"`
}

type CashoutRequest struct {
	RoundID string `json:"round_id" binding:"required"`
}

type EventChoice string

const (
	ChoiceAccept  EventChoice = "accept"
	ChoiceDecline EventChoice = "decline"
)

type ChooseEventRequest struct {
	RoundID string      `json:"round_id" binding:"required"`
	Choice  EventChoice `json:"choice" binding:"required"`
}

type PowerUpRequest struct {
	RoundID string      `json:"round_id" binding:"required"`
	Kind    PowerUpKind `json:"kind" binding:"required"`
}

type VerifyRoundRequest struct {
	ServerSeed     string `json:"server_seed" binding:"required"`
	ServerSeedHash string `json:"server_seed_hash" binding:"required"`
	ClientSeed     string `json:"client_seed" binding:"required"`
	Nonce          int64  `json:"nonce"`

	Result          string   `json:"result" binding:"required"`
	Payout          float64  `json:"payout"`
	FinalMultiplier float64  `json:"final_multiplier"`
	HazardTick      int      `json:"hazard_tick"`
	CashoutTick     int      `json:"cashout_tick"`
	EventsTriggered []string `json:"events_triggered"`
}

type VerificationData struct {
	ClientSeed   string `json:"client_seed"`
	CurrentNonce int64  `json:"current_nonce"`
}
