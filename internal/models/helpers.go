package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateRoundID() string {
	return fmt.Sprintf("round_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func (r *StartRoundRequest) Validate(minBet, maxBet float64) error {
	if r.BetAmount < minBet {
		return fmt.Errorf("bet amount must be at least %.0f cents", minBet)
	}
	if r.BetAmount > maxBet {
		return fmt.Errorf("maximum bet amount is %.0f cents", maxBet)
	}
	return nil
}

func FormatCurrency(cents float64) string {
	return fmt.Sprintf("$%.2f", cents/100)
}

// NewPowerUpLoadout is the per-round allotment: each kind once.
func NewPowerUpLoadout() map[PowerUpKind]bool {
	return map[PowerUpKind]bool{
		PowerUpShield:     true,
		PowerUpAdrenaline: true,
	}
}
