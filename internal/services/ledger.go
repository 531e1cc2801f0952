package services

import "rush-miniapp-backend/internal/models"

// Ledger is the balance-accounting boundary. The round manager calls Debit
// exactly once at round start and Credit exactly once at terminal resolution
// (a zero credit on a loss is still a credit call). A credit failure never
// recomputes the outcome; retrying is the ledger implementation's job.
type Ledger interface {
	Debit(playerID int64, amount float64, roundID string) error
	Credit(playerID int64, amount float64, roundID string) error
}

// RoundStore persists round snapshots and owns the per-player bookkeeping the
// manager needs atomically: the nonce counter and the active-round slot.
type RoundStore interface {
	// NextNonce reserves the next per-player round nonce.
	NextNonce(playerID int64) (int64, error)
	// ReserveActiveRound is the atomic check-and-set behind the one active
	// round per player invariant. It returns false when the slot is held.
	ReserveActiveRound(playerID int64, roundID string) (bool, error)
	ReleaseActiveRound(playerID int64) error
	SaveRound(round *models.Round) error
	CompleteRound(round *models.Round) error
	GetRound(roundID string) (*models.Round, error)
}
