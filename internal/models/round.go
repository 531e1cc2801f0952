package models

import (
	"time"

	"rush-miniapp-backend/internal/engine"
)

type RoundState string

const (
	RoundStateActive    RoundState = "active"
	RoundStateCashedOut RoundState = "cashed_out"
	RoundStateLost      RoundState = "lost"
	RoundStateTimedOut  RoundState = "timed_out"
)

// Terminal states are final; no transition leaves them.
func (s RoundState) Terminal() bool {
	return s == RoundStateCashedOut || s == RoundStateLost || s == RoundStateTimedOut
}

type PowerUpKind string

const (
	// PowerUpShield neutralizes the hazard once; the round then runs on
	// toward the timeout win.
	PowerUpShield PowerUpKind = "shield"
	// PowerUpAdrenaline grants an immediate one-time bonus-multiplier kick.
	PowerUpAdrenaline PowerUpKind = "adrenaline"
)

// PendingChoice is the awaiting-choice sub-state entered when a bonus event
// tick is reached. The window counts down in ticks; expiry resolves the event
// to its safe default exactly once.
type PendingChoice struct {
	Kind           engine.EventKind `json:"kind"`
	Tick           int              `json:"tick"`
	TicksRemaining int              `json:"ticks_remaining"`
}

type Round struct {
	ID        string     `json:"id" redis:"id"`
	PlayerID  int64      `json:"player_id" redis:"player_id"`
	BetAmount float64    `json:"bet_amount" redis:"bet_amount"`
	State     RoundState `json:"state" redis:"state"`

	CurrentTick     int     `json:"current_tick" redis:"current_tick"`
	BaseMultiplier  float64 `json:"base_multiplier" redis:"base_multiplier"`
	BonusMultiplier float64 `json:"bonus_multiplier" redis:"bonus_multiplier"`
	RiskMultiplier  float64 `json:"risk_multiplier" redis:"risk_multiplier"`

	SeedPair engine.SeedPair    `json:"seed_pair" redis:"seed_pair"`
	Timeline []engine.TickEvent `json:"timeline" redis:"timeline"`

	// PowerUps maps each kind to availability; false means consumed.
	PowerUps    map[PowerUpKind]bool `json:"power_ups" redis:"power_ups"`
	ShieldArmed bool                 `json:"shield_armed" redis:"shield_armed"`

	PendingChoice          *PendingChoice `json:"pending_choice,omitempty" redis:"pending_choice"`
	CashoutRequestedAtTick int            `json:"cashout_requested_at_tick,omitempty" redis:"cashout_requested_at_tick"`
	EventsTriggered        []string       `json:"events_triggered,omitempty" redis:"events_triggered"`

	Outcome *engine.Outcome `json:"outcome,omitempty" redis:"outcome"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	EndedAt   time.Time `json:"ended_at,omitempty" redis:"ended_at"`
}

// RoundView is the read-only projection streamed to clients. While the round
// is live it withholds the server seed and the event timeline; both would
// leak the hazard tick.
type RoundView struct {
	ID        string     `json:"id"`
	PlayerID  int64      `json:"player_id"`
	BetAmount float64    `json:"bet_amount"`
	State     RoundState `json:"state"`

	CurrentTick     int     `json:"current_tick"`
	BaseMultiplier  float64 `json:"base_multiplier"`
	BonusMultiplier float64 `json:"bonus_multiplier"`
	RiskMultiplier  float64 `json:"risk_multiplier"`

	SeedPair engine.SeedPair    `json:"seed_pair"`
	Timeline []engine.TickEvent `json:"timeline,omitempty"`

	PowerUps      map[PowerUpKind]bool `json:"power_ups"`
	PendingChoice *PendingChoice       `json:"pending_choice,omitempty"`

	Outcome *engine.Outcome `json:"outcome,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

func (r *Round) View() RoundView {
	view := RoundView{
		ID:              r.ID,
		PlayerID:        r.PlayerID,
		BetAmount:       r.BetAmount,
		State:           r.State,
		CurrentTick:     r.CurrentTick,
		BaseMultiplier:  r.BaseMultiplier,
		BonusMultiplier: r.BonusMultiplier,
		RiskMultiplier:  r.RiskMultiplier,
		SeedPair:        r.SeedPair.Committed(),
		PowerUps:        r.PowerUps,
		PendingChoice:   r.PendingChoice,
		CreatedAt:       r.CreatedAt,
	}

	if r.State.Terminal() {
		view.SeedPair = r.SeedPair
		view.Timeline = r.Timeline
		view.Outcome = r.Outcome
		view.EndedAt = r.EndedAt
	}

	return view
}
