package services

// RoundEvent is an immutable state-change message emitted by the round
// manager. The transport layer fans these out; the core knows nothing about
// framing or protocol.
type RoundEvent struct {
	Type     string      `json:"type"`
	PlayerID int64       `json:"player_id,omitempty"`
	RoundID  string      `json:"round_id,omitempty"`
	Data     interface{} `json:"data"`
}

const (
	EventRoundStarted  = "ROUND_STARTED"
	EventRoundTick     = "ROUND_TICK"
	EventSafeZone      = "SAFE_ZONE"
	EventChoicePrompt  = "EVENT_PROMPT"
	EventChoiceResolve = "EVENT_RESOLVED"
	EventPowerUpUsed   = "POWERUP_USED"
	EventShielded      = "HAZARD_SHIELDED"
	EventCashedOut     = "CASHED_OUT"
	EventRoundLost     = "ROUND_LOST"
	EventRoundTimedOut = "ROUND_TIMED_OUT"
)

type Publisher interface {
	Publish(playerID int64, event RoundEvent)
}
