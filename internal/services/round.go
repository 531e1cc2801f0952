package services

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"rush-miniapp-backend/internal/engine"
	"rush-miniapp-backend/internal/models"
)

// ChoiceWindowTicks bounds the awaiting-choice sub-state: a bonus event left
// unanswered for this many scheduler ticks resolves to its safe default.
const ChoiceWindowTicks = 3

// RoundManager owns every live round. Each round is a single unit of mutual
// exclusion: all mutations of one round go through its instance lock, which
// is what makes the cashout/hazard tie-break well-defined. Rounds of
// different players share nothing mutable.
type RoundManager struct {
	store  RoundStore
	ledger Ledger
	pub    Publisher
	log    *zap.Logger

	minBet float64
	maxBet float64

	// tickInterval drives the per-round scheduler goroutine. Zero disables
	// it so tests (and external schedulers) call Advance directly.
	tickInterval time.Duration

	mu     sync.Mutex
	rounds map[string]*roundInstance
}

type roundInstance struct {
	mu    sync.Mutex
	round *models.Round
	stop  chan struct{}
}

func NewRoundManager(store RoundStore, ledger Ledger, pub Publisher, log *zap.Logger, minBet, maxBet float64, tickInterval time.Duration) *RoundManager {
	return &RoundManager{
		store:        store,
		ledger:       ledger,
		pub:          pub,
		log:          log,
		minBet:       minBet,
		maxBet:       maxBet,
		tickInterval: tickInterval,
		rounds:       make(map[string]*roundInstance),
	}
}

// StartRound debits the bet, commits a fresh seed pair, builds the timeline
// and enters Active at tick 0. The active-round slot is reserved before any
// side effect so two concurrent starts for one player cannot both pass.
func (m *RoundManager) StartRound(playerID int64, betAmount float64, clientSeed string) (models.RoundView, error) {
	if betAmount < m.minBet || betAmount > m.maxBet {
		return models.RoundView{}, ErrInvalidBet
	}

	if clientSeed == "" {
		seed, err := engine.GenerateClientSeed()
		if err != nil {
			return models.RoundView{}, err
		}
		clientSeed = seed
	}

	roundID := models.GenerateRoundID()

	ok, err := m.store.ReserveActiveRound(playerID, roundID)
	if err != nil {
		return models.RoundView{}, fmt.Errorf("failed to reserve round slot: %v", err)
	}
	if !ok {
		return models.RoundView{}, ErrAlreadyActiveRound
	}

	nonce, err := m.store.NextNonce(playerID)
	if err != nil {
		m.store.ReleaseActiveRound(playerID)
		return models.RoundView{}, fmt.Errorf("failed to reserve nonce: %v", err)
	}

	// Entropy failure is fatal to round creation, never retried silently.
	pair, err := engine.NewSeedPair(clientSeed, nonce)
	if err != nil {
		m.store.ReleaseActiveRound(playerID)
		return models.RoundView{}, err
	}

	if err := m.ledger.Debit(playerID, betAmount, roundID); err != nil {
		m.store.ReleaseActiveRound(playerID)
		return models.RoundView{}, err
	}

	round := &models.Round{
		ID:              roundID,
		PlayerID:        playerID,
		BetAmount:       betAmount,
		State:           models.RoundStateActive,
		CurrentTick:     0,
		BaseMultiplier:  1.0,
		BonusMultiplier: 1.0,
		RiskMultiplier:  1.0,
		SeedPair:        pair,
		Timeline:        engine.BuildTimeline(pair),
		PowerUps:        models.NewPowerUpLoadout(),
		CreatedAt:       time.Now(),
	}

	inst := &roundInstance{
		round: round,
		stop:  make(chan struct{}),
	}

	m.mu.Lock()
	m.rounds[roundID] = inst
	m.mu.Unlock()

	if err := m.store.SaveRound(round); err != nil {
		m.log.Error("failed to persist new round", zap.String("round_id", roundID), zap.Error(err))
	}

	view := round.View()
	m.pub.Publish(playerID, RoundEvent{
		Type:     EventRoundStarted,
		PlayerID: playerID,
		RoundID:  roundID,
		Data:     view,
	})

	if m.tickInterval > 0 {
		go m.run(inst)
	}

	return view, nil
}

// run drives one round at the server tick rate. The client never drives time;
// it only observes state and submits intents.
func (m *RoundManager) run(inst *roundInstance) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.Advance(inst.round.ID); err != nil {
				return
			}
		case <-inst.stop:
			return
		}
	}
}

// Advance applies one scheduler tick to the round. It is the tick() entry of
// the state machine and is safe to invoke from an external scheduler.
func (m *RoundManager) Advance(roundID string) error {
	inst, err := m.instance(roundID)
	if err != nil {
		return err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	r := inst.round
	if r.State.Terminal() {
		return ErrRoundNotActive
	}

	if r.PendingChoice != nil {
		// Tick progression is paused during the decision window.
		r.PendingChoice.TicksRemaining--
		if r.PendingChoice.TicksRemaining > 0 {
			m.publishTickLocked(inst)
			return nil
		}
		m.applyChoiceLocked(inst, models.ChoiceDecline, "expired")
	} else {
		r.CurrentTick++
		r.BaseMultiplier = engine.PayoutMultiplier(r.CurrentTick)
	}

	m.continueTickLocked(inst)
	return nil
}

// continueTickLocked processes the unresolved timeline events at the current
// tick in priority order, then settles the tick (timeout check, snapshot,
// heartbeat). A bonus event interrupts processing until its choice resolves.
func (m *RoundManager) continueTickLocked(inst *roundInstance) {
	r := inst.round

	for i := range r.Timeline {
		ev := &r.Timeline[i]
		if ev.Tick != r.CurrentTick || ev.Resolved {
			continue
		}

		switch ev.Kind {
		case engine.EventSafeZone:
			ev.Resolved = true
			r.EventsTriggered = append(r.EventsTriggered, fmt.Sprintf("safe_zone@%d", ev.Tick))
			m.pub.Publish(r.PlayerID, RoundEvent{
				Type:     EventSafeZone,
				PlayerID: r.PlayerID,
				RoundID:  r.ID,
				Data:     map[string]interface{}{"tick": ev.Tick},
			})

		case engine.EventMiniBonus, engine.EventFetch, engine.EventJackpot:
			r.PendingChoice = &models.PendingChoice{
				Kind:           ev.Kind,
				Tick:           ev.Tick,
				TicksRemaining: ChoiceWindowTicks,
			}
			m.pub.Publish(r.PlayerID, RoundEvent{
				Type:     EventChoicePrompt,
				PlayerID: r.PlayerID,
				RoundID:  r.ID,
				Data:     r.PendingChoice,
			})
			m.saveLocked(r)
			return

		case engine.EventHazard:
			ev.Resolved = true
			if r.ShieldArmed {
				r.ShieldArmed = false
				r.EventsTriggered = append(r.EventsTriggered, fmt.Sprintf("%s@%d", engine.TriggerShielded, ev.Tick))
				m.pub.Publish(r.PlayerID, RoundEvent{
					Type:     EventShielded,
					PlayerID: r.PlayerID,
					RoundID:  r.ID,
					Data:     map[string]interface{}{"tick": ev.Tick},
				})
				continue
			}

			m.finalizeLocked(inst, models.RoundStateLost, engine.Outcome{
				Result:          engine.ResultLoss,
				Payout:          0,
				FinalMultiplier: 0,
				HazardTick:      ev.Tick,
				EventsTriggered: append([]string(nil), r.EventsTriggered...),
			})
			return
		}
	}

	// Timeout is a win condition: the curve already encodes the edge at
	// every tick, the last included. Only shielded rounds get here, since
	// an unshielded hazard ends the round at or before the final tick.
	if r.CurrentTick >= engine.MaxTicks {
		final := round2(r.BaseMultiplier * r.BonusMultiplier)
		m.finalizeLocked(inst, models.RoundStateTimedOut, engine.Outcome{
			Result:          engine.ResultWin,
			Payout:          round2(r.BetAmount * final),
			FinalMultiplier: final,
			HazardTick:      m.hazardTickLocked(r),
			EventsTriggered: append([]string(nil), r.EventsTriggered...),
		})
		return
	}

	m.saveLocked(r)
	m.publishTickLocked(inst)
}

// ChooseEvent resolves the pending bonus event. Late choices racing the
// window expiry are safe: whichever applies first wins and the loser is a
// no-op error, decided under the round lock.
func (m *RoundManager) ChooseEvent(playerID int64, roundID string, choice models.EventChoice) (models.RoundView, error) {
	inst, err := m.instance(roundID)
	if err != nil {
		return models.RoundView{}, err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	r := inst.round
	if r.PlayerID != playerID {
		return models.RoundView{}, ErrNotRoundOwner
	}
	if r.State.Terminal() {
		return models.RoundView{}, ErrRoundNotActive
	}
	if r.PendingChoice == nil {
		return models.RoundView{}, ErrNoPendingEvent
	}

	m.applyChoiceLocked(inst, choice, "player")
	m.continueTickLocked(inst)
	return r.View(), nil
}

// applyChoiceLocked settles the pending event. Accept gambles against the
// seed-derived choice roll: a good roll boosts the bonus multiplier, a bad
// one applies a haircut tracked in the risk multiplier. The hazard tick is
// never moved by a choice; audits depend on it being a pure function of the
// seeds.
func (m *RoundManager) applyChoiceLocked(inst *roundInstance, choice models.EventChoice, source string) {
	r := inst.round
	pc := r.PendingChoice
	r.PendingChoice = nil

	for i := range r.Timeline {
		ev := &r.Timeline[i]
		if ev.Tick == pc.Tick && ev.Kind == pc.Kind {
			ev.Resolved = true
			break
		}
	}

	record := fmt.Sprintf("%s@%d:%s", pc.Kind, pc.Tick, choice)
	if source == "expired" {
		record = fmt.Sprintf("%s@%d:expired", pc.Kind, pc.Tick)
	}

	if choice == models.ChoiceAccept && source == "player" {
		roll := engine.ChoiceRoll(r.SeedPair, pc.Kind, pc.Tick)
		threshold, boost, haircut := choicePayoff(pc.Kind)
		if roll < threshold {
			r.BonusMultiplier = round2(r.BonusMultiplier * boost)
			record += ":boosted"
		} else {
			r.RiskMultiplier = round2(r.RiskMultiplier * haircut)
			r.BonusMultiplier = round2(r.BonusMultiplier / haircut)
			record += ":burned"
		}
	}

	r.EventsTriggered = append(r.EventsTriggered, record)
	m.pub.Publish(r.PlayerID, RoundEvent{
		Type:     EventChoiceResolve,
		PlayerID: r.PlayerID,
		RoundID:  r.ID,
		Data: map[string]interface{}{
			"record":           record,
			"bonus_multiplier": r.BonusMultiplier,
			"risk_multiplier":  r.RiskMultiplier,
		},
	})
}

// choicePayoff returns the accept gamble per event kind: the win threshold
// for the choice roll, the bonus boost on a win and the haircut on a loss.
func choicePayoff(kind engine.EventKind) (threshold, boost, haircut float64) {
	switch kind {
	case engine.EventMiniBonus:
		return 0.55, 1.25, 1.20
	case engine.EventFetch:
		return 0.45, 1.50, 1.35
	case engine.EventJackpot:
		return 0.10, 3.00, 1.05
	default:
		return 0, 1, 1
	}
}

// UsePowerUp consumes a one-time modifier atomically: a second use attempt
// fails with ErrPowerUpAlreadyUsed and changes nothing.
func (m *RoundManager) UsePowerUp(playerID int64, roundID string, kind models.PowerUpKind) (models.RoundView, error) {
	inst, err := m.instance(roundID)
	if err != nil {
		return models.RoundView{}, err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	r := inst.round
	if r.PlayerID != playerID {
		return models.RoundView{}, ErrNotRoundOwner
	}
	if r.State.Terminal() {
		return models.RoundView{}, ErrRoundNotActive
	}

	available, known := r.PowerUps[kind]
	if !known {
		return models.RoundView{}, ErrUnknownPowerUp
	}
	if !available {
		return models.RoundView{}, ErrPowerUpAlreadyUsed
	}
	r.PowerUps[kind] = false

	switch kind {
	case models.PowerUpShield:
		r.ShieldArmed = true
	case models.PowerUpAdrenaline:
		r.BonusMultiplier = round2(r.BonusMultiplier * 1.10)
	}

	r.EventsTriggered = append(r.EventsTriggered, fmt.Sprintf("powerup:%s@%d", kind, r.CurrentTick))
	m.pub.Publish(r.PlayerID, RoundEvent{
		Type:     EventPowerUpUsed,
		PlayerID: r.PlayerID,
		RoundID:  r.ID,
		Data:     map[string]interface{}{"kind": kind, "tick": r.CurrentTick},
	})
	m.saveLocked(r)

	return r.View(), nil
}

// CashOut resolves the round in the player's favor at the current tick. The
// tie-break with the hazard is structural: hazard resolution runs inside the
// tick's critical section, so a cashout either lands before it (and wins) or
// observes a terminal round (and is rejected). There is no coin flip.
func (m *RoundManager) CashOut(playerID int64, roundID string) (engine.Outcome, error) {
	inst, err := m.instance(roundID)
	if err != nil {
		return engine.Outcome{}, err
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	r := inst.round
	if r.PlayerID != playerID {
		return engine.Outcome{}, ErrNotRoundOwner
	}
	if r.State == models.RoundStateCashedOut {
		return engine.Outcome{}, ErrAlreadyCashedOut
	}
	if r.State.Terminal() {
		return engine.Outcome{}, ErrRoundNotActive
	}

	// The curve starts at tick 1 and outcome records use tick 0 for "no
	// cashout", so a cashout is only accepted once the round has ticked.
	if r.CurrentTick < 1 {
		return engine.Outcome{}, ErrCashoutTooEarly
	}

	// Walking away with the money declines any pending offer.
	if r.PendingChoice != nil {
		m.applyChoiceLocked(inst, models.ChoiceDecline, "cashout")
	}

	r.CashoutRequestedAtTick = r.CurrentTick

	final := round2(r.BaseMultiplier * r.BonusMultiplier)
	outcome := engine.Outcome{
		Result:          engine.ResultWin,
		Payout:          round2(r.BetAmount * final),
		FinalMultiplier: final,
		HazardTick:      m.hazardTickLocked(r),
		CashoutTick:     r.CurrentTick,
		EventsTriggered: append([]string(nil), r.EventsTriggered...),
	}

	m.finalizeLocked(inst, models.RoundStateCashedOut, outcome)
	return outcome, nil
}

// GetRoundState returns the read-only projection, live instance first, store
// fallback for archived rounds.
func (m *RoundManager) GetRoundState(roundID string) (models.RoundView, error) {
	m.mu.Lock()
	inst, ok := m.rounds[roundID]
	m.mu.Unlock()

	if ok {
		inst.mu.Lock()
		defer inst.mu.Unlock()
		return inst.round.View(), nil
	}

	round, err := m.store.GetRound(roundID)
	if err != nil {
		return models.RoundView{}, ErrRoundNotFound
	}
	return round.View(), nil
}

// finalizeLocked is the single place a round leaves Active. The outcome is
// final before the credit call; a credit failure is logged for the ledger
// side to retry and never recomputes the outcome.
func (m *RoundManager) finalizeLocked(inst *roundInstance, state models.RoundState, outcome engine.Outcome) {
	r := inst.round
	r.State = state
	r.Outcome = &outcome
	r.PendingChoice = nil
	r.EndedAt = time.Now()

	if err := m.ledger.Credit(r.PlayerID, outcome.Payout, r.ID); err != nil {
		m.log.Error("payout credit failed, ledger must retry",
			zap.String("round_id", r.ID),
			zap.Int64("player_id", r.PlayerID),
			zap.Float64("payout", outcome.Payout),
			zap.Error(err))
	}

	if err := m.store.CompleteRound(r); err != nil {
		m.log.Error("failed to archive round", zap.String("round_id", r.ID), zap.Error(err))
	}
	if err := m.store.ReleaseActiveRound(r.PlayerID); err != nil {
		m.log.Error("failed to release active-round slot", zap.Int64("player_id", r.PlayerID), zap.Error(err))
	}

	eventType := EventRoundLost
	switch state {
	case models.RoundStateCashedOut:
		eventType = EventCashedOut
	case models.RoundStateTimedOut:
		eventType = EventRoundTimedOut
	}
	m.pub.Publish(r.PlayerID, RoundEvent{
		Type:     eventType,
		PlayerID: r.PlayerID,
		RoundID:  r.ID,
		Data:     r.View(),
	})

	m.mu.Lock()
	delete(m.rounds, r.ID)
	m.mu.Unlock()

	close(inst.stop)
}

func (m *RoundManager) instance(roundID string) (*roundInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.rounds[roundID]
	if !ok {
		return nil, ErrRoundNotFound
	}
	return inst, nil
}

func (m *RoundManager) hazardTickLocked(r *models.Round) int {
	for _, ev := range r.Timeline {
		if ev.Kind == engine.EventHazard {
			return ev.Tick
		}
	}
	return 0
}

func (m *RoundManager) publishTickLocked(inst *roundInstance) {
	r := inst.round
	m.pub.Publish(r.PlayerID, RoundEvent{
		Type:     EventRoundTick,
		PlayerID: r.PlayerID,
		RoundID:  r.ID,
		Data: map[string]interface{}{
			"tick":             r.CurrentTick,
			"base_multiplier":  r.BaseMultiplier,
			"bonus_multiplier": r.BonusMultiplier,
			"pending_choice":   r.PendingChoice,
		},
	})
}

func (m *RoundManager) saveLocked(r *models.Round) {
	if err := m.store.SaveRound(r); err != nil {
		m.log.Error("failed to persist round snapshot", zap.String("round_id", r.ID), zap.Error(err))
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
