package engine

import "sort"

// EventKind identifies what a timeline entry does when its tick is reached.
type EventKind string

const (
	EventHazard    EventKind = "hazard"
	EventMiniBonus EventKind = "mini_bonus"
	EventFetch     EventKind = "fetch_opportunity"
	EventJackpot   EventKind = "progressive_jackpot"
	EventSafeZone  EventKind = "safe_zone"
)

// SafeZoneTicks are fixed, seed-independent ticks that carry no hazard and
// host no bonus events.
var SafeZoneTicks = []int{10, 20}

// TickEvent is one entry of a round's event timeline.
type TickEvent struct {
	Tick     int       `json:"tick"`
	Kind     EventKind `json:"kind"`
	Resolved bool      `json:"resolved"`
}

// kindPriority orders events sharing a tick. Hazard goes last so nothing at
// the same tick is skipped when the round ends.
var kindPriority = map[EventKind]int{
	EventSafeZone:  0,
	EventMiniBonus: 1,
	EventFetch:     2,
	EventJackpot:   3,
	EventHazard:    4,
}

func isSafeZoneTick(t int) bool {
	for _, s := range SafeZoneTicks {
		if s == t {
			return true
		}
	}
	return false
}

// ScheduledHazardTick is the hazard tick the round will actually use: the raw
// derivation, pinned to the final tick when no tick qualifies naturally, and
// shifted off safe-zone ticks. Every round therefore carries exactly one
// hazard. The verifier recomputes the schedule through this same function.
func ScheduledHazardTick(pair SeedPair) int {
	t := DeriveHazardTick(pair.ServerSeed, pair.ClientSeed, pair.Nonce)
	if t == 0 {
		t = MaxTicks
	}
	for isSafeZoneTick(t) && t < MaxTicks {
		t++
	}
	return t
}

// BuildTimeline composes the full tick-indexed event timeline for a seed
// pair: the single hazard, capped bonus events, and the fixed safe zones,
// sorted by tick ascending with kind priority breaking ties. Bonus events
// never share the hazard tick; a decision window there would let a cashout
// land at the hazard tick itself, which the outcome rules treat as too late.
func BuildTimeline(pair SeedPair) []TickEvent {
	hazard := ScheduledHazardTick(pair)
	events := []TickEvent{
		{Tick: hazard, Kind: EventHazard},
	}
	for _, s := range SafeZoneTicks {
		events = append(events, TickEvent{Tick: s, Kind: EventSafeZone})
	}
	for _, kind := range []EventKind{EventMiniBonus, EventFetch, EventJackpot} {
		for _, t := range BonusTicks(pair, kind) {
			if t == hazard {
				continue
			}
			events = append(events, TickEvent{Tick: t, Kind: kind})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Tick != events[j].Tick {
			return events[i].Tick < events[j].Tick
		}
		return kindPriority[events[i].Kind] < kindPriority[events[j].Kind]
	})
	return events
}
