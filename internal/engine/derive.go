package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// Chain labels. The hazard chain is unlabelled so that the hazard draw is
// exactly hash(serverSeed:clientSeed:nonce) hashed forward, which is the form
// third-party verifiers are told to recompute.
const (
	labelMiniBonus = "mini_bonus"
	labelFetch     = "fetch_opportunity"
	labelJackpot   = "progressive_jackpot"
	labelChoice    = "choice"
)

// chainSeed computes H0 for a labelled hash chain.
func chainSeed(serverSeed, clientSeed string, nonce int64, label string) [32]byte {
	msg := fmt.Sprintf("%s:%s:%d", serverSeed, clientSeed, nonce)
	if label != "" {
		msg += ":" + label
	}
	return sha256.Sum256([]byte(msg))
}

// Rolls walks the labelled chain H(t) = sha256(H(t-1)) and maps the first
// 32 bits of each link to [0,1]. Index i holds the roll for tick i+1.
func Rolls(serverSeed, clientSeed string, nonce int64, label string) []float64 {
	h := chainSeed(serverSeed, clientSeed, nonce, label)
	out := make([]float64, MaxTicks)
	for i := 0; i < MaxTicks; i++ {
		h = sha256.Sum256(h[:])
		out[i] = float64(binary.BigEndian.Uint32(h[:4])) / float64(math.MaxUint32)
	}
	return out
}

// DeriveHazardTick returns the first tick whose roll falls strictly under the
// risk curve, or 0 when no tick within MaxTicks qualifies. Identical inputs
// always produce an identical result; fairness and auditability both hang on
// that property.
func DeriveHazardTick(serverSeed, clientSeed string, nonce int64) int {
	rolls := Rolls(serverSeed, clientSeed, nonce, "")
	for t := 1; t <= MaxTicks; t++ {
		if rolls[t-1] < RiskPerSecond(t) {
			return t
		}
	}
	return 0
}

// BonusTicks returns the capped set of ticks at which the given bonus kind
// fires, drawn from that kind's own chain against its per-tick chance.
// Safe-zone ticks never host bonus events.
func BonusTicks(pair SeedPair, kind EventKind) []int {
	label, chance, limit := bonusParams(kind)
	if label == "" {
		return nil
	}
	rolls := Rolls(pair.ServerSeed, pair.ClientSeed, pair.Nonce, label)
	var ticks []int
	for t := 1; t <= MaxTicks && len(ticks) < limit; t++ {
		if isSafeZoneTick(t) {
			continue
		}
		if rolls[t-1] < chance {
			ticks = append(ticks, t)
		}
	}
	return ticks
}

// ChoiceRoll is the seed-derived outcome of accepting the bonus event of the
// given kind at the given tick, so that a finished round's bonus results are
// recomputable from the revealed seeds plus the recorded choices.
func ChoiceRoll(pair SeedPair, kind EventKind, tick int) float64 {
	if tick < 1 || tick > MaxTicks {
		return 1.0
	}
	rolls := Rolls(pair.ServerSeed, pair.ClientSeed, pair.Nonce, labelChoice+":"+string(kind))
	return rolls[tick-1]
}

func bonusParams(kind EventKind) (label string, chance float64, limit int) {
	switch kind {
	case EventMiniBonus:
		return labelMiniBonus, 0.08, 2
	case EventFetch:
		return labelFetch, 0.05, 1
	case EventJackpot:
		return labelJackpot, 0.015, 1
	default:
		return "", 0, 0
	}
}
