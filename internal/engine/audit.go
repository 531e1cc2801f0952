package engine

import (
	"fmt"
	"strings"
)

// RoundResult is the terminal classification of a round.
type RoundResult string

const (
	ResultWin  RoundResult = "win"
	ResultLoss RoundResult = "loss"
)

// TriggerShielded marks an outcome whose hazard was neutralized by an
// immunity power-up; the consistency rules treat such rounds specially.
const TriggerShielded = "hazard_shielded"

// Outcome is the immutable record a round produces on terminal resolution.
// Tick fields use 0 for "not applicable" (ticks are 1-based).
type Outcome struct {
	Result          RoundResult `json:"result"`
	Payout          float64     `json:"payout"`
	FinalMultiplier float64     `json:"final_multiplier"`
	HazardTick      int         `json:"hazard_tick,omitempty"`
	CashoutTick     int         `json:"cashout_tick,omitempty"`
	EventsTriggered []string    `json:"events_triggered,omitempty"`
}

// Shielded reports whether the hazard was consumed by an immunity token.
func (o Outcome) Shielded() bool {
	for _, ev := range o.EventsTriggered {
		if strings.HasPrefix(ev, TriggerShielded) {
			return true
		}
	}
	return false
}

// AuditReport is a verification artifact, never game state.
type AuditReport struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

func (r *AuditReport) fail(format string, args ...interface{}) {
	r.IsValid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Audit independently recomputes a finished round from its revealed seeds and
// cross-checks the claimed outcome. It mutates nothing and can run at any
// time after round completion.
func Audit(serverSeed, serverSeedHash, clientSeed string, nonce int64, claimed Outcome) AuditReport {
	report := AuditReport{IsValid: true, Errors: []string{}}

	if got := HashSeed(serverSeed); got != serverSeedHash {
		report.fail("server seed does not match commitment: hash(serverSeed)=%s, committed=%s", got, serverSeedHash)
	}

	pair := SeedPair{ServerSeed: serverSeed, ClientSeed: clientSeed, Nonce: nonce}
	hazard := ScheduledHazardTick(pair)
	if claimed.HazardTick != hazard {
		report.fail("hazard tick mismatch: derived %d, claimed %d", hazard, claimed.HazardTick)
	}

	shielded := claimed.Shielded()
	switch {
	case claimed.CashoutTick > 0 && claimed.CashoutTick < hazard:
		if claimed.Result != ResultWin {
			report.fail("cashout at tick %d precedes hazard at tick %d but result is %s", claimed.CashoutTick, hazard, claimed.Result)
		}
	case claimed.CashoutTick > 0:
		if !shielded && claimed.Result != ResultLoss {
			report.fail("cashout at tick %d is not before hazard at tick %d but result is %s", claimed.CashoutTick, hazard, claimed.Result)
		}
		if shielded && claimed.Result != ResultWin {
			report.fail("shielded round cashed out at tick %d must be a win, result is %s", claimed.CashoutTick, claimed.Result)
		}
	default:
		if !shielded && claimed.Result != ResultLoss {
			report.fail("no cashout recorded and hazard at tick %d, but result is %s", hazard, claimed.Result)
		}
		if shielded && claimed.Result != ResultWin {
			report.fail("shielded round with no cashout must time out as a win, result is %s", claimed.Result)
		}
	}

	return report
}
