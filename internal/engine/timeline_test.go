package engine_test

import (
	"testing"

	"rush-miniapp-backend/internal/engine"
)

func TestBuildTimelineInvariants(t *testing.T) {
	for nonce := int64(0); nonce < 300; nonce++ {
		pair := engine.SeedPair{ServerSeed: testServerSeed, ClientSeed: testClientSeed, Nonce: nonce}
		timeline := engine.BuildTimeline(pair)

		hazards := 0
		bonusCounts := map[engine.EventKind]int{}
		prevTick := 0
		for i, ev := range timeline {
			if ev.Tick < prevTick {
				t.Fatalf("nonce %d: timeline not sorted at index %d", nonce, i)
			}
			prevTick = ev.Tick

			switch ev.Kind {
			case engine.EventHazard:
				hazards++
				if ev.Tick == 10 || ev.Tick == 20 {
					t.Fatalf("nonce %d: hazard scheduled on safe-zone tick %d", nonce, ev.Tick)
				}
				// Hazard resolves after anything sharing its tick.
				for _, later := range timeline[i+1:] {
					if later.Tick == ev.Tick {
						t.Fatalf("nonce %d: %s scheduled after hazard on tick %d", nonce, later.Kind, ev.Tick)
					}
				}
			case engine.EventMiniBonus, engine.EventFetch, engine.EventJackpot:
				bonusCounts[ev.Kind]++
				if ev.Tick == engine.ScheduledHazardTick(pair) {
					t.Fatalf("nonce %d: %s scheduled on the hazard tick %d", nonce, ev.Kind, ev.Tick)
				}
			}
		}

		if hazards != 1 {
			t.Fatalf("nonce %d: expected exactly one hazard, got %d", nonce, hazards)
		}
		if bonusCounts[engine.EventMiniBonus] > 2 || bonusCounts[engine.EventFetch] > 1 || bonusCounts[engine.EventJackpot] > 1 {
			t.Fatalf("nonce %d: bonus caps exceeded: %v", nonce, bonusCounts)
		}
	}
}

func TestScheduledHazardPinnedToFinalTick(t *testing.T) {
	// Roughly 15% of seeds produce no natural hazard within the tick range;
	// those rounds get the hazard pinned to the final tick.
	found := false
	for nonce := int64(0); nonce < 2000; nonce++ {
		if engine.DeriveHazardTick(testServerSeed, testClientSeed, nonce) != 0 {
			continue
		}
		found = true
		pair := engine.SeedPair{ServerSeed: testServerSeed, ClientSeed: testClientSeed, Nonce: nonce}
		if got := engine.ScheduledHazardTick(pair); got != engine.MaxTicks {
			t.Fatalf("nonce %d: no-hazard draw should pin to tick %d, got %d", nonce, engine.MaxTicks, got)
		}
	}
	if !found {
		t.Log("no hazard-free draw in 2000 nonces; statistical check only")
	}
}

func TestScheduledHazardShiftedOffSafeZones(t *testing.T) {
	found := false
	for nonce := int64(0); nonce < 5000; nonce++ {
		raw := engine.DeriveHazardTick(testServerSeed, testClientSeed, nonce)
		if raw != 10 && raw != 20 {
			continue
		}
		found = true
		pair := engine.SeedPair{ServerSeed: testServerSeed, ClientSeed: testClientSeed, Nonce: nonce}
		if got := engine.ScheduledHazardTick(pair); got != raw+1 {
			t.Fatalf("nonce %d: hazard drawn on safe zone %d should shift to %d, got %d", nonce, raw, raw+1, got)
		}
	}
	if !found {
		t.Log("no safe-zone hazard draw in 5000 nonces; statistical check only")
	}
}
