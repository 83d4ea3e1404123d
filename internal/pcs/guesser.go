package pcs

import (
	"github.com/EmileSonneveld/itinero-transit/internal/journey"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

// Guesser gives the profile scan an optimistic lower bound on completing a
// partial journey towards the origin, so frontier entries that can no longer
// become optimal are dropped early.
type Guesser interface {
	// LeastTheoreticalContinuation returns a journey at least as good as
	// any real continuation of j that reaches origin no earlier than the
	// scan clock.
	LeastTheoreticalContinuation(j *journey.Journey, origin models.StopID, clock uint64) *journey.Journey
	// ShouldBeChecked rations the pruning work: it returns true at most
	// once per clock tick per frontier.
	ShouldBeChecked(f *journey.Frontier, clock uint64) bool
}

// TeleportGuesser assumes a partial journey could be completed by appearing
// at the origin at the current scan clock for free: no extra vehicle, no
// extra travel time. Every real continuation is worse, which makes the
// bound sound.
type TeleportGuesser struct {
	lastChecked map[*journey.Frontier]uint64
}

func NewTeleportGuesser() *TeleportGuesser {
	return &TeleportGuesser{lastChecked: make(map[*journey.Frontier]uint64)}
}

func (g *TeleportGuesser) LeastTheoreticalContinuation(j *journey.Journey, origin models.StopID, clock uint64) *journey.Journey {
	return j.ChainTeleport(clock, origin)
}

func (g *TeleportGuesser) ShouldBeChecked(f *journey.Frontier, clock uint64) bool {
	if last, ok := g.lastChecked[f]; ok && last == clock {
		return false
	}
	g.lastChecked[f] = clock
	return true
}
