package transfer

import (
	"fmt"
	"math"

	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/stops"
)

// Generator synthesizes the non-vehicle legs of a journey: walking between
// nearby stops and changing vehicles within one stop. Implementations are
// identified by a stable string so computed results can be cached across
// queries.
type Generator interface {
	// TimeBetween returns the duration in seconds to get from one stop to
	// the other, or false when the target is unreachable.
	TimeBetween(from, to models.StopID) (uint32, bool)
	// TimesBetween resolves many targets at once and returns only the
	// reachable ones.
	TimesBetween(from models.StopID, targets []models.StopID) map[models.StopID]uint32
	// Range is the maximum distance in meters this generator bridges,
	// used by spatial prefilters.
	Range() float64
	// Identifier is a stable cache key describing the generator and its
	// parameters.
	Identifier() string
}

// Distancer is implemented by generators that know the walked distance in
// meters, so the metric can account for it.
type Distancer interface {
	DistanceBetween(from, to models.StopID) (float64, bool)
}

// FixedGenerator allows changing vehicles within a single stop at a constant
// cost and nothing else.
type FixedGenerator struct {
	Seconds uint32
}

func NewFixedGenerator(seconds uint32) *FixedGenerator {
	return &FixedGenerator{Seconds: seconds}
}

func (g *FixedGenerator) TimeBetween(from, to models.StopID) (uint32, bool) {
	if from != to {
		return 0, false
	}
	return g.Seconds, true
}

func (g *FixedGenerator) TimesBetween(from models.StopID, targets []models.StopID) map[models.StopID]uint32 {
	out := make(map[models.StopID]uint32, 1)
	for _, to := range targets {
		if to == from {
			out[to] = g.Seconds
		}
	}
	return out
}

func (g *FixedGenerator) Range() float64 {
	return 0
}

func (g *FixedGenerator) Identifier() string {
	return fmt.Sprintf("fixed-%d", g.Seconds)
}

// CrowFlyGenerator walks the great-circle distance between stops at a
// constant speed, up to a maximum distance.
type CrowFlyGenerator struct {
	Stops     *stops.Store
	Speed     float64 // meters per second
	MaxMeters float64
}

func NewCrowFlyGenerator(store *stops.Store, speed, maxMeters float64) *CrowFlyGenerator {
	return &CrowFlyGenerator{Stops: store, Speed: speed, MaxMeters: maxMeters}
}

func (g *CrowFlyGenerator) TimeBetween(from, to models.StopID) (uint32, bool) {
	d, ok := g.DistanceBetween(from, to)
	if !ok {
		return 0, false
	}
	return uint32(math.Ceil(d / g.Speed)), true
}

func (g *CrowFlyGenerator) DistanceBetween(from, to models.StopID) (float64, bool) {
	d, ok := g.Stops.Distance(from, to)
	if !ok || d > g.MaxMeters {
		return 0, false
	}
	return d, true
}

func (g *CrowFlyGenerator) TimesBetween(from models.StopID, targets []models.StopID) map[models.StopID]uint32 {
	out := make(map[models.StopID]uint32, len(targets))
	for _, to := range targets {
		if seconds, ok := g.TimeBetween(from, to); ok {
			out[to] = seconds
		}
	}
	return out
}

func (g *CrowFlyGenerator) Range() float64 {
	return g.MaxMeters
}

func (g *CrowFlyGenerator) Identifier() string {
	return fmt.Sprintf("crowfly-%.0f-%.2f", g.MaxMeters, g.Speed)
}

// FirstLastMile dispatches to three generators so that the start and end of
// a journey may use different walking policies than transfers in the
// middle. The first and last mile stop sets are typically the stops within
// range of the queried origin and destination.
type FirstLastMile struct {
	First          Generator
	Middle         Generator
	Last           Generator
	FirstMileStops map[models.StopID]bool
	LastMileStops  map[models.StopID]bool
}

func (g *FirstLastMile) pick(from, to models.StopID) Generator {
	switch {
	case g.FirstMileStops[from]:
		return g.First
	case g.LastMileStops[to]:
		return g.Last
	default:
		return g.Middle
	}
}

func (g *FirstLastMile) TimeBetween(from, to models.StopID) (uint32, bool) {
	return g.pick(from, to).TimeBetween(from, to)
}

func (g *FirstLastMile) TimesBetween(from models.StopID, targets []models.StopID) map[models.StopID]uint32 {
	out := make(map[models.StopID]uint32, len(targets))
	for _, to := range targets {
		if seconds, ok := g.pick(from, to).TimeBetween(from, to); ok {
			out[to] = seconds
		}
	}
	return out
}

func (g *FirstLastMile) Range() float64 {
	r := g.First.Range()
	if m := g.Middle.Range(); m > r {
		r = m
	}
	if l := g.Last.Range(); l > r {
		r = l
	}
	return r
}

func (g *FirstLastMile) Identifier() string {
	return fmt.Sprintf("firstlastmile-%s-%s-%s", g.First.Identifier(), g.Middle.Identifier(), g.Last.Identifier())
}
