package pcs

import (
	"testing"

	"github.com/EmileSonneveld/itinero-transit/internal/journey"
	"github.com/EmileSonneveld/itinero-transit/internal/transfer"
)

func TestTeleportGuesserChecksOncePerTick(t *testing.T) {
	g := NewTeleportGuesser()
	a := journey.NewFrontier(journey.ProfileComparator{})
	b := journey.NewFrontier(journey.ProfileComparator{})

	if !g.ShouldBeChecked(a, 100) {
		t.Error("first check of a frontier must pass")
	}
	if g.ShouldBeChecked(a, 100) {
		t.Error("second check within the same tick must be suppressed")
	}
	if !g.ShouldBeChecked(b, 100) {
		t.Error("the per-tick state is per frontier")
	}
	if !g.ShouldBeChecked(a, 99) {
		t.Error("a new tick resets the per-frontier state")
	}
}

func TestTeleportContinuationIsOptimistic(t *testing.T) {
	n := newNetwork(t, "s0", "s1")
	n.add(t, "s0", "s1", t0930, 600, 1, 0)

	found, _, err := n.query("s0", "s1", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateAllJourneys()
	if err != nil {
		t.Fatalf("CalculateAllJourneys failed: %v", err)
	}
	if len(found) == 0 {
		t.Fatal("expected a journey to teleport")
	}

	g := NewTeleportGuesser()
	j := found[0]
	ported := g.LeastTheoreticalContinuation(j, n.ids["s0"], t0900)

	if ported.DepartureTime() != t0900 {
		t.Errorf("teleported journey departs at %d, want the clock %d", ported.DepartureTime(), t0900)
	}
	pm := ported.Metric.(*journey.TransferMetric)
	jm := j.Metric.(*journey.TransferMetric)
	if pm.VehiclesTaken != jm.VehiclesTaken || pm.TravelTime != jm.TravelTime {
		t.Errorf("teleporting changed the metric: %+v vs %+v", pm, jm)
	}
}
