package pcs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/EmileSonneveld/itinero-transit/internal/cdb"
	"github.com/EmileSonneveld/itinero-transit/internal/journey"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/stops"
	"github.com/EmileSonneveld/itinero-transit/internal/transfer"
)

// 2018-12-04, times used throughout the scenario tests
const (
	t0900 = 1543914000
	t0930 = t0900 + 30*60
	t0940 = t0900 + 40*60
	t0945 = t0900 + 45*60
	t0955 = t0900 + 55*60
	t1000 = t0900 + 60*60
	t1030 = t0900 + 90*60
	t1040 = t0900 + 100*60
	t1100 = t0900 + 120*60
)

type network struct {
	db    *cdb.ConnectionsDb
	stops *stops.Store
	ids   map[string]models.StopID
}

// newNetwork registers the named stops 0.01 degrees of latitude apart,
// roughly 1.1 km; placeStop moves a stop to explicit coordinates afterwards.
func newNetwork(t *testing.T, names ...string) *network {
	t.Helper()
	n := &network{
		db:    cdb.New(1),
		stops: stops.NewStore(),
		ids:   make(map[string]models.StopID),
	}
	for i, name := range names {
		id := models.StopID{Database: 1, Tile: 1, Local: uint32(i)}
		n.stops.Add(stops.Stop{
			ID:        id,
			GlobalID:  name,
			Name:      name,
			Latitude:  50.0 + 0.01*float64(i),
			Longitude: 4.0,
		})
		n.ids[name] = id
	}
	return n
}

func (n *network) placeStop(t *testing.T, name string, lat, lon float64) {
	t.Helper()
	stop, ok := n.stops.FindByGlobalID(name)
	if !ok {
		t.Fatalf("unknown stop %q", name)
	}
	stop.Latitude, stop.Longitude = lat, lon
	n.stops.Add(stop)
}

func (n *network) add(t *testing.T, from, to string, dep uint64, travel uint16, trip models.InternalID, mode uint16) {
	t.Helper()
	n.db.AddOrUpdate(&models.Connection{
		DepartureStop: n.ids[from],
		ArrivalStop:   n.ids[to],
		DepartureTime: dep,
		TravelTime:    travel,
		Mode:          mode,
		GlobalID:      fmt.Sprintf("conn/%s/%s/%d/%d", from, to, dep, trip),
		Trip:          trip,
	})
}

func (n *network) query(from, to string, start, end uint64, gen transfer.Generator, guesser Guesser) *Query {
	profile := DefaultProfile(gen)
	profile.Guesser = guesser
	return NewQuery(n.db, n.stops).
		SelectProfile(profile).
		SelectStopsByGlobalID(from, to).
		SelectTimeFrame(start, end)
}

func metricOf(t *testing.T, j *journey.Journey) *journey.TransferMetric {
	t.Helper()
	m, ok := j.Metric.(*journey.TransferMetric)
	if !ok {
		t.Fatalf("journey carries metric %T", j.Metric)
	}
	return m
}

func TestSingleConnection(t *testing.T) {
	n := newNetwork(t, "s0", "s1")
	n.add(t, "s0", "s1", t0930, 600, 1, 0)

	found, truncated, err := n.query("s0", "s1", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateAllJourneys()
	if err != nil {
		t.Fatalf("CalculateAllJourneys failed: %v", err)
	}
	if truncated {
		t.Error("scan reported truncation without a deadline")
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one journey, got %d", len(found))
	}
	j := found[0]
	if j.DepartureTime() != t0930 || j.ArrivalTime() != t0940 {
		t.Errorf("journey spans (%d, %d), want (%d, %d)", j.DepartureTime(), j.ArrivalTime(), t0930, t0940)
	}
	m := metricOf(t, j)
	if m.TravelTime != 600 || m.VehiclesTaken != 1 {
		t.Errorf("metric = %+v, want 600 seconds on 1 vehicle", m)
	}
}

func TestTransferBetweenTrips(t *testing.T) {
	n := newNetwork(t, "s0", "s1", "s2")
	n.add(t, "s0", "s1", t0930, 600, 1, 0)
	n.add(t, "s1", "s2", t1030, 600, 2, 0)

	found, _, err := n.query("s0", "s2", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateAllJourneys()
	if err != nil {
		t.Fatalf("CalculateAllJourneys failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one journey, got %d", len(found))
	}
	m := metricOf(t, found[0])
	if m.VehiclesTaken != 2 {
		t.Errorf("expected 2 vehicles after a trip change, got %d", m.VehiclesTaken)
	}
	if found[0].DepartureTime() != t0930 || found[0].ArrivalTime() != t1040 {
		t.Errorf("journey spans (%d, %d), want (%d, %d)", found[0].DepartureTime(), found[0].ArrivalTime(), t0930, t1040)
	}
}

func TestSameTripContinuation(t *testing.T) {
	n := newNetwork(t, "s0", "s1", "s2")
	n.add(t, "s0", "s1", t0930, 600, 1, 0)
	n.add(t, "s1", "s2", t1030, 600, 1, 0)

	found, _, err := n.query("s0", "s2", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateAllJourneys()
	if err != nil {
		t.Fatalf("CalculateAllJourneys failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one journey, got %d", len(found))
	}
	m := metricOf(t, found[0])
	if m.VehiclesTaken != 1 {
		t.Errorf("staying on the trip should count 1 vehicle, got %d", m.VehiclesTaken)
	}
}

func TestParetoEquivalentDuplicates(t *testing.T) {
	n := newNetwork(t, "s0", "s1")
	// two distinct trips covering the same second
	n.add(t, "s0", "s1", t0930, 600, 1, 0)
	n.add(t, "s0", "s1", t0930, 600, 2, 0)

	found, _, err := n.query("s0", "s1", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateAllJourneys()
	if err != nil {
		t.Fatalf("CalculateAllJourneys failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("equivalent journeys should merge into one joined entry, got %d", len(found))
	}
	itineraries := found[0].Reverse()
	if len(itineraries) != 2 {
		t.Errorf("expected the joined entry to fan out into 2 itineraries, got %d", len(itineraries))
	}
}

func TestWalkTransfer(t *testing.T) {
	n := newNetwork(t, "s0", "s1a", "s1b", "s2")
	// s1a and s1b roughly 111 meters apart, everything else far away
	n.placeStop(t, "s1a", 51.0, 4.0)
	n.placeStop(t, "s1b", 51.001, 4.0)
	n.placeStop(t, "s0", 50.0, 4.0)
	n.placeStop(t, "s2", 52.0, 4.0)

	n.add(t, "s0", "s1a", t0930, 600, 1, 0)
	n.add(t, "s1b", "s2", t1000, 600, 2, 0)

	walker := transfer.NewCrowFlyGenerator(n.stops, 1.0, 200)
	found, _, err := n.query("s0", "s2", t0900, t1100, walker, nil).CalculateAllJourneys()
	if err != nil {
		t.Fatalf("CalculateAllJourneys failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected one walked transfer journey, got %d", len(found))
	}
	m := metricOf(t, found[0])
	if m.VehiclesTaken != 2 {
		t.Errorf("expected 2 vehicles, got %d", m.VehiclesTaken)
	}
	if m.WalkingDistance < 100 || m.WalkingDistance > 130 {
		t.Errorf("expected roughly 111 meters walked, got %d", m.WalkingDistance)
	}
}

func TestGuesserDoesNotChangeResults(t *testing.T) {
	build := map[string]func(t *testing.T) (*network, string, string){
		"SingleConnection": func(t *testing.T) (*network, string, string) {
			n := newNetwork(t, "s0", "s1")
			n.add(t, "s0", "s1", t0930, 600, 1, 0)
			return n, "s0", "s1"
		},
		"Transfer": func(t *testing.T) (*network, string, string) {
			n := newNetwork(t, "s0", "s1", "s2")
			n.add(t, "s0", "s1", t0930, 600, 1, 0)
			n.add(t, "s1", "s2", t1030, 600, 2, 0)
			return n, "s0", "s2"
		},
		"SameTrip": func(t *testing.T) (*network, string, string) {
			n := newNetwork(t, "s0", "s1", "s2")
			n.add(t, "s0", "s1", t0930, 600, 1, 0)
			n.add(t, "s1", "s2", t1030, 600, 1, 0)
			return n, "s0", "s2"
		},
		"Duplicates": func(t *testing.T) (*network, string, string) {
			n := newNetwork(t, "s0", "s1")
			n.add(t, "s0", "s1", t0930, 600, 1, 0)
			n.add(t, "s0", "s1", t0930, 600, 2, 0)
			return n, "s0", "s1"
		},
		"ManyAlternatives": func(t *testing.T) (*network, string, string) {
			n := newNetwork(t, "s0", "s1", "s2")
			n.add(t, "s0", "s2", t0900+300, 3600, 9, 0)
			n.add(t, "s0", "s1", t0930, 600, 1, 0)
			n.add(t, "s1", "s2", t0945, 600, 2, 0)
			n.add(t, "s0", "s1", t1000, 600, 3, 0)
			n.add(t, "s1", "s2", t1030, 600, 4, 0)
			return n, "s0", "s2"
		},
	}

	for name, setup := range build {
		t.Run(name, func(t *testing.T) {
			n, from, to := setup(t)

			plain, _, err := n.query(from, to, t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateAllJourneys()
			if err != nil {
				t.Fatalf("scan without guesser failed: %v", err)
			}
			guessed, _, err := n.query(from, to, t0900, t1100, transfer.NewFixedGenerator(0), NewTeleportGuesser()).CalculateAllJourneys()
			if err != nil {
				t.Fatalf("scan with guesser failed: %v", err)
			}

			if got, want := signatures(t, guessed), signatures(t, plain); !sameSignatures(got, want) {
				t.Errorf("guesser changed the result set: %v vs %v", got, want)
			}
		})
	}
}

func signatures(t *testing.T, journeys []*journey.Journey) map[string]bool {
	t.Helper()
	out := make(map[string]bool, len(journeys))
	for _, j := range journeys {
		m := metricOf(t, j)
		out[fmt.Sprintf("%d-%d-%d", j.DepartureTime(), j.ArrivalTime(), m.VehiclesTaken)] = true
	}
	return out
}

func sameSignatures(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func TestResultIsParetoSet(t *testing.T) {
	n := newNetwork(t, "s0", "s1", "s2")
	// direct but slow, against a faster two-leg alternative
	n.add(t, "s0", "s2", t0900, 3600, 9, 0)
	n.add(t, "s0", "s1", t0930, 600, 1, 0)
	n.add(t, "s1", "s2", t0945, 600, 2, 0)

	found, _, err := n.query("s0", "s2", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateAllJourneys()
	if err != nil {
		t.Fatalf("CalculateAllJourneys failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected the tradeoff to keep both journeys, got %d", len(found))
	}

	cmp := journey.ProfileComparator{}
	for i, a := range found {
		for j, b := range found {
			if i != j && cmp.Compare(a, b) == journey.Less {
				t.Errorf("returned journey %d dominates journey %d", i, j)
			}
		}
	}
}

func TestModeBits(t *testing.T) {
	tests := []struct {
		name string
		mode uint16
	}{
		{"Cancelled", models.ModeCancelled},
		{"BoardOnly", models.ModeBoardOnly},
		{"AlightOnly", models.ModeAlightOnly},
		{"Neither", models.ModeNeither},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newNetwork(t, "s0", "s1")
			n.add(t, "s0", "s1", t0930, 600, 1, tt.mode)

			found, _, err := n.query("s0", "s1", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateAllJourneys()
			if err != nil {
				t.Fatalf("CalculateAllJourneys failed: %v", err)
			}
			if len(found) != 0 {
				t.Errorf("a %s connection must not produce a journey on its own", tt.name)
			}
		})
	}
}

func TestConnectionFilter(t *testing.T) {
	n := newNetwork(t, "s0", "s1")
	n.add(t, "s0", "s1", t0930, 600, 1, 0)

	q := n.query("s0", "s1", t0900, t1100, transfer.NewFixedGenerator(0), nil).
		WithConnectionFilter(func(c *models.Connection) bool { return c.Trip != 1 })
	found, _, err := q.CalculateAllJourneys()
	if err != nil {
		t.Fatalf("CalculateAllJourneys failed: %v", err)
	}
	if len(found) != 0 {
		t.Error("the connection filter was ignored")
	}
}

func TestDeadlineTruncates(t *testing.T) {
	n := newNetwork(t, "s0", "s1")
	n.add(t, "s0", "s1", t0930, 600, 1, 0)

	q := n.query("s0", "s1", t0900, t1100, transfer.NewFixedGenerator(0), nil).
		WithDeadline(func() bool { return true })
	found, truncated, err := q.CalculateAllJourneys()
	if err != nil {
		t.Fatalf("CalculateAllJourneys failed: %v", err)
	}
	if !truncated {
		t.Error("an expired deadline must be reported as truncation")
	}
	if len(found) != 0 {
		t.Errorf("expected the truncated scan to return nothing, got %d journeys", len(found))
	}
}

func TestConfigErrors(t *testing.T) {
	n := newNetwork(t, "s0", "s1")
	n.add(t, "s0", "s1", t0930, 600, 1, 0)
	gen := transfer.NewFixedGenerator(0)

	t.Run("InvertedTimeFrame", func(t *testing.T) {
		_, _, err := n.query("s0", "s1", t1100, t0900, gen, nil).CalculateAllJourneys()
		if !errors.Is(err, ErrConfig) {
			t.Errorf("expected ErrConfig, got %v", err)
		}
	})

	t.Run("UnknownStop", func(t *testing.T) {
		_, _, err := n.query("s0", "nowhere", t0900, t1100, gen, nil).CalculateAllJourneys()
		if !errors.Is(err, ErrConfig) {
			t.Errorf("expected ErrConfig, got %v", err)
		}
	})

	t.Run("NoProfile", func(t *testing.T) {
		_, _, err := NewQuery(n.db, n.stops).
			SelectStopsByGlobalID("s0", "s1").
			SelectTimeFrame(t0900, t1100).
			CalculateAllJourneys()
		if !errors.Is(err, ErrConfig) {
			t.Errorf("expected ErrConfig, got %v", err)
		}
	})

	t.Run("ErrorsFailBeforeScanning", func(t *testing.T) {
		if _, err := n.query("s0", "s1", t1100, t0900, gen, nil).CalculateEarliestArrival(); !errors.Is(err, ErrConfig) {
			t.Errorf("expected ErrConfig from the earliest-arrival scan, got %v", err)
		}
		if _, err := n.query("s0", "s1", t1100, t0900, gen, nil).CalculateLatestDeparture(); !errors.Is(err, ErrConfig) {
			t.Errorf("expected ErrConfig from the latest-departure scan, got %v", err)
		}
	})
}

func TestEarliestArrival(t *testing.T) {
	n := newNetwork(t, "s0", "s1", "s2")
	n.add(t, "s0", "s1", t0930, 600, 1, 0)
	n.add(t, "s1", "s2", t1030, 600, 2, 0)
	// a later departure that would arrive later
	n.add(t, "s0", "s1", t1000, 600, 3, 0)

	j, err := n.query("s0", "s2", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateEarliestArrival()
	if err != nil {
		t.Fatalf("CalculateEarliestArrival failed: %v", err)
	}
	if j == nil {
		t.Fatal("expected a journey")
	}
	if j.ArrivalTime() != t1040 {
		t.Errorf("earliest arrival = %d, want %d", j.ArrivalTime(), t1040)
	}
	if m := metricOf(t, j); m.VehiclesTaken != 2 {
		t.Errorf("expected 2 vehicles, got %d", m.VehiclesTaken)
	}

	t.Run("Unreachable", func(t *testing.T) {
		j, err := n.query("s2", "s0", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateEarliestArrival()
		if err != nil {
			t.Fatalf("CalculateEarliestArrival failed: %v", err)
		}
		if j != nil {
			t.Errorf("expected no journey in the wrong direction, got one arriving %d", j.ArrivalTime())
		}
	})
}

func TestLatestDeparture(t *testing.T) {
	n := newNetwork(t, "s0", "s1")
	n.add(t, "s0", "s1", t0930, 600, 1, 0)
	n.add(t, "s0", "s1", t1000, 600, 2, 0)

	j, err := n.query("s0", "s1", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateLatestDeparture()
	if err != nil {
		t.Fatalf("CalculateLatestDeparture failed: %v", err)
	}
	if j == nil {
		t.Fatal("expected a journey")
	}
	if j.DepartureTime() != t1000 {
		t.Errorf("latest departure = %d, want %d", j.DepartureTime(), t1000)
	}

	t.Run("Unreachable", func(t *testing.T) {
		j, err := n.query("s1", "s0", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateLatestDeparture()
		if err != nil {
			t.Fatalf("CalculateLatestDeparture failed: %v", err)
		}
		if j != nil {
			t.Error("expected no journey in the wrong direction")
		}
	})
}

func TestResultsRespectTimeFrame(t *testing.T) {
	n := newNetwork(t, "s0", "s1")
	n.add(t, "s0", "s1", t0900-600, 600, 1, 0) // departs before the frame
	n.add(t, "s0", "s1", t0930, 600, 2, 0)
	n.add(t, "s0", "s1", t1040, 7200, 3, 0) // arrives after the frame

	found, _, err := n.query("s0", "s1", t0900, t1100, transfer.NewFixedGenerator(0), nil).CalculateAllJourneys()
	if err != nil {
		t.Fatalf("CalculateAllJourneys failed: %v", err)
	}
	for _, j := range found {
		if j.DepartureTime() < t0900 {
			t.Errorf("journey departs at %d, before the window start", j.DepartureTime())
		}
		if j.ArrivalTime() > t1100 {
			t.Errorf("journey arrives at %d, after the window end", j.ArrivalTime())
		}
	}
	if len(found) != 1 {
		t.Errorf("expected only the in-window journey, got %d", len(found))
	}
}
