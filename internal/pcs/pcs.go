package pcs

import (
	"time"

	"github.com/EmileSonneveld/itinero-transit/internal/journey"
	"github.com/EmileSonneveld/itinero-transit/internal/metrics"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

// CalculateAllJourneys runs the profiled connection scan and returns every
// Pareto-optimal journey from the origin to the destination inside the time
// frame, in frontier insertion order. The boolean reports whether the scan
// was cut short by the deadline. No journey at all is an empty slice, not an
// error.
func (q *Query) CalculateAllJourneys() ([]*journey.Journey, bool, error) {
	if err := q.validate(); err != nil {
		return nil, false, err
	}
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("pcs").Observe(time.Since(start).Seconds())
	}()

	s := &profileScan{
		q:             q,
		stopFrontiers: make(map[models.StopID]*journey.Frontier),
		tripFrontiers: make(map[models.InternalID]*journey.Frontier),
	}
	s.seed()
	s.run()

	var out []*journey.Journey
	if origin := s.stopFrontiers[q.from]; origin != nil {
		for _, j := range origin.Journeys() {
			if j.DepartureTime() >= q.start {
				out = append(out, j)
			}
		}
	}
	metrics.JourneysFound.WithLabelValues("pcs").Add(float64(len(out)))
	if s.truncated {
		metrics.QueriesTruncated.WithLabelValues("pcs").Inc()
	}
	return out, s.truncated, nil
}

// profileScan holds the per-stop profile frontiers and the per-trip
// continuation frontiers of one backward scan. All state is scope-local; a
// truncated scan needs no cleanup.
type profileScan struct {
	q *Query

	stopFrontiers map[models.StopID]*journey.Frontier
	tripFrontiers map[models.InternalID]*journey.Frontier
	targets       []models.StopID

	truncated bool
}

// seed plants the genesis entry at the destination. Its time is the window
// end; journeys that actually reach the destination re-root at their real
// arrival time.
func (s *profileScan) seed() {
	f := journey.NewFrontier(s.q.profile.ProfileComparator)
	f.TryAdd(journey.NewGenesis(s.q.to, s.q.end, s.q.profile.MetricZero.Zero()))
	s.stopFrontiers[s.q.to] = f
	s.targets = append(s.targets, s.q.to)
}

func (s *profileScan) run() {
	e := s.q.db.Enumerator()
	e.MoveTo(s.q.end)
	var c models.Connection
	for e.MovePrevious() {
		if s.q.deadline != nil && s.q.deadline() {
			s.truncated = true
			return
		}
		if !e.CurrentConnection(&c) {
			continue
		}
		if c.DepartureTime < s.q.start {
			return
		}
		metrics.ConnectionsScanned.WithLabelValues("pcs").Inc()
		if !s.q.usable(&c) {
			continue
		}
		s.scan(&c, models.ConnectionID{Database: s.q.db.DatabaseID, Internal: e.Current()}, e.CurrentTime())
	}
}

// scan processes one connection: it fuses the three continuation sources,
// keeps the non-dominated candidates and feeds them into the trip and stop
// frontiers.
func (s *profileScan) scan(c *models.Connection, id models.ConnectionID, clock uint64) {
	cc := *c
	tripID := models.TripID{Database: s.q.db.DatabaseID, Internal: cc.Trip}

	var candidates []*journey.Journey

	// riding c and staying on the vehicle
	if tf := s.tripFrontiers[cc.Trip]; tf != nil {
		for _, j := range tf.Journeys() {
			candidates = append(candidates, j.Chain(id, cc.DepartureTime, cc.DepartureStop, tripID, &cc))
		}
	}

	if cc.CanAlight() {
		// riding c straight to the destination
		if cc.ArrivalStop == s.q.to && cc.ArrivalTime() <= s.q.end {
			genesis := journey.NewGenesis(s.q.to, cc.ArrivalTime(), s.q.profile.MetricZero.Zero())
			candidates = append(candidates, genesis.Chain(id, cc.DepartureTime, cc.DepartureStop, tripID, &cc))
		}

		// riding c, then walking to a stop with known continuations
		candidates = append(candidates, s.walkCandidates(&cc, id, tripID)...)
	}

	candidates = s.reduce(candidates)
	if len(candidates) == 0 {
		return
	}

	tf := s.tripFrontiers[cc.Trip]
	if tf == nil {
		tf = journey.NewFrontier(s.q.profile.ParetoComparator)
		s.tripFrontiers[cc.Trip] = tf
	}
	for _, j := range candidates {
		tf.TryAdd(j)
	}

	if !cc.CanBoard() {
		return
	}
	f := s.stopFrontiers[cc.DepartureStop]
	if f == nil {
		f = journey.NewFrontier(s.q.profile.ProfileComparator)
		s.stopFrontiers[cc.DepartureStop] = f
		s.targets = append(s.targets, cc.DepartureStop)
	}
	changed := false
	for _, j := range candidates {
		if res, _ := f.TryAdd(j); res != journey.DominatedByExisting {
			changed = true
		}
	}
	if changed {
		s.maybePrune(f, cc.DepartureStop, clock)
	}
}

func (s *profileScan) walkCandidates(cc *models.Connection, id models.ConnectionID, tripID models.TripID) []*journey.Journey {
	gen := s.q.profile.TransferGenerator
	times := gen.TimesBetween(cc.ArrivalStop, s.targets)
	if len(times) == 0 {
		return nil
	}
	distancer, _ := gen.(interface {
		DistanceBetween(from, to models.StopID) (float64, bool)
	})

	var out []*journey.Journey
	for to, walkSeconds := range times {
		f := s.stopFrontiers[to]
		if f == nil {
			continue
		}
		arrivalAtTarget := cc.ArrivalTime() + uint64(walkSeconds)
		var meters uint32
		if distancer != nil {
			if d, ok := distancer.DistanceBetween(cc.ArrivalStop, to); ok {
				meters = uint32(d)
			}
		}
		for _, j := range f.Journeys() {
			if j.Tag == journey.TagGenesis && to == cc.ArrivalStop {
				// alighting right at the destination is the direct
				// candidate already
				continue
			}
			if j.DepartureTime() < arrivalAtTarget {
				continue
			}
			base := j
			if base.Tag == journey.TagGenesis {
				// a bare genesis carries the window bound, not a real
				// arrival; re-root it at the walk's arrival
				base = journey.NewGenesis(base.Location, arrivalAtTarget, s.q.profile.MetricZero.Zero())
			}
			walked := base.ChainWalk(cc.ArrivalTime(), cc.ArrivalStop, walkSeconds, meters)
			out = append(out, walked.Chain(id, cc.DepartureTime, cc.DepartureStop, tripID, cc))
		}
	}
	return out
}

// reduce keeps the candidates that survive mutual comparison under the
// profile comparator and the vehicle cap.
func (s *profileScan) reduce(candidates []*journey.Journey) []*journey.Journey {
	if len(candidates) == 0 {
		return nil
	}
	best := journey.NewFrontier(s.q.profile.ProfileComparator)
	for _, j := range candidates {
		if s.q.profile.MaxVehicles > 0 {
			if m, ok := j.Metric.(*journey.TransferMetric); ok && m.VehiclesTaken > s.q.profile.MaxVehicles {
				continue
			}
		}
		best.TryAdd(j)
	}
	return best.Journeys()
}

// maybePrune lets the guesser clean a stop frontier: entries whose
// optimistic completion towards the origin is already dominated by a known
// journey from the origin are removed. The origin's own frontier is never
// pruned.
func (s *profileScan) maybePrune(f *journey.Frontier, stop models.StopID, clock uint64) {
	g := s.q.profile.Guesser
	if g == nil || stop == s.q.from {
		return
	}
	origin := s.stopFrontiers[s.q.from]
	if origin == nil || origin.Len() == 0 {
		return
	}
	if !g.ShouldBeChecked(f, clock) {
		return
	}
	entries := append([]*journey.Journey(nil), f.Journeys()...)
	for _, entry := range entries {
		optimistic := g.LeastTheoreticalContinuation(entry, s.q.from, clock)
		for _, known := range origin.Journeys() {
			if s.q.profile.ProfileComparator.Compare(known, optimistic) == journey.Less {
				f.Remove(entry)
				break
			}
		}
	}
}
