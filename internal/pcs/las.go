package pcs

import (
	"time"

	"github.com/EmileSonneveld/itinero-transit/internal/journey"
	"github.com/EmileSonneveld/itinero-transit/internal/metrics"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

// CalculateLatestDeparture runs a backward connection scan and returns the
// journey departing as late as possible while still reaching the destination
// by the window end. It returns nil without error when no such journey
// exists. The result is a backward-built chain; Reverse() turns it into a
// forward itinerary.
func (q *Query) CalculateLatestDeparture() (*journey.Journey, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("las").Observe(time.Since(start).Seconds())
	}()

	zero := q.profile.MetricZero.Zero()

	// best known journey out of each stop, latest departure wins
	departing := make(map[models.StopID]*journey.Journey)
	// the continuation of each trip towards the destination
	riding := make(map[models.InternalID]*journey.Journey)

	target := journey.NewGenesis(q.to, q.end, zero.Zero())
	departing[q.to] = target
	q.walkBackward(departing, target, q.to, q.end)

	e := q.db.Enumerator()
	e.MoveTo(q.end)
	var c models.Connection
	for e.MovePrevious() {
		if q.deadline != nil && q.deadline() {
			break
		}
		if !e.CurrentConnection(&c) {
			continue
		}
		if c.DepartureTime < q.start {
			break
		}
		if best := departing[q.from]; best != nil && c.DepartureTime < best.DepartureTime() {
			// nothing departing earlier can still improve the origin
			break
		}
		metrics.ConnectionsScanned.WithLabelValues("las").Inc()
		if !q.usable(&c) {
			continue
		}

		cc := c
		id := models.ConnectionID{Database: q.db.DatabaseID, Internal: e.Current()}
		tripID := models.TripID{Database: q.db.DatabaseID, Internal: cc.Trip}

		continuation := riding[cc.Trip]
		if continuation == nil && cc.CanAlight() {
			continuation = q.alightInto(departing[cc.ArrivalStop], &cc)
		}
		if continuation == nil {
			continue
		}

		ridden := continuation.Chain(id, cc.DepartureTime, cc.DepartureStop, tripID, &cc)
		riding[cc.Trip] = ridden

		if !cc.CanBoard() {
			continue
		}
		if improveLatest(departing, cc.DepartureStop, ridden) {
			q.walkBackward(departing, ridden, cc.DepartureStop, cc.DepartureTime)
		}
	}

	result := departing[q.from]
	if result != nil {
		metrics.JourneysFound.WithLabelValues("las").Inc()
	}
	return result, nil
}

// alightInto decides whether leaving the vehicle at the arrival stop still
// catches the continuation known there. Changing into another vehicle costs
// the same-stop changeover; reaching a genesis or a walk leg does not.
func (q *Query) alightInto(continuation *journey.Journey, c *models.Connection) *journey.Journey {
	if continuation == nil {
		return nil
	}
	if continuation.Tag == journey.TagGenesis {
		// the seed carries the window bound, not a real arrival; re-root it
		// at the moment the vehicle actually reaches the destination
		if continuation.DepartureTime() >= c.ArrivalTime() {
			return journey.NewGenesis(continuation.Location, c.ArrivalTime(), q.profile.MetricZero.Zero())
		}
		return nil
	}
	if continuation.Tag != journey.TagConnection {
		if continuation.DepartureTime() >= c.ArrivalTime() {
			return continuation
		}
		return nil
	}
	change, ok := q.profile.TransferGenerator.TimeBetween(c.ArrivalStop, c.ArrivalStop)
	if !ok || continuation.DepartureTime() < c.ArrivalTime()+uint64(change) {
		return nil
	}
	return continuation.ChainWalk(c.ArrivalTime(), c.ArrivalStop, change, 0)
}

// walkBackward spreads a freshly improved departure to every stop that can
// walk into it.
func (q *Query) walkBackward(departing map[models.StopID]*journey.Journey, j *journey.Journey, to models.StopID, at uint64) {
	gen := q.profile.TransferGenerator
	if gen.Range() <= 0 {
		return
	}
	distancer, _ := gen.(interface {
		DistanceBetween(from, to models.StopID) (float64, bool)
	})
	for _, from := range q.stops.IDs() {
		if from == to {
			continue
		}
		seconds, ok := gen.TimeBetween(from, to)
		if !ok || uint64(seconds) > at {
			continue
		}
		var meters uint32
		if distancer != nil {
			if d, ok := distancer.DistanceBetween(from, to); ok {
				meters = uint32(d)
			}
		}
		improveLatest(departing, from, j.ChainWalk(at-uint64(seconds), from, seconds, meters))
	}
}

func improveLatest(departing map[models.StopID]*journey.Journey, stop models.StopID, j *journey.Journey) bool {
	if existing := departing[stop]; existing != nil && existing.DepartureTime() >= j.DepartureTime() {
		return false
	}
	departing[stop] = j
	return true
}
