package pcs

import (
	"time"

	"github.com/EmileSonneveld/itinero-transit/internal/journey"
	"github.com/EmileSonneveld/itinero-transit/internal/metrics"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

// CalculateEarliestArrival runs a forward connection scan and returns the
// journey with the earliest arrival at the destination when departing at or
// after the window start. It returns nil without error when the destination
// is unreachable inside the window.
func (q *Query) CalculateEarliestArrival() (*journey.Journey, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("eas").Observe(time.Since(start).Seconds())
	}()

	zero := q.profile.MetricZero.Zero()

	// best known journey into each stop, earliest arrival wins
	arrived := make(map[models.StopID]*journey.Journey)
	// the journey that is currently on board of each trip
	riding := make(map[models.InternalID]*journey.Journey)

	origin := journey.NewGenesis(q.from, q.start, zero.Zero())
	arrived[q.from] = origin
	q.walkForward(arrived, origin, q.from, q.start)

	e := q.db.Enumerator()
	e.MoveTo(q.start)
	var c models.Connection
	for e.MoveNext() {
		if q.deadline != nil && q.deadline() {
			break
		}
		if !e.CurrentConnection(&c) {
			continue
		}
		if c.DepartureTime > q.end {
			break
		}
		if best := arrived[q.to]; best != nil && c.DepartureTime > best.ArrivalTime() {
			// nothing departing later can still improve the destination
			break
		}
		metrics.ConnectionsScanned.WithLabelValues("eas").Inc()
		if !q.usable(&c) {
			continue
		}

		cc := c
		id := models.ConnectionID{Database: q.db.DatabaseID, Internal: e.Current()}
		tripID := models.TripID{Database: q.db.DatabaseID, Internal: cc.Trip}

		onBoard := riding[cc.Trip]
		if onBoard == nil && cc.CanBoard() {
			onBoard = q.boardFrom(arrived[cc.DepartureStop], &cc)
		}
		if onBoard == nil {
			continue
		}

		ridden := onBoard.Chain(id, cc.ArrivalTime(), cc.ArrivalStop, tripID, &cc)
		riding[cc.Trip] = ridden

		if !cc.CanAlight() {
			continue
		}
		if improveEarliest(arrived, cc.ArrivalStop, ridden) {
			q.walkForward(arrived, ridden, cc.ArrivalStop, cc.ArrivalTime())
		}
	}

	result := arrived[q.to]
	if result != nil {
		metrics.JourneysFound.WithLabelValues("eas").Inc()
	}
	return result, nil
}

// boardFrom decides whether the journey waiting at the departure stop can
// catch the connection. Stepping out of one vehicle into another costs the
// generator's same-stop changeover; starting fresh or arriving on foot does
// not.
func (q *Query) boardFrom(waiting *journey.Journey, c *models.Connection) *journey.Journey {
	if waiting == nil {
		return nil
	}
	if waiting.Tag == journey.TagGenesis {
		// the seed carries the window start, not a real presence; re-root it
		// at the moment this vehicle actually departs
		if waiting.ArrivalTime() <= c.DepartureTime {
			return journey.NewGenesis(waiting.Location, c.DepartureTime, q.profile.MetricZero.Zero())
		}
		return nil
	}
	if waiting.Tag != journey.TagConnection {
		if waiting.ArrivalTime() <= c.DepartureTime {
			return waiting
		}
		return nil
	}
	change, ok := q.profile.TransferGenerator.TimeBetween(c.DepartureStop, c.DepartureStop)
	if !ok || waiting.ArrivalTime()+uint64(change) > c.DepartureTime {
		return nil
	}
	return waiting.ChainWalk(waiting.ArrivalTime()+uint64(change), c.DepartureStop, change, 0)
}

// walkForward spreads a freshly improved arrival to every stop in walking
// range.
func (q *Query) walkForward(arrived map[models.StopID]*journey.Journey, j *journey.Journey, from models.StopID, at uint64) {
	gen := q.profile.TransferGenerator
	if gen.Range() <= 0 {
		return
	}
	distancer, _ := gen.(interface {
		DistanceBetween(from, to models.StopID) (float64, bool)
	})
	for to, seconds := range gen.TimesBetween(from, q.stops.IDs()) {
		if to == from {
			continue
		}
		var meters uint32
		if distancer != nil {
			if d, ok := distancer.DistanceBetween(from, to); ok {
				meters = uint32(d)
			}
		}
		improveEarliest(arrived, to, j.ChainWalk(at+uint64(seconds), to, seconds, meters))
	}
}

func improveEarliest(arrived map[models.StopID]*journey.Journey, stop models.StopID, j *journey.Journey) bool {
	if existing := arrived[stop]; existing != nil && existing.ArrivalTime() <= j.ArrivalTime() {
		return false
	}
	arrived[stop] = j
	return true
}
