package journey

import "github.com/EmileSonneveld/itinero-transit/internal/models"

// Tag marks what kind of step a segment represents.
type Tag uint8

const (
	// TagConnection is a regular vehicle movement.
	TagConnection Tag = iota
	// TagGenesis is the seed segment a journey grows from.
	TagGenesis
	// TagWalk is a transfer synthesized by a transfer generator.
	TagWalk
	// TagJoined fans out into two equivalent sub-journeys.
	TagJoined
)

// Journey is one segment of a persistent, singly linked itinerary chain.
// Journeys are built from the destination backwards (or the origin forwards)
// and are immutable once built; candidates share tails freely.
//
// A TagJoined segment carries a second predecessor in AlternativePrevious;
// the two branches describe equivalent sub-journeys and are fanned out again
// by Reverse.
type Journey struct {
	Location   models.StopID
	Time       uint64
	Trip       models.TripID
	Connection models.ConnectionID
	Tag        Tag

	// ConnectionData is the connection ridden by a TagConnection segment,
	// kept so the chain can be replayed under another metric.
	ConnectionData *models.Connection

	// WalkSeconds and WalkMeters describe a TagWalk segment.
	WalkSeconds uint32
	WalkMeters  uint32

	Metric              Metric
	Previous            *Journey
	AlternativePrevious *Journey

	root *Journey
}

// NewGenesis starts a journey at loc and t with the metric's zero value.
func NewGenesis(loc models.StopID, t uint64, m Metric) *Journey {
	j := &Journey{
		Location: loc,
		Time:     t,
		Tag:      TagGenesis,
		Metric:   m,
	}
	j.root = j
	return j
}

// Root returns the genesis segment the chain grew from.
func (j *Journey) Root() *Journey {
	return j.root
}

// DepartureTime is the time of the chronologically first segment. It works
// for both chain directions because time is monotone along the chain.
func (j *Journey) DepartureTime() uint64 {
	if j.Time < j.root.Time {
		return j.Time
	}
	return j.root.Time
}

// ArrivalTime is the time of the chronologically last segment.
func (j *Journey) ArrivalTime() uint64 {
	if j.Time > j.root.Time {
		return j.Time
	}
	return j.root.Time
}

// SameTrip reports whether this segment rides the given trip, which decides
// whether extending the chain with a connection of that trip counts as a new
// boarding. A joined segment answers for its Previous branch, whose metric it
// carries.
func (j *Journey) SameTrip(trip models.InternalID) bool {
	if j.Tag == TagJoined {
		return j.Previous.SameTrip(trip)
	}
	return j.Tag == TagConnection && j.Trip.Internal == trip
}

// Chain prepends (backward) or appends (forward) the given connection as a
// new head segment. The caller picks time and loc for the chain direction:
// the departure side when building backward, the arrival side when building
// forward.
func (j *Journey) Chain(id models.ConnectionID, time uint64, loc models.StopID, trip models.TripID, c *models.Connection) *Journey {
	return &Journey{
		Location:       loc,
		Time:           time,
		Trip:           trip,
		Connection:     id,
		Tag:            TagConnection,
		ConnectionData: c,
		Metric:         j.Metric.Add(j, c, false),
		Previous:       j,
		root:           j.root,
	}
}

// ChainWalk extends the chain with a transfer of the given duration and
// distance.
func (j *Journey) ChainWalk(time uint64, loc models.StopID, seconds, meters uint32) *Journey {
	return &Journey{
		Location:    loc,
		Time:        time,
		Tag:         TagWalk,
		WalkSeconds: seconds,
		WalkMeters:  meters,
		Metric:      j.Metric.AddWalk(j, seconds, meters),
		Previous:    j,
		root:        j.root,
	}
}

// ChainTeleport synthesizes a head segment at loc and time without touching
// vehicle count, walking distance or travel time. Only the metric guesser
// uses this to build optimistic lower bounds.
func (j *Journey) ChainTeleport(time uint64, loc models.StopID) *Journey {
	var none models.Connection
	return &Journey{
		Location: loc,
		Time:     time,
		Tag:      TagWalk,
		Metric:   j.Metric.Add(j, &none, true),
		Previous: j,
		root:     j.root,
	}
}

// Join merges two equivalent journeys into one entry whose previous pointers
// fan out into both chains. The heads must agree on location and time.
func (j *Journey) Join(other *Journey) *Journey {
	return &Journey{
		Location:            j.Location,
		Time:                j.Time,
		Trip:                j.Trip,
		Tag:                 TagJoined,
		Metric:              j.Metric,
		Previous:            j,
		AlternativePrevious: other,
		root:                j.root,
	}
}

// ToList flattens a single-chain journey from genesis to head. Joined
// segments are followed along Previous only; use Reverse to fan them out.
func (j *Journey) ToList() []*Journey {
	var n int
	for s := j; s != nil; s = s.Previous {
		n++
	}
	out := make([]*Journey, n)
	for s := j; s != nil; s = s.Previous {
		n--
		out[n] = s
	}
	return out
}

// Reverse rebuilds the itinerary with the opposite chain direction. Every
// joined segment doubles the output: the result holds one reversed
// single-chain journey per branch combination.
func (j *Journey) Reverse() []*Journey {
	chains := expand(j)
	out := make([]*Journey, 0, len(chains))
	for _, chain := range chains {
		out = append(out, rebuild(chain, j.Metric.Zero()))
	}
	return out
}

// MeasureWith replays the chain under a fresh metric, preserving structure,
// joins included.
func (j *Journey) MeasureWith(zero Metric) *Journey {
	return j.measure(zero)
}

func (j *Journey) measure(zero Metric) *Journey {
	switch j.Tag {
	case TagGenesis:
		return NewGenesis(j.Location, j.Time, zero.Zero())
	case TagJoined:
		return j.Previous.measure(zero).Join(j.AlternativePrevious.measure(zero))
	case TagWalk:
		return j.Previous.measure(zero).ChainWalk(j.Time, j.Location, j.WalkSeconds, j.WalkMeters)
	default:
		return j.Previous.measure(zero).Chain(j.Connection, j.Time, j.Location, j.Trip, j.ConnectionData)
	}
}

// Summarize collapses consecutive segments of the same trip into a single
// synthetic segment spanning the first departure and the last arrival. It
// operates on forward-built single-chain journeys, where each segment's
// time is the arrival at its location.
func (j *Journey) Summarize() *Journey {
	segments := j.ToList()
	out := NewGenesis(segments[0].Location, segments[0].Time, j.Metric.Zero())
	i := 1
	for i < len(segments) {
		s := segments[i]
		if s.Tag != TagConnection {
			if s.Tag == TagWalk {
				out = out.ChainWalk(s.Time, s.Location, s.WalkSeconds, s.WalkMeters)
			}
			i++
			continue
		}
		// swallow the whole same-trip run
		last := s
		for i+1 < len(segments) && segments[i+1].Tag == TagConnection && segments[i+1].Trip == s.Trip {
			i++
			last = segments[i]
		}
		span := *s.ConnectionData
		span.ArrivalStop = last.Location
		span.TravelTime = uint16(last.Time - span.DepartureTime)
		out = out.Chain(s.Connection, last.Time, last.Location, s.Trip, &span)
		i++
	}
	return out
}

// Equal reports structural equality of two chains: same tags, stops, times
// and connections all the way down, alternatives included.
func (j *Journey) Equal(other *Journey) bool {
	switch {
	case j == other:
		return true
	case j == nil || other == nil:
		return false
	}
	if j.Tag != other.Tag || j.Location != other.Location || j.Time != other.Time ||
		j.Connection != other.Connection || j.Trip != other.Trip {
		return false
	}
	if !j.Previous.Equal(other.Previous) {
		return false
	}
	return j.AlternativePrevious.Equal(other.AlternativePrevious)
}

// expand enumerates every simple chain hiding in a journey DAG. A joined
// segment contributes the chains of both branches; the join marker itself
// does not appear in the output.
func expand(j *Journey) [][]*Journey {
	if j == nil {
		return [][]*Journey{nil}
	}
	if j.Tag == TagJoined {
		chains := expand(j.Previous)
		return append(chains, expand(j.AlternativePrevious)...)
	}
	tails := expand(j.Previous)
	out := make([][]*Journey, 0, len(tails))
	for _, tail := range tails {
		chain := make([]*Journey, 0, len(tail)+1)
		chain = append(chain, tail...)
		chain = append(chain, j)
		out = append(out, chain)
	}
	return out
}

// rebuild replays a genesis-to-head chain in head-to-genesis order,
// producing the same itinerary built in the opposite direction.
func rebuild(chain []*Journey, zero Metric) *Journey {
	head := chain[len(chain)-1]
	out := NewGenesis(head.Location, head.Time, zero.Zero())
	for i := len(chain) - 2; i >= 0; i-- {
		s := chain[i]
		next := chain[i+1]
		switch next.Tag {
		case TagWalk:
			out = out.ChainWalk(s.Time, s.Location, next.WalkSeconds, next.WalkMeters)
		case TagConnection:
			out = out.Chain(next.Connection, s.Time, s.Location, next.Trip, next.ConnectionData)
		default:
			out = out.ChainWalk(s.Time, s.Location, 0, 0)
		}
	}
	return out
}
