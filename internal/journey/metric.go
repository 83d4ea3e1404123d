package journey

import "github.com/EmileSonneveld/itinero-transit/internal/models"

// Metric is the cost a journey accumulates. Implementations return fresh
// values from Add/AddWalk; metrics attached to segments never mutate.
//
// Add receives the segment the chain grows from, so an implementation can
// tell a continued ride from a new boarding. The teleport flag marks steps
// synthesized by the metric guesser, which never count as boarding a
// vehicle.
type Metric interface {
	Zero() Metric
	Add(prev *Journey, c *models.Connection, teleport bool) Metric
	AddWalk(prev *Journey, seconds, meters uint32) Metric
}

// TransferMetric is the canonical metric: vehicles boarded, seconds spent
// travelling and meters walked.
type TransferMetric struct {
	VehiclesTaken   uint32
	TravelTime      uint64
	WalkingDistance uint32
}

// NewTransferMetric returns the zero transfer metric, used to seed genesis
// segments.
func NewTransferMetric() *TransferMetric {
	return &TransferMetric{}
}

func (m *TransferMetric) Zero() Metric {
	return &TransferMetric{}
}

func (m *TransferMetric) Add(prev *Journey, c *models.Connection, teleport bool) Metric {
	next := *m
	if teleport {
		return &next
	}
	next.TravelTime += uint64(c.TravelTime)
	if !prev.SameTrip(c.Trip) {
		next.VehiclesTaken++
	}
	return &next
}

func (m *TransferMetric) AddWalk(prev *Journey, seconds, meters uint32) Metric {
	next := *m
	next.TravelTime += uint64(seconds)
	next.WalkingDistance += meters
	return &next
}

// transferMetricOf unwraps the canonical metric the standard comparators
// operate on.
func transferMetricOf(j *Journey) *TransferMetric {
	return j.Metric.(*TransferMetric)
}
