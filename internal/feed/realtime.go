package feed

import (
	remoteGtfs "github.com/jamespfennell/gtfs"

	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

// ApplyRealtime folds a parsed GTFS-RT feed into the connections database.
// A stop time update at stop sequence n delays the departure of the
// connection leaving stop n and the arrival of the connection entering it.
// Rewrites go through AddOrUpdate, which migrates a connection between
// departure windows when the delay moves its departure second.
//
// Unknown trips and stop times are skipped silently: the realtime feed
// routinely references trips outside the materialized service day.
func (in *Ingester) ApplyRealtime(realtime *remoteGtfs.Realtime) int {
	if realtime == nil {
		return 0
	}
	updated := 0
	for i := range realtime.Trips {
		trip := &realtime.Trips[i]
		if _, known := in.TripInternalID(trip.ID.ID); !known {
			continue
		}
		for _, update := range trip.StopTimeUpdates {
			if update.StopSequence == nil {
				continue
			}
			seq := int(*update.StopSequence)
			if update.Departure != nil && update.Departure.Delay != nil {
				if in.rewriteConnection(trip.ID.ID, seq, func(c *models.Connection) bool {
					return applyDepartureDelay(c, int64(update.Departure.Delay.Seconds()))
				}) {
					updated++
				}
			}
			if update.Arrival != nil && update.Arrival.Delay != nil {
				if in.rewriteConnection(trip.ID.ID, seq-1, func(c *models.Connection) bool {
					return applyArrivalDelay(c, int64(update.Arrival.Delay.Seconds()))
				}) {
					updated++
				}
			}
		}
	}
	return updated
}

func (in *Ingester) rewriteConnection(tripID string, stopSequence int, rewrite func(*models.Connection) bool) bool {
	internal, ok := in.db.GetByGlobalID(in.ConnectionGlobalID(tripID, stopSequence))
	if !ok {
		return false
	}
	var c models.Connection
	if !in.db.Get(models.ConnectionID{Database: in.db.DatabaseID, Internal: internal}, &c) {
		return false
	}
	if !rewrite(&c) {
		return false
	}
	in.db.AddOrUpdate(&c)
	return true
}

// applyDepartureDelay moves the departure while keeping the actual arrival
// in place. The delay is measured against the scheduled departure still
// recoverable from the stored delay field.
func applyDepartureDelay(c *models.Connection, delay int64) bool {
	if delay < 0 || delay > int64(^uint16(0)) || uint16(delay) == c.DepartureDelay {
		return false
	}
	arrival := c.ArrivalTime()
	newDeparture := c.DepartureTime - uint64(c.DepartureDelay) + uint64(delay)
	if newDeparture > arrival || arrival-newDeparture > uint64(^uint16(0)) {
		return false
	}
	c.DepartureTime = newDeparture
	c.TravelTime = uint16(arrival - newDeparture)
	c.DepartureDelay = uint16(delay)
	return true
}

// applyArrivalDelay moves the arrival while keeping the departure in place.
func applyArrivalDelay(c *models.Connection, delay int64) bool {
	if delay < 0 || delay > int64(^uint16(0)) || uint16(delay) == c.ArrivalDelay {
		return false
	}
	scheduledArrival := c.ArrivalTime() - uint64(c.ArrivalDelay)
	newArrival := scheduledArrival + uint64(delay)
	if newArrival < c.DepartureTime || newArrival-c.DepartureTime > uint64(^uint16(0)) {
		return false
	}
	c.TravelTime = uint16(newArrival - c.DepartureTime)
	c.ArrivalDelay = uint16(delay)
	return true
}
