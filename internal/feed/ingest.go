package feed

import (
	"fmt"
	"time"

	"github.com/golang/geo/s2"
	remoteGtfs "github.com/jamespfennell/gtfs"

	"github.com/EmileSonneveld/itinero-transit/internal/cdb"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/stops"
)

// tileLevel is the s2 cell level stop ids are clustered on. The journey core
// treats the tile as opaque; it only matters that nearby stops share one.
const tileLevel = 14

// Ingester flattens a parsed GTFS static bundle into connections and stops.
// It keeps the feed-id registries needed to hand out stable internal ids
// across repeated ingestion runs of the same feed.
type Ingester struct {
	feedName string
	db       *cdb.ConnectionsDb
	stops    *stops.Store

	tripIDs     map[string]models.InternalID
	nextTripID  models.InternalID
	nextLocalID uint32
}

func NewIngester(feedName string, db *cdb.ConnectionsDb, stopStore *stops.Store) *Ingester {
	return &Ingester{
		feedName: feedName,
		db:       db,
		stops:    stopStore,
		tripIDs:  make(map[string]models.InternalID),
	}
}

// IngestStatic materializes every trip active on the given service day and
// writes the resulting connections through AddOrUpdate. It returns the
// number of connections written.
func (in *Ingester) IngestStatic(static *remoteGtfs.Static, serviceDay time.Time) (int, error) {
	if static == nil {
		return 0, fmt.Errorf("no static data to ingest")
	}
	day := time.Date(serviceDay.Year(), serviceDay.Month(), serviceDay.Day(), 0, 0, 0, 0, time.UTC)

	for i := range static.Stops {
		in.registerStop(&static.Stops[i])
	}

	written := 0
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Service != nil && !serviceActive(trip.Service, day) {
			continue
		}
		written += in.ingestTrip(trip, day)
	}
	return written, nil
}

func (in *Ingester) ingestTrip(trip *remoteGtfs.ScheduledTrip, day time.Time) int {
	tripID := in.tripID(trip.ID)
	written := 0
	for i := 0; i+1 < len(trip.StopTimes); i++ {
		from := &trip.StopTimes[i]
		to := &trip.StopTimes[i+1]
		if from.Stop == nil || to.Stop == nil {
			continue
		}
		fromStop, okFrom := in.stops.FindByGlobalID(in.globalStopID(from.Stop.Id))
		toStop, okTo := in.stops.FindByGlobalID(in.globalStopID(to.Stop.Id))
		if !okFrom || !okTo {
			continue
		}
		departure := day.Add(from.DepartureTime).Unix()
		arrival := day.Add(to.ArrivalTime).Unix()
		if arrival < departure {
			continue
		}
		travel := arrival - departure
		if travel > int64(^uint16(0)) {
			continue
		}
		c := models.Connection{
			DepartureStop: fromStop.ID,
			ArrivalStop:   toStop.ID,
			DepartureTime: uint64(departure),
			TravelTime:    uint16(travel),
			GlobalID:      in.ConnectionGlobalID(trip.ID, from.StopSequence),
			Trip:          tripID,
		}
		in.db.AddOrUpdate(&c)
		written++
	}
	return written
}

// ConnectionGlobalID is the stable feed-scoped identifier of one departure
// of one trip. Realtime updates resolve connections through it.
func (in *Ingester) ConnectionGlobalID(tripID string, stopSequence int) string {
	return fmt.Sprintf("%s/%s/%d", in.feedName, tripID, stopSequence)
}

func (in *Ingester) globalStopID(stopID string) string {
	return in.feedName + "/" + stopID
}

// TripInternalID resolves a feed trip identifier to the internal trip id
// assigned during ingestion.
func (in *Ingester) TripInternalID(tripID string) (models.InternalID, bool) {
	id, ok := in.tripIDs[tripID]
	return id, ok
}

func (in *Ingester) tripID(feedTripID string) models.InternalID {
	if id, ok := in.tripIDs[feedTripID]; ok {
		return id
	}
	id := in.nextTripID
	in.nextTripID++
	in.tripIDs[feedTripID] = id
	return id
}

func (in *Ingester) registerStop(stop *remoteGtfs.Stop) {
	if stop.Latitude == nil || stop.Longitude == nil {
		return
	}
	globalID := in.globalStopID(stop.Id)
	if _, ok := in.stops.FindByGlobalID(globalID); ok {
		return
	}
	lat, lon := *stop.Latitude, *stop.Longitude
	cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).Parent(tileLevel)
	name := stop.Id
	if stop.Name != "" {
		name = stop.Name
	}
	local := in.nextLocalID
	in.nextLocalID++
	in.stops.Add(stops.Stop{
		ID: models.StopID{
			Database: in.db.DatabaseID,
			Tile:     uint32(uint64(cell) >> 32),
			Local:    local,
		},
		GlobalID:  globalID,
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
	})
}

// serviceActive applies the calendar rules: removed dates beat added dates
// beat the weekday pattern inside the service period.
func serviceActive(service *remoteGtfs.Service, day time.Time) bool {
	for _, removed := range service.RemovedDates {
		if sameDay(removed, day) {
			return false
		}
	}
	for _, added := range service.AddedDates {
		if sameDay(added, day) {
			return true
		}
	}
	if day.Before(service.StartDate) || day.After(service.EndDate) {
		return false
	}
	switch day.Weekday() {
	case time.Monday:
		return service.Monday
	case time.Tuesday:
		return service.Tuesday
	case time.Wednesday:
		return service.Wednesday
	case time.Thursday:
		return service.Thursday
	case time.Friday:
		return service.Friday
	case time.Saturday:
		return service.Saturday
	default:
		return service.Sunday
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
