package feed

import (
	"testing"
	"time"

	remoteGtfs "github.com/jamespfennell/gtfs"

	"github.com/EmileSonneveld/itinero-transit/internal/cdb"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/stops"
)

func float64p(v float64) *float64 { return &v }
func uint32p(v uint32) *uint32    { return &v }
func durationp(v time.Duration) *time.Duration {
	return &v
}

// testStatic is a three-stop, one-trip bundle: A -> B -> C, departing A at
// 09:30 and reaching C at 10:00 with a five minute dwell at B.
func testStatic(t *testing.T) *remoteGtfs.Static {
	t.Helper()
	static := &remoteGtfs.Static{
		Stops: []remoteGtfs.Stop{
			{Id: "A", Latitude: float64p(51.00), Longitude: float64p(4.0)},
			{Id: "B", Latitude: float64p(51.01), Longitude: float64p(4.0)},
			{Id: "C", Latitude: float64p(51.02), Longitude: float64p(4.0)},
		},
	}
	static.Trips = []remoteGtfs.ScheduledTrip{
		{
			ID: "trip-1",
			StopTimes: []remoteGtfs.ScheduledStopTime{
				{
					Stop:          &static.Stops[0],
					ArrivalTime:   9*time.Hour + 30*time.Minute,
					DepartureTime: 9*time.Hour + 30*time.Minute,
					StopSequence:  1,
				},
				{
					Stop:          &static.Stops[1],
					ArrivalTime:   9*time.Hour + 40*time.Minute,
					DepartureTime: 9*time.Hour + 45*time.Minute,
					StopSequence:  2,
				},
				{
					Stop:          &static.Stops[2],
					ArrivalTime:   10 * time.Hour,
					DepartureTime: 10 * time.Hour,
					StopSequence:  3,
				},
			},
		},
	}
	return static
}

func testIngester(t *testing.T) (*Ingester, *cdb.ConnectionsDb, *stops.Store) {
	t.Helper()
	db := cdb.New(1)
	stopStore := stops.NewStore()
	return NewIngester("test", db, stopStore), db, stopStore
}

func TestIngestStatic(t *testing.T) {
	in, db, stopStore := testIngester(t)
	day := time.Date(2018, 12, 4, 0, 0, 0, 0, time.UTC)

	written, err := in.IngestStatic(testStatic(t), day)
	if err != nil {
		t.Fatalf("IngestStatic failed: %v", err)
	}
	if written != 2 {
		t.Fatalf("expected 2 connections from 3 stop times, got %d", written)
	}
	if stopStore.Count() != 3 {
		t.Errorf("expected 3 registered stops, got %d", stopStore.Count())
	}

	internal, ok := db.GetByGlobalID("test/trip-1/1")
	if !ok {
		t.Fatal("the first leg is missing from the database")
	}
	var leg models.Connection
	if !db.Get(models.ConnectionID{Database: 1, Internal: internal}, &leg) {
		t.Fatal("Get failed for the first leg")
	}

	wantDeparture := uint64(day.Add(9*time.Hour + 30*time.Minute).Unix())
	if leg.DepartureTime != wantDeparture {
		t.Errorf("first leg departs at %d, want %d", leg.DepartureTime, wantDeparture)
	}
	if leg.TravelTime != 600 {
		t.Errorf("first leg travel time = %d, want 600", leg.TravelTime)
	}

	second, ok := db.GetByGlobalID("test/trip-1/2")
	if !ok {
		t.Fatal("the second leg is missing from the database")
	}
	var leg2 models.Connection
	db.Get(models.ConnectionID{Database: 1, Internal: second}, &leg2)
	if leg2.DepartureTime != uint64(day.Add(9*time.Hour+45*time.Minute).Unix()) {
		t.Errorf("the dwell at B was dropped: second leg departs at %d", leg2.DepartureTime)
	}
	if leg.Trip != leg2.Trip {
		t.Errorf("both legs should ride the same internal trip, got %d and %d", leg.Trip, leg2.Trip)
	}
}

func TestIngestStaticIsIdempotent(t *testing.T) {
	in, db, _ := testIngester(t)
	day := time.Date(2018, 12, 4, 0, 0, 0, 0, time.UTC)

	if _, err := in.IngestStatic(testStatic(t), day); err != nil {
		t.Fatal(err)
	}
	firstCount := db.Count()
	if _, err := in.IngestStatic(testStatic(t), day); err != nil {
		t.Fatal(err)
	}
	if db.Count() != firstCount {
		t.Errorf("re-ingesting the same bundle grew the database: %d -> %d", firstCount, db.Count())
	}
}

func TestServiceActive(t *testing.T) {
	tuesday := time.Date(2018, 12, 4, 0, 0, 0, 0, time.UTC)
	service := &remoteGtfs.Service{
		Id:        "weekdays",
		Monday:    true,
		Tuesday:   true,
		Wednesday: true,
		Thursday:  true,
		Friday:    true,
		StartDate: tuesday.AddDate(0, -1, 0),
		EndDate:   tuesday.AddDate(0, 1, 0),
	}

	if !serviceActive(service, tuesday) {
		t.Error("a weekday service should run on Tuesday")
	}
	saturday := tuesday.AddDate(0, 0, 4)
	if serviceActive(service, saturday) {
		t.Error("a weekday service should not run on Saturday")
	}

	service.AddedDates = []time.Time{saturday}
	if !serviceActive(service, saturday) {
		t.Error("an added date overrides the weekday pattern")
	}

	service.RemovedDates = []time.Time{tuesday}
	if serviceActive(service, tuesday) {
		t.Error("a removed date overrides everything")
	}

	if serviceActive(service, tuesday.AddDate(0, 2, 0)) {
		t.Error("a day outside the service period should be inactive")
	}
}

func TestApplyRealtimeDelays(t *testing.T) {
	in, db, _ := testIngester(t)
	day := time.Date(2018, 12, 4, 0, 0, 0, 0, time.UTC)
	if _, err := in.IngestStatic(testStatic(t), day); err != nil {
		t.Fatal(err)
	}

	realtime := &remoteGtfs.Realtime{
		Trips: []remoteGtfs.Trip{
			{
				ID: remoteGtfs.TripID{ID: "trip-1"},
				StopTimeUpdates: []remoteGtfs.StopTimeUpdate{
					{
						StopSequence: uint32p(2),
						Arrival:      &remoteGtfs.StopTimeEvent{Delay: durationp(3 * time.Minute)},
						Departure:    &remoteGtfs.StopTimeEvent{Delay: durationp(2 * time.Minute)},
					},
				},
			},
		},
	}

	updated := in.ApplyRealtime(realtime)
	if updated != 2 {
		t.Fatalf("expected 2 rewritten connections, got %d", updated)
	}

	// the arrival delay lands on the leg into B
	first, _ := db.GetByGlobalID("test/trip-1/1")
	var leg1 models.Connection
	db.Get(models.ConnectionID{Database: 1, Internal: first}, &leg1)
	if leg1.ArrivalDelay != 180 {
		t.Errorf("first leg arrival delay = %d, want 180", leg1.ArrivalDelay)
	}
	wantArrival := uint64(day.Add(9*time.Hour + 43*time.Minute).Unix())
	if leg1.ArrivalTime() != wantArrival {
		t.Errorf("first leg arrives at %d, want %d", leg1.ArrivalTime(), wantArrival)
	}

	// the departure delay lands on the leg out of B, moving it between windows
	second, _ := db.GetByGlobalID("test/trip-1/2")
	var leg2 models.Connection
	db.Get(models.ConnectionID{Database: 1, Internal: second}, &leg2)
	wantDeparture := uint64(day.Add(9*time.Hour + 47*time.Minute).Unix())
	if leg2.DepartureTime != wantDeparture {
		t.Errorf("second leg departs at %d, want %d", leg2.DepartureTime, wantDeparture)
	}
	if leg2.DepartureDelay != 120 {
		t.Errorf("second leg departure delay = %d, want 120", leg2.DepartureDelay)
	}

	// the delayed departure must be visible through the departure index
	e := db.Enumerator()
	e.MoveTo(wantDeparture)
	if !e.MoveNext() || e.CurrentTime() != wantDeparture {
		t.Error("the delayed connection is not enumerable at its new departure second")
	}

	t.Run("UnknownTripsAreSkipped", func(t *testing.T) {
		unknown := &remoteGtfs.Realtime{
			Trips: []remoteGtfs.Trip{{ID: remoteGtfs.TripID{ID: "ghost"}}},
		}
		if got := in.ApplyRealtime(unknown); got != 0 {
			t.Errorf("updates for unknown trips must be ignored, got %d", got)
		}
	})
}
