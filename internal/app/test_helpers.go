package app

import (
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/EmileSonneveld/itinero-transit/internal/config"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/stops"
)

// newTestApplication wires an Application around an in-memory network:
// three stops in a row, one connection s0->s1 at 09:30 and a connecting
// trip s1->s2 at 10:30 on 2018-12-04.
func newTestApplication(t *testing.T) *Application {
	t.Helper()

	cfg := config.NewConfig(4000, "testing", []models.FeedSource{
		{Name: "test-feed", ID: 1, StaticURL: "https://gtfs.example.com/bundle.zip"},
	})
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	application := New(cfg, logger, nil, "test-version")

	for i, name := range []string{"s0", "s1", "s2"} {
		application.Stops.Add(stops.Stop{
			ID:        models.StopID{Database: 0, Tile: 1, Local: uint32(i)},
			GlobalID:  name,
			Name:      name,
			Latitude:  50.0 + 0.01*float64(i),
			Longitude: 4.0,
		})
	}

	addTestConnection(application, "s0", "s1", testTime(9, 30), 600, 1)
	addTestConnection(application, "s1", "s2", testTime(10, 30), 600, 2)

	return application
}

// newEmptyApplication wires an Application with no data at all.
func newEmptyApplication(t *testing.T) *Application {
	t.Helper()
	cfg := config.NewConfig(4000, "testing", nil)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return New(cfg, logger, nil, "test-version")
}

// testTime is seconds since epoch on 2018-12-04.
func testTime(hour, minute uint64) uint64 {
	return 1543881600 + hour*3600 + minute*60
}

func addTestConnection(application *Application, from, to string, dep uint64, travel uint16, trip models.InternalID) {
	fromStop, _ := application.Stops.FindByGlobalID(from)
	toStop, _ := application.Stops.FindByGlobalID(to)
	application.DB.AddOrUpdate(&models.Connection{
		DepartureStop: fromStop.ID,
		ArrivalStop:   toStop.ID,
		DepartureTime: dep,
		TravelTime:    travel,
		GlobalID:      fmt.Sprintf("test/%s-%s/%d", from, to, dep),
		Trip:          trip,
	})
}
