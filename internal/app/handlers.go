package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/EmileSonneveld/itinero-transit/internal/geo"
	"github.com/EmileSonneveld/itinero-transit/internal/journey"
	"github.com/EmileSonneveld/itinero-transit/internal/pcs"
	"github.com/EmileSonneveld/itinero-transit/internal/stops"
	"github.com/EmileSonneveld/itinero-transit/internal/transfer"
)

// HealthStatus is the JSON shape of /v1/healthcheck. The application is
// considered ready once at least one connection has been ingested.
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Feeds       int    `json:"feeds"`
	Connections int    `json:"connections"`
	Stops       int    `json:"stops"`
	Ready       bool   `json:"ready"`
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	connections := app.DB.Count()
	ready := connections > 0

	status := HealthStatus{
		Status:      "available",
		Environment: app.ConfigService.Config.Env,
		Version:     app.Version,
		Feeds:       len(app.ConfigService.Config.GetFeeds()),
		Connections: connections,
		Stops:       app.Stops.Count(),
		Ready:       ready,
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(status)
}

// Leg is one step of a rendered journey.
type Leg struct {
	Kind      string `json:"kind"` // "connection" or "walk"
	From      string `json:"from"`
	To        string `json:"to"`
	Departure uint64 `json:"departure"`
	Arrival   uint64 `json:"arrival"`
	Trip      string `json:"trip,omitempty"`
}

// JourneyResponse is the JSON shape of one journey.
type JourneyResponse struct {
	Departure     uint64 `json:"departure"`
	Arrival       uint64 `json:"arrival"`
	Vehicles      uint32 `json:"vehicles"`
	TravelSeconds uint64 `json:"travel_seconds"`
	WalkingMeters uint32 `json:"walking_meters"`
	Legs          []Leg  `json:"legs"`
}

type journeysResponse struct {
	Journeys  []JourneyResponse `json:"journeys"`
	Truncated bool              `json:"truncated,omitempty"`
}

// newQuery parses the shared query parameters and assembles a scan against a
// snapshot of the live database, so the feed service may keep writing while
// the scan runs.
func (app *Application) newQuery(r *http.Request) (*pcs.Query, error) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	departure, err := strconv.ParseUint(r.URL.Query().Get("departure"), 10, 64)
	if err != nil {
		return nil, errors.New("missing or malformed departure parameter")
	}
	arrival, err := strconv.ParseUint(r.URL.Query().Get("arrival"), 10, 64)
	if err != nil {
		return nil, errors.New("missing or malformed arrival parameter")
	}

	walker := transfer.NewCrowFlyGenerator(app.Stops, app.WalkSpeed, app.WalkRange)
	profile := pcs.DefaultProfile(app.TransferCache.Wrap(walker))
	profile.Guesser = pcs.NewTeleportGuesser()

	deadline := time.Now().Add(10 * time.Second)
	return pcs.NewQuery(app.DB.Clone(), app.Stops).
		SelectProfile(profile).
		SelectStopsByGlobalID(from, to).
		SelectTimeFrame(departure, arrival).
		WithDeadline(func() bool { return time.Now().After(deadline) }), nil
}

func (app *Application) journeysHandler(w http.ResponseWriter, r *http.Request) {
	q, err := app.newQuery(r)
	if err != nil {
		app.badRequest(w, err)
		return
	}
	found, truncated, err := q.CalculateAllJourneys()
	if err != nil {
		app.badRequest(w, err)
		return
	}

	resp := journeysResponse{Journeys: []JourneyResponse{}, Truncated: truncated}
	for _, j := range found {
		// profile journeys are built backwards; rendering wants forward
		// chains, one per joined branch
		for _, forward := range j.Reverse() {
			resp.Journeys = append(resp.Journeys, renderJourney(forward, app.Stops))
		}
	}
	app.writeJSON(w, resp)
}

func (app *Application) earliestArrivalHandler(w http.ResponseWriter, r *http.Request) {
	q, err := app.newQuery(r)
	if err != nil {
		app.badRequest(w, err)
		return
	}
	j, err := q.CalculateEarliestArrival()
	if err != nil {
		app.badRequest(w, err)
		return
	}
	app.writeOptionalJourney(w, j, false)
}

func (app *Application) latestDepartureHandler(w http.ResponseWriter, r *http.Request) {
	q, err := app.newQuery(r)
	if err != nil {
		app.badRequest(w, err)
		return
	}
	j, err := q.CalculateLatestDeparture()
	if err != nil {
		app.badRequest(w, err)
		return
	}
	app.writeOptionalJourney(w, j, true)
}

func (app *Application) nearestStopHandler(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil || !geo.IsValidLatLon(lat, lon) {
		app.badRequest(w, errors.New("missing or malformed lat/lon parameters"))
		return
	}
	maxMeters := 2000.0
	if raw := r.URL.Query().Get("radius"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			maxMeters = parsed
		}
	}
	stop, ok := app.Stops.Nearest(lat, lon, maxMeters)
	if !ok {
		http.Error(w, "no stop within radius", http.StatusNotFound)
		return
	}
	app.writeJSON(w, map[string]any{
		"id":        stop.GlobalID,
		"name":      stop.Name,
		"latitude":  stop.Latitude,
		"longitude": stop.Longitude,
	})
}

func (app *Application) writeOptionalJourney(w http.ResponseWriter, j *journey.Journey, backward bool) {
	if j == nil {
		http.Error(w, "no journey found", http.StatusNotFound)
		return
	}
	if backward {
		j = j.Reverse()[0]
	}
	app.writeJSON(w, renderJourney(j, app.Stops))
}

func (app *Application) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.Logger.Error("Failed to encode response", "error", err)
	}
}

func (app *Application) badRequest(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// renderJourney flattens a forward-built chain into the response shape.
func renderJourney(j *journey.Journey, stopStore *stops.Store) JourneyResponse {
	resp := JourneyResponse{
		Departure: j.DepartureTime(),
		Arrival:   j.ArrivalTime(),
	}
	if m, ok := j.Metric.(*journey.TransferMetric); ok {
		resp.Vehicles = m.VehiclesTaken
		resp.TravelSeconds = m.TravelTime
		resp.WalkingMeters = m.WalkingDistance
	}

	segments := j.Summarize().ToList()
	for i := 1; i < len(segments); i++ {
		prev, s := segments[i-1], segments[i]
		leg := Leg{
			From:      stopName(stopStore, prev),
			To:        stopName(stopStore, s),
			Departure: prev.Time,
			Arrival:   s.Time,
		}
		switch s.Tag {
		case journey.TagWalk:
			leg.Kind = "walk"
		case journey.TagConnection:
			leg.Kind = "connection"
			leg.Trip = s.Trip.String()
		default:
			continue
		}
		resp.Legs = append(resp.Legs, leg)
	}
	return resp
}

func stopName(stopStore *stops.Store, s *journey.Journey) string {
	if stop, ok := stopStore.Get(s.Location); ok {
		return stop.GlobalID
	}
	return s.Location.String()
}
