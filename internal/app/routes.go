package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/EmileSonneveld/itinero-transit/internal/middleware"
)

// Routes registers all endpoints and returns the final http.Handler.
//
//   - GET /v1/healthcheck: readiness and data-volume snapshot.
//   - GET /v1/journeys: all Pareto-optimal journeys between two stops.
//   - GET /v1/journeys/earliest: the earliest-arrival journey.
//   - GET /v1/journeys/latest: the latest-departure journey.
//   - GET /v1/stops/nearest: closest stop to a coordinate.
//   - GET /metrics: Prometheus exposition, served from a short-lived cache.
//
// The router is wrapped with Sentry error capture and the standard security
// headers.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/journeys", app.journeysHandler)
	router.HandlerFunc(http.MethodGet, "/v1/journeys/earliest", app.earliestArrivalHandler)
	router.HandlerFunc(http.MethodGet, "/v1/journeys/latest", app.latestDepartureHandler)
	router.HandlerFunc(http.MethodGet, "/v1/stops/nearest", app.nearestStopHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	handler := middleware.SentryMiddleware(router)
	return middleware.SecurityHeaders(handler)
}
