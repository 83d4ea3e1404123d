package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/EmileSonneveld/itinero-transit/internal/cdb"
	"github.com/EmileSonneveld/itinero-transit/internal/config"
	"github.com/EmileSonneveld/itinero-transit/internal/feed"
	"github.com/EmileSonneveld/itinero-transit/internal/geo"
	"github.com/EmileSonneveld/itinero-transit/internal/stops"
	"github.com/EmileSonneveld/itinero-transit/internal/transfer"
)

// Application wires all dependencies of the journey planner together: the
// connections database written by the feed service, the stops store, the
// transfer cache shared by all queries, and the configuration service.
type Application struct {
	ConfigService *config.ConfigService
	FeedService   *feed.Service
	DB            *cdb.ConnectionsDb
	Stops         *stops.Store
	BBoxes        *geo.BoundingBoxStore
	TransferCache *transfer.Cache
	Logger        *slog.Logger
	Version       string

	// WalkSpeed and WalkRange parameterize the crow-fly transfer
	// generator the HTTP query surface uses.
	WalkSpeed float64
	WalkRange float64
}

// New creates and wires all dependencies for the Application.
// Accepts config, logger, client, and version as arguments.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, version string) *Application {

	db := cdb.New(0)
	stopStore := stops.NewStore()
	bboxes := geo.NewBoundingBoxStore()

	configService := config.NewConfigService(logger, client, cfg)
	feedService := feed.NewService(db, stopStore, bboxes, logger, client)

	return &Application{
		ConfigService: configService,
		FeedService:   feedService,
		DB:            db,
		Stops:         stopStore,
		BBoxes:        bboxes,
		TransferCache: transfer.NewCache(4096, time.Hour),
		Logger:        logger,
		Version:       version,
		WalkSpeed:     1.4,
		WalkRange:     500,
	}
}

// StartFeedRefresh ingests every configured feed once and then keeps them
// fresh in the background until the context is cancelled.
func (app *Application) StartFeedRefresh(ctx context.Context, serviceDay time.Time, realtimeInterval, staticInterval time.Duration) {
	feeds := app.ConfigService.Config.GetFeeds()
	for _, f := range feeds {
		if err := app.FeedService.RefreshStatic(ctx, f, serviceDay); err != nil {
			app.Logger.Error("Failed to ingest feed on startup", "feed", f.Name, "error", err)
		}
	}
	go app.FeedService.RefreshLoop(ctx, feeds, serviceDay, realtimeInterval, staticInterval)
}
