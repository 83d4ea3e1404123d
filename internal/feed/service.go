package feed

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/EmileSonneveld/itinero-transit/internal/cdb"
	"github.com/EmileSonneveld/itinero-transit/internal/config"
	"github.com/EmileSonneveld/itinero-transit/internal/geo"
	"github.com/EmileSonneveld/itinero-transit/internal/metrics"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/stops"
)

const maxDownloadRetries = 3

// Service owns feed ingestion: it downloads static bundles and realtime
// updates and folds both into the shared connections database and stops
// store. It is the single writer of the database; readers take snapshots.
type Service struct {
	DB      *cdb.ConnectionsDb
	Stops   *stops.Store
	BBoxes  *geo.BoundingBoxStore
	Logger  *slog.Logger
	Client  *http.Client
	Backoff *config.BackoffStore

	ingesters map[int]*Ingester
}

func NewService(db *cdb.ConnectionsDb, stopStore *stops.Store, bboxes *geo.BoundingBoxStore, logger *slog.Logger, client *http.Client) *Service {
	return &Service{
		DB:        db,
		Stops:     stopStore,
		BBoxes:    bboxes,
		Logger:    logger,
		Client:    client,
		Backoff:   config.NewBackoffStore(),
		ingesters: make(map[int]*Ingester),
	}
}

func (s *Service) ingester(feed models.FeedSource) *Ingester {
	in, ok := s.ingesters[feed.ID]
	if !ok {
		in = NewIngester(feed.Name, s.DB, s.Stops)
		s.ingesters[feed.ID] = in
	}
	return in
}

// RefreshStatic downloads, parses and ingests one feed's static bundle for
// the given service day. A service date pinned on the feed itself wins over
// the passed day.
func (s *Service) RefreshStatic(ctx context.Context, feed models.FeedSource, serviceDay time.Time) error {
	if pinned := feed.ServiceDate.Time(); !pinned.IsZero() {
		serviceDay = pinned
	}
	if at, ok := s.Backoff.NextRetryAt(feed.ID); ok && time.Now().Before(at) {
		s.Logger.Info("Skipping feed refresh, still backing off", "feed", feed.Name, "next_retry_at", at)
		return nil
	}

	static, err := downloadStaticBundle(ctx, s.Client, feed, maxDownloadRetries)
	if err != nil {
		s.Backoff.UpdateBackoff(feed.ID)
		metrics.FeedRefreshes.WithLabelValues(feed.Name, "failure").Inc()
		return err
	}
	written, err := s.ingester(feed).IngestStatic(static, serviceDay)
	if err != nil {
		metrics.FeedRefreshes.WithLabelValues(feed.Name, "failure").Inc()
		return err
	}

	s.Backoff.ResetBackoff(feed.ID)
	if bbox, err := geo.ComputeBoundingBox(s.Stops.All()); err == nil {
		s.BBoxes.Set(feed.ID, bbox)
	}
	metrics.FeedRefreshes.WithLabelValues(feed.Name, "success").Inc()
	metrics.FeedConnections.WithLabelValues(feed.Name).Set(float64(written))
	metrics.FeedStops.WithLabelValues(feed.Name).Set(float64(s.Stops.Count()))
	s.Logger.Info("Ingested static feed", "feed", feed.Name, "connections", written, "stops", s.Stops.Count())
	return nil
}

// RefreshRealtime downloads one feed's trip updates and applies the delays
// to the stored connections.
func (s *Service) RefreshRealtime(ctx context.Context, feed models.FeedSource) error {
	if feed.RealtimeURL == "" {
		return nil
	}
	realtime, err := downloadRealtimeFeed(ctx, s.Client, feed, maxDownloadRetries)
	if err != nil {
		return err
	}
	updated := s.ingester(feed).ApplyRealtime(realtime)
	metrics.RealtimeUpdates.WithLabelValues(feed.Name).Add(float64(updated))
	s.Logger.Info("Applied realtime updates", "feed", feed.Name, "connections_updated", updated)
	return nil
}

// RefreshLoop periodically refreshes the realtime side of every feed until
// the context is cancelled. Static bundles refresh on the much slower
// staticInterval.
func (s *Service) RefreshLoop(ctx context.Context, feeds []models.FeedSource, serviceDay time.Time, realtimeInterval, staticInterval time.Duration) {
	realtimeTicker := time.NewTicker(realtimeInterval)
	staticTicker := time.NewTicker(staticInterval)
	defer realtimeTicker.Stop()
	defer staticTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("Stopping feed refresh loop")
			return
		case <-realtimeTicker.C:
			for _, feed := range feeds {
				if err := s.RefreshRealtime(ctx, feed); err != nil {
					s.Logger.Error("Failed to refresh realtime feed", "feed", feed.Name, "feed_id", strconv.Itoa(feed.ID), "error", err)
				}
			}
		case <-staticTicker.C:
			for _, feed := range feeds {
				if err := s.RefreshStatic(ctx, feed, serviceDay); err != nil {
					s.Logger.Error("Failed to refresh static feed", "feed", feed.Name, "feed_id", strconv.Itoa(feed.ID), "error", err)
				}
			}
		}
	}
}
