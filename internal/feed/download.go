package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	remoteGtfs "github.com/jamespfennell/gtfs"

	"github.com/EmileSonneveld/itinero-transit/internal/config"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/report"
)

// downloadStaticBundle fetches and parses a GTFS static bundle.
func downloadStaticBundle(ctx context.Context, client *http.Client, feed models.FeedSource, maxRetries int) (*remoteGtfs.Static, error) {
	data, err := fetch(ctx, client, feed.StaticURL, "", "", maxRetries, feed.ID)
	if err != nil {
		return nil, err
	}
	staticBundle, err := remoteGtfs.ParseStatic(data, remoteGtfs.ParseStaticOptions{})
	if err != nil {
		err = fmt.Errorf("failed to parse GTFS static data from %s: %w", feed.StaticURL, err)
		report.ReportFeedError(err, feed.ID, map[string]interface{}{
			"url": feed.StaticURL,
		})
		return nil, err
	}
	return staticBundle, nil
}

// downloadRealtimeFeed fetches and parses a GTFS-RT trip update feed.
func downloadRealtimeFeed(ctx context.Context, client *http.Client, feed models.FeedSource, maxRetries int) (*remoteGtfs.Realtime, error) {
	data, err := fetch(ctx, client, feed.RealtimeURL, feed.RealtimeApiKey, feed.RealtimeApiVal, maxRetries, feed.ID)
	if err != nil {
		return nil, err
	}
	realtime, err := remoteGtfs.ParseRealtime(data, &remoteGtfs.ParseRealtimeOptions{})
	if err != nil {
		err = fmt.Errorf("failed to parse GTFS-RT data from %s: %w", feed.RealtimeURL, err)
		report.ReportFeedError(err, feed.ID, map[string]interface{}{
			"url": feed.RealtimeURL,
		})
		return nil, err
	}
	return realtime, nil
}

func fetch(ctx context.Context, client *http.Client, url, apiKeyHeader, apiKeyValue string, maxRetries, feedID int) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		err = fmt.Errorf("failed to create request for %s: %w", url, err)
		report.ReportFeedError(err, feedID, map[string]interface{}{
			"url": url,
		})
		return nil, err
	}
	if apiKeyHeader != "" && apiKeyValue != "" {
		req.Header.Set(apiKeyHeader, apiKeyValue)
	}

	resp, err := config.DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		err = fmt.Errorf("failed to make GET request to %s: %w", url, err)
		report.ReportFeedError(err, feedID, map[string]interface{}{
			"url": url,
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected response status %d when downloading feed from %s", resp.StatusCode, url)
		report.ReportFeedError(err, feedID, map[string]interface{}{
			"url":    url,
			"status": resp.Status,
		})
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read feed response body from %s: %w", url, err)
		report.ReportError(err)
		return nil, err
	}
	return data, nil
}
