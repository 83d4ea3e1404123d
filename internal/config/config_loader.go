package config

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/report"
)

// ValidateConfigFlags ensures that only one configuration source is
// specified: either a config file "--config-file" or a remote config URL
// "--config-url".
//
// Returns an error if more than one input method is specified.
func ValidateConfigFlags(configFile, configURL *string) error {
	if *configFile == "" && *configURL == "" {
		return fmt.Errorf("no configuration provided, either --config-file or --config-url must be specified")
	}
	if (*configFile != "" && *configURL != "") || (*configFile != "" && len(flag.Args()) > 0) || (*configURL != "" && len(flag.Args()) > 0) {
		return fmt.Errorf("only one of --config-file or --config-url can be specified")
	}
	return nil
}

// refreshConfig periodically fetches configuration from a remote URL and
// replaces the application's feed list.
//
// Errors during fetch or parse are logged and reported to Sentry, but the
// loop continues, ensuring resiliency in the presence of transient issues.
// The routine stops gracefully when the context is canceled.
func refreshConfig(ctx context.Context, client *http.Client, configURL, configAuthUser, configAuthPass string, cfg *Config, logger *slog.Logger, interval time.Duration, maxRetries int) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping config refresh routine")
			return
		default:
			newFeeds, err := loadConfigFromURL(ctx, client, configURL, configAuthUser, configAuthPass, maxRetries)
			if err != nil {
				report.ReportConfigError(err, configURL)
				logger.Error("Failed to refresh remote config", "error", err)
			} else {
				cfg.UpdateConfig(newFeeds)
				logger.Info("Successfully refreshed feed configuration")
			}
			time.Sleep(interval)
		}
	}
}

// loadConfigFromFile reads a JSON configuration file from disk and
// unmarshals it into a list of feed sources.
func loadConfigFromFile(filePath string) ([]models.FeedSource, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		report.ReportConfigError(err, filePath)
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var feeds []models.FeedSource
	if err := json.Unmarshal(data, &feeds); err != nil {
		report.ReportConfigError(err, filePath)
		return nil, fmt.Errorf("failed to unmarshal JSON: %v", err)
	}

	return feeds, nil
}

// loadConfigFromURL fetches a JSON configuration from a remote HTTP(S)
// endpoint, using the provided client and optional basic authentication.
func loadConfigFromURL(ctx context.Context, client *http.Client, url, authUser, authPass string, maxRetries int) ([]models.FeedSource, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		report.ReportConfigError(err, url)
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	if authUser != "" && authPass != "" {
		req.SetBasicAuth(authUser, authPass)
	}

	resp, err := DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		report.ReportConfigError(err, url)
		return nil, fmt.Errorf("failed to fetch remote config: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("remote config returned status: %d", resp.StatusCode)
		report.ReportConfigError(statusErr, url)
		return nil, statusErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		report.ReportConfigError(err, url)
		return nil, fmt.Errorf("failed to read remote config: %v", err)
	}

	var feeds []models.FeedSource
	if err := json.Unmarshal(data, &feeds); err != nil {
		report.ReportConfigError(err, url)
		return nil, fmt.Errorf("failed to unmarshal JSON: %v", err)
	}

	return feeds, nil
}
