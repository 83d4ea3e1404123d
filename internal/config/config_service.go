package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/EmileSonneveld/itinero-transit/internal/models"
	"github.com/EmileSonneveld/itinero-transit/internal/report"
)

const defaultMaxRetries = 3

// ConfigService holds dependencies and provides config operations.
type ConfigService struct {
	Logger *slog.Logger
	Client *http.Client
	Config *Config
}

// NewConfigService creates a new ConfigService instance with the provided logger and HTTP client.
func NewConfigService(logger *slog.Logger, client *http.Client, config *Config) *ConfigService {
	return &ConfigService{
		Logger: logger,
		Client: client,
		Config: config,
	}
}

func (cs *ConfigService) RefreshConfig(ctx context.Context, url, authUser, authPass string, interval time.Duration) {
	refreshConfig(ctx, cs.Client, url, authUser, authPass, cs.Config, cs.Logger, interval, defaultMaxRetries)
}

// exported helper functions

// LoadConfigFromFile loads the feed list from a local JSON file.
func LoadConfigFromFile(filePath string) ([]models.FeedSource, error) {
	feeds, err := loadConfigFromFile(filePath)
	if err != nil {
		err := fmt.Errorf("failed to load config from file %s: %w", filePath, err)
		report.ReportConfigError(err, filePath)
		return nil, err
	}
	return feeds, nil
}

// LoadConfigFromURL loads the feed list from a remote JSON endpoint.
func LoadConfigFromURL(ctx context.Context, client *http.Client, url, authUser, authPass string) ([]models.FeedSource, error) {
	feeds, err := loadConfigFromURL(ctx, client, url, authUser, authPass, defaultMaxRetries)
	if err != nil {
		err := fmt.Errorf("failed to load config from URL %s: %w", url, err)
		report.ReportConfigError(err, url)
		return nil, err
	}
	return feeds, nil
}
