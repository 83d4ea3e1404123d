package config

import (
	"sync"

	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

// Config holds all the configuration settings for the journey planner.
type Config struct {
	Port  int
	Env   string
	Mu    sync.RWMutex
	Feeds []models.FeedSource
}

// NewConfig creates a new instance of a Config struct.
func NewConfig(port int, env string, feeds []models.FeedSource) *Config {
	return &Config{
		Port:  port,
		Env:   env,
		Feeds: feeds,
	}
}

// UpdateConfig safely replaces the feed list.
func (cfg *Config) UpdateConfig(newFeeds []models.FeedSource) {
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.Feeds = newFeeds
}

// GetFeeds safely returns a copy of the feed list to avoid concurrent
// modification issues. This method should be used to access the feeds from
// other parts of the application.
func (cfg *Config) GetFeeds() []models.FeedSource {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	return append([]models.FeedSource(nil), cfg.Feeds...)
}
