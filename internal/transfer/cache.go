package transfer

import (
	"fmt"
	"time"

	"github.com/bluele/gcache"

	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

// Cache memoizes transfer computations across queries. It is an explicit
// handle the caller injects at query-build time; there is no process-wide
// generator registry.
type Cache struct {
	results gcache.Cache
}

// NewCache builds a cache holding up to size stop-pair durations with LRU
// eviction and the given TTL.
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{
		results: gcache.New(size).
			LRU().
			Expiration(ttl).
			Build(),
	}
}

// Wrap returns a generator that memoizes pair durations in the cache, keyed
// by the inner generator's identifier and the stop pair.
func (c *Cache) Wrap(inner Generator) Generator {
	return &cachedGenerator{inner: inner, cache: c.results}
}

type cachedGenerator struct {
	inner Generator
	cache gcache.Cache
}

type cachedDuration struct {
	seconds   uint32
	reachable bool
}

func (g *cachedGenerator) TimeBetween(from, to models.StopID) (uint32, bool) {
	key := fmt.Sprintf("%s|%s|%s", g.inner.Identifier(), from, to)
	if cached, err := g.cache.Get(key); err == nil {
		if d, ok := cached.(cachedDuration); ok {
			return d.seconds, d.reachable
		}
	}
	seconds, reachable := g.inner.TimeBetween(from, to)
	g.cache.Set(key, cachedDuration{seconds: seconds, reachable: reachable})
	return seconds, reachable
}

func (g *cachedGenerator) TimesBetween(from models.StopID, targets []models.StopID) map[models.StopID]uint32 {
	out := make(map[models.StopID]uint32, len(targets))
	for _, to := range targets {
		if seconds, ok := g.TimeBetween(from, to); ok {
			out[to] = seconds
		}
	}
	return out
}

func (g *cachedGenerator) DistanceBetween(from, to models.StopID) (float64, bool) {
	if d, ok := g.inner.(Distancer); ok {
		return d.DistanceBetween(from, to)
	}
	return 0, false
}

func (g *cachedGenerator) Range() float64 {
	return g.inner.Range()
}

func (g *cachedGenerator) Identifier() string {
	return g.inner.Identifier()
}
