package stops

import (
	"sync"

	"github.com/golang/geo/s2"

	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

const earthRadiusMeters = 6371010.0

// Stop is a boarding location with its upstream identifier and coordinates.
type Stop struct {
	ID        models.StopID
	GlobalID  string
	Name      string
	Latitude  float64
	Longitude float64
}

// Store is a thread-safe in-memory stops database. The journey core only
// sees StopID values; this store resolves them to coordinates and feed
// identifiers for the transfer generators and the query surface.
type Store struct {
	mu         sync.RWMutex
	byID       map[models.StopID]Stop
	byGlobalID map[string]models.StopID
}

// NewStore initializes and returns a new empty Store.
func NewStore() *Store {
	return &Store{
		byID:       make(map[models.StopID]Stop),
		byGlobalID: make(map[string]models.StopID),
	}
}

// Add stores or overwrites a stop.
func (s *Store) Add(stop Stop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[stop.ID] = stop
	s.byGlobalID[stop.GlobalID] = stop.ID
}

// Get retrieves a stop by id.
func (s *Store) Get(id models.StopID) (Stop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stop, ok := s.byID[id]
	return stop, ok
}

// FindByGlobalID resolves an upstream feed identifier to a stop.
func (s *Store) FindByGlobalID(globalID string) (Stop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byGlobalID[globalID]
	if !ok {
		return Stop{}, false
	}
	return s.byID[id], true
}

// Count returns the number of stored stops.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// All returns a copy of all stops.
func (s *Store) All() []Stop {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Stop, 0, len(s.byID))
	for _, stop := range s.byID {
		out = append(out, stop)
	}
	return out
}

// IDs returns a copy of all stop ids.
func (s *Store) IDs() []models.StopID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StopID, 0, len(s.byID))
	for id := range s.byID {
		out = append(out, id)
	}
	return out
}

// Nearest returns the stop closest to the given coordinates within
// maxMeters, or false when no stop is that close.
func (s *Store) Nearest(lat, lon, maxMeters float64) (Stop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from := s2.LatLngFromDegrees(lat, lon)
	var best Stop
	bestDistance := maxMeters
	found := false
	for _, stop := range s.byID {
		d := DistanceMeters(from, s2.LatLngFromDegrees(stop.Latitude, stop.Longitude))
		if d <= bestDistance {
			best = stop
			bestDistance = d
			found = true
		}
	}
	return best, found
}

// DistanceMeters is the great-circle distance between two points.
func DistanceMeters(a, b s2.LatLng) float64 {
	return a.Distance(b).Radians() * earthRadiusMeters
}

// Distance returns the great-circle distance in meters between two stored
// stops.
func (s *Store) Distance(a, b models.StopID) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sa, okA := s.byID[a]
	sb, okB := s.byID[b]
	if !okA || !okB {
		return 0, false
	}
	return DistanceMeters(
		s2.LatLngFromDegrees(sa.Latitude, sa.Longitude),
		s2.LatLngFromDegrees(sb.Latitude, sb.Longitude),
	), true
}
