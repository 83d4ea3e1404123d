package geo

import (
	"fmt"
	"math"
	"sync"

	"github.com/golang/geo/s2"

	"github.com/EmileSonneveld/itinero-transit/internal/stops"
)

// BoundingBox defines the corners of a lat/lon box
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains checks whether the given latitude and longitude are within the bounding box
func (b *BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ComputeBoundingBox computes the bounding box of all given stops
func ComputeBoundingBox(all []stops.Stop) (BoundingBox, error) {
	if len(all) == 0 {
		return BoundingBox{}, fmt.Errorf("no stops to compute bounding box")
	}

	minLat := math.MaxFloat64
	maxLat := -math.MaxFloat64
	minLon := math.MaxFloat64
	maxLon := -math.MaxFloat64

	for _, stop := range all {
		if !IsValidLatLon(stop.Latitude, stop.Longitude) {
			continue
		}
		if stop.Latitude < minLat {
			minLat = stop.Latitude
		}
		if stop.Latitude > maxLat {
			maxLat = stop.Latitude
		}
		if stop.Longitude < minLon {
			minLon = stop.Longitude
		}
		if stop.Longitude > maxLon {
			maxLon = stop.Longitude
		}
	}

	if minLat == math.MaxFloat64 || maxLat == -math.MaxFloat64 ||
		minLon == math.MaxFloat64 || maxLon == -math.MaxFloat64 {
		return BoundingBox{}, fmt.Errorf("no valid latitude/longitude found in stops")
	}

	return BoundingBox{
		MinLat: minLat,
		MaxLat: maxLat,
		MinLon: minLon,
		MaxLon: maxLon,
	}, nil
}

// BoundingBoxStore stores bounding boxes for each feed in memory with concurrency safety
type BoundingBoxStore struct {
	mu    sync.RWMutex
	store map[int]BoundingBox
}

// NewBoundingBoxStore creates and returns a new BoundingBoxStore
func NewBoundingBoxStore() *BoundingBoxStore {
	return &BoundingBoxStore{
		store: make(map[int]BoundingBox),
	}
}

// Set stores a bounding box for a specific feed ID
func (s *BoundingBoxStore) Set(feedID int, bbox BoundingBox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[feedID] = bbox
}

// Get retrieves the bounding box for a specific feed ID
func (s *BoundingBoxStore) Get(feedID int) (BoundingBox, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bbox, ok := s.store[feedID]
	return bbox, ok
}

// IsInBoundingBox checks if the lat/lon is inside the feed's bounding box
func (s *BoundingBoxStore) IsInBoundingBox(feedID int, lat, lon float64) bool {
	bbox, ok := s.Get(feedID)
	if !ok {
		return false
	}
	return bbox.Contains(lat, lon)
}

// IsValidLatLon returns true if the given latitude and longitude values
// fall within the valid geographic coordinate bounds.
//
// Latitude must be between -90 and 90 degrees, and longitude must be
// between -180 and 180 degrees.
//
// Note: This function treats the coordinate (0,0) as invalid, even though it
// is a valid location in the Gulf of Guinea. This assumption is made to help
// detect uninitialized or placeholder coordinates commonly represented as (0,0).
func IsValidLatLon(lat, lon float64) bool {
	if lat == 0 && lon == 0 {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

// earthRadiusInMeters represents the mean radius of the Earth in meters.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusInMeters = 6371000

// HaversineDistance is the great-circle distance in meters between two
// coordinate pairs.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusInMeters
}
