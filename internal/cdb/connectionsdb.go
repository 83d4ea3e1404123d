package cdb

import (
	"strconv"

	"github.com/EmileSonneveld/itinero-transit/internal/metrics"
	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

// ConnectionsDb stores the connections of one transit feed as a packed
// record array with two side indices: a global-id hash index for lookups by
// feed identifier and a windowed departure index for in-order enumeration.
//
// The database is mutable by a single writer. Readers that need a stable
// view while a writer is active must scan a Clone(); mutating the live
// instance while an enumerator holds a cursor into it is not supported.
type ConnectionsDb struct {
	DatabaseID models.DatabaseID

	store     *packedStore
	globalIDs []string
	tripIDs   []models.InternalID
	idIndex   *globalIDIndex
	depIndex  *departureIndex

	nextInternalID models.InternalID
	earliestDate   uint64
	latestDate     uint64
}

// New creates an empty ConnectionsDb with the default one-minute windows.
func New(id models.DatabaseID) *ConnectionsDb {
	return NewWithWindows(id, DefaultWindowSeconds, DefaultWindowCount)
}

// NewWithWindows creates an empty ConnectionsDb with a custom departure
// window layout.
func NewWithWindows(id models.DatabaseID, windowSeconds, windowCount uint32) *ConnectionsDb {
	store := newPackedStore()
	return &ConnectionsDb{
		DatabaseID:   id,
		store:        store,
		idIndex:      newGlobalIDIndex(),
		depIndex:     newDepartureIndex(store, windowSeconds, windowCount),
		earliestDate: ^uint64(0),
	}
}

// AddOrUpdate writes c into the database. A connection with a known global
// id keeps its internal id and gets its fields overwritten; an unknown
// global id is assigned the next internal id. The departure index is only
// touched when the departure second changed.
func (db *ConnectionsDb) AddOrUpdate(c *models.Connection) models.InternalID {
	i, known := db.idIndex.get(c.GlobalID, db.globalIDs)

	var oldDeparture uint64
	if known {
		oldDeparture = db.store.departure(i)
	} else {
		i = db.nextInternalID
		db.nextInternalID++
		db.globalIDs = append(db.globalIDs, c.GlobalID)
		db.tripIDs = append(db.tripIDs, c.Trip)
		db.idIndex.add(c.GlobalID, i)
	}

	db.store.put(i, c)
	if c.DepartureTime < db.earliestDate {
		db.earliestDate = c.DepartureTime
	}
	if c.DepartureTime > db.latestDate {
		db.latestDate = c.DepartureTime
	}

	switch {
	case !known:
		db.depIndex.add(i)
	case oldDeparture != c.DepartureTime:
		oldWindow := db.depIndex.windowFor(oldDeparture)
		if oldWindow != db.depIndex.windowFor(c.DepartureTime) {
			db.depIndex.remove(i, oldWindow)
			db.depIndex.add(i)
		} else {
			db.depIndex.sortWindow(oldWindow)
		}
	}

	if known && db.tripIDs[i] != c.Trip {
		db.tripIDs[i] = c.Trip
	}

	metrics.ConnectionsStored.WithLabelValues(db.label()).Set(float64(db.nextInternalID))
	metrics.ConnectionWrites.WithLabelValues(db.label()).Inc()
	return i
}

// Get fills c with the connection stored under id. It returns false for ids
// from another database and for slots that were never written.
func (db *ConnectionsDb) Get(id models.ConnectionID, c *models.Connection) bool {
	if id.Database != db.DatabaseID {
		return false
	}
	if !db.store.get(id.Internal, c) {
		return false
	}
	c.DepartureStop.Database = db.DatabaseID
	c.ArrivalStop.Database = db.DatabaseID
	c.GlobalID = db.globalIDs[id.Internal]
	c.Trip = db.tripIDs[id.Internal]
	return true
}

// GetByGlobalID resolves a feed identifier to its internal id.
func (db *ConnectionsDb) GetByGlobalID(globalID string) (models.InternalID, bool) {
	return db.idIndex.get(globalID, db.globalIDs)
}

// TripOf returns the trip of a stored connection.
func (db *ConnectionsDb) TripOf(i models.InternalID) models.TripID {
	return models.TripID{Database: db.DatabaseID, Internal: db.tripIDs[i]}
}

// Count returns the number of distinct connections stored.
func (db *ConnectionsDb) Count() int {
	return int(db.nextInternalID)
}

// EarliestDate is the smallest stored departure time. Undefined while the
// database is empty.
func (db *ConnectionsDb) EarliestDate() uint64 {
	return db.earliestDate
}

// LatestDate is the largest stored departure time.
func (db *ConnectionsDb) LatestDate() uint64 {
	return db.latestDate
}

// Clone returns a deep in-memory copy for snapshot readers. The clone shares
// nothing with the live instance and may be scanned while the original keeps
// receiving writes.
func (db *ConnectionsDb) Clone() *ConnectionsDb {
	store := db.store.clone()
	return &ConnectionsDb{
		DatabaseID:     db.DatabaseID,
		store:          store,
		globalIDs:      append([]string(nil), db.globalIDs...),
		tripIDs:        append([]models.InternalID(nil), db.tripIDs...),
		idIndex:        db.idIndex.clone(),
		depIndex:       db.depIndex.clone(store),
		nextInternalID: db.nextInternalID,
		earliestDate:   db.earliestDate,
		latestDate:     db.latestDate,
	}
}

func (db *ConnectionsDb) label() string {
	return strconv.Itoa(int(db.DatabaseID))
}
