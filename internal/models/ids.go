package models

import "fmt"

// DatabaseID distinguishes federated connection databases. It is assigned
// when a database is created or loaded and is never serialized.
type DatabaseID uint32

// InternalID is a dense index inside a single database. It is stable within
// a session but may be reassigned across sessions.
type InternalID uint32

// ConnectionID identifies one connection across all federated databases.
type ConnectionID struct {
	Database DatabaseID
	Internal InternalID
}

// TripID identifies one trip across all federated databases.
type TripID struct {
	Database DatabaseID
	Internal InternalID
}

// StopID identifies a boarding location. The tile/local split allows the
// stops database to cluster stops spatially; the journey core treats both
// halves as opaque.
type StopID struct {
	Database DatabaseID
	Tile     uint32
	Local    uint32
}

// StopIDUnset is the sentinel written to storage slots that were never
// assigned. Its tile is 0xFFFFFFFF, which no real tile uses.
var StopIDUnset = StopID{Tile: 0xFFFFFFFF, Local: 0xFFFFFFFF}

func (s StopID) IsUnset() bool {
	return s.Tile == 0xFFFFFFFF
}

func (s StopID) String() string {
	return fmt.Sprintf("%d/%d/%d", s.Database, s.Tile, s.Local)
}

func (c ConnectionID) String() string {
	return fmt.Sprintf("%d/%d", c.Database, c.Internal)
}

func (t TripID) String() string {
	return fmt.Sprintf("%d/%d", t.Database, t.Internal)
}
