package models

// Boarding policy lives in the low two bits of the mode field. Bit 2 flags a
// cancelled connection. The remaining bits are reserved.
const (
	ModeNormal     uint16 = 0
	ModeBoardOnly  uint16 = 1
	ModeAlightOnly uint16 = 2
	ModeNeither    uint16 = 3
	ModeCancelled  uint16 = 4
	modePolicyMask uint16 = 3
)

// Connection is one scheduled vehicle movement: a vehicle leaves
// DepartureStop at DepartureTime and reaches ArrivalStop TravelTime seconds
// later, on trip Trip. The arrival time is always derived, never stored.
type Connection struct {
	DepartureStop  StopID
	ArrivalStop    StopID
	DepartureTime  uint64 // unix seconds
	TravelTime     uint16 // seconds
	DepartureDelay uint16 // seconds, already applied to DepartureTime
	ArrivalDelay   uint16 // seconds, already applied to TravelTime
	Mode           uint16

	GlobalID string
	Trip     InternalID
}

// ArrivalTime is DepartureTime + TravelTime.
func (c *Connection) ArrivalTime() uint64 {
	return c.DepartureTime + uint64(c.TravelTime)
}

// CanBoard reports whether a passenger may enter the vehicle at the
// departure stop of this connection.
func (c *Connection) CanBoard() bool {
	policy := c.Mode & modePolicyMask
	return policy == ModeNormal || policy == ModeBoardOnly
}

// CanAlight reports whether a passenger may leave the vehicle at the
// arrival stop of this connection.
func (c *Connection) CanAlight() bool {
	policy := c.Mode & modePolicyMask
	return policy == ModeNormal || policy == ModeAlightOnly
}

// IsCancelled reports whether the connection has been cancelled upstream.
// Cancelled connections are still stored and enumerated; only the scanners
// refuse to use them.
func (c *Connection) IsCancelled() bool {
	return c.Mode&ModeCancelled != 0
}
