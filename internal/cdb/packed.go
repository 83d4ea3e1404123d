package cdb

import (
	"encoding/binary"

	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

// Fixed 28-byte little-endian record layout:
//
//	 0  u32 departure stop tile
//	 4  u32 departure stop local id
//	 8  u32 arrival stop tile
//	12  u32 arrival stop local id
//	16  u32 departure time (unix seconds)
//	20  u16 travel time (seconds)
//	22  u16 departure delay
//	24  u16 arrival delay
//	26  u16 mode
//
// The store never interprets the bytes beyond the unwritten-slot sentinel;
// callers do.
const (
	recordSize = 28
	chunkSize  = 1024
)

// packedStore is a fixed-width record store growing by chunk appends.
// Uninitialized bytes are 0xFF, so an unwritten slot reads back with a
// departure tile of 0xFFFFFFFF.
type packedStore struct {
	data []byte
}

func newPackedStore() *packedStore {
	return &packedStore{}
}

func (p *packedStore) ensure(i models.InternalID) {
	need := (int(i) + 1) * recordSize
	for len(p.data) < need {
		chunk := make([]byte, chunkSize)
		for b := range chunk {
			chunk[b] = 0xFF
		}
		p.data = append(p.data, chunk...)
	}
}

func (p *packedStore) put(i models.InternalID, c *models.Connection) {
	p.ensure(i)
	rec := p.data[int(i)*recordSize:]
	binary.LittleEndian.PutUint32(rec[0:], c.DepartureStop.Tile)
	binary.LittleEndian.PutUint32(rec[4:], c.DepartureStop.Local)
	binary.LittleEndian.PutUint32(rec[8:], c.ArrivalStop.Tile)
	binary.LittleEndian.PutUint32(rec[12:], c.ArrivalStop.Local)
	binary.LittleEndian.PutUint32(rec[16:], uint32(c.DepartureTime))
	binary.LittleEndian.PutUint16(rec[20:], c.TravelTime)
	binary.LittleEndian.PutUint16(rec[22:], c.DepartureDelay)
	binary.LittleEndian.PutUint16(rec[24:], c.ArrivalDelay)
	binary.LittleEndian.PutUint16(rec[26:], c.Mode)
}

// get fills c from slot i. It returns false when the slot was never written.
func (p *packedStore) get(i models.InternalID, c *models.Connection) bool {
	off := int(i) * recordSize
	if off+recordSize > len(p.data) {
		return false
	}
	rec := p.data[off:]
	depTile := binary.LittleEndian.Uint32(rec[0:])
	if depTile == models.StopIDUnset.Tile {
		return false
	}
	c.DepartureStop.Tile = depTile
	c.DepartureStop.Local = binary.LittleEndian.Uint32(rec[4:])
	c.ArrivalStop.Tile = binary.LittleEndian.Uint32(rec[8:])
	c.ArrivalStop.Local = binary.LittleEndian.Uint32(rec[12:])
	c.DepartureTime = uint64(binary.LittleEndian.Uint32(rec[16:]))
	c.TravelTime = binary.LittleEndian.Uint16(rec[20:])
	c.DepartureDelay = binary.LittleEndian.Uint16(rec[22:])
	c.ArrivalDelay = binary.LittleEndian.Uint16(rec[24:])
	c.Mode = binary.LittleEndian.Uint16(rec[26:])
	return true
}

// departure reads only the departure time of slot i. The slot must have been
// written before.
func (p *packedStore) departure(i models.InternalID) uint64 {
	return uint64(binary.LittleEndian.Uint32(p.data[int(i)*recordSize+16:]))
}

func (p *packedStore) clone() *packedStore {
	return &packedStore{data: append([]byte(nil), p.data...)}
}
