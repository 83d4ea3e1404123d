package cdb

import "github.com/EmileSonneveld/itinero-transit/internal/models"

const (
	// DefaultWindowSeconds is the length of one departure window.
	DefaultWindowSeconds = 60
	// DefaultWindowCount covers a full day of one-minute windows.
	DefaultWindowCount = 24 * 60
)

type windowMeta struct {
	pointer uint32
	size    uint32
}

// departureIndex buckets internal ids by departure time on a modular time
// axis. Each window body lives inside one monotonically growing store; when
// a window outgrows its power-of-two capacity its body is copied to a fresh
// tail region and the old region becomes garbage.
type departureIndex struct {
	windowSeconds uint32
	windowCount   uint32
	meta          []windowMeta
	body          []uint32 // internal ids, all windows interleaved
	nextPointer   uint32

	store *packedStore
}

func newDepartureIndex(store *packedStore, windowSeconds, windowCount uint32) *departureIndex {
	return &departureIndex{
		windowSeconds: windowSeconds,
		windowCount:   windowCount,
		meta:          make([]windowMeta, windowCount),
		store:         store,
	}
}

// windowFor maps a departure time onto its window.
func (d *departureIndex) windowFor(t uint64) uint32 {
	return uint32(t/uint64(d.windowSeconds)) % d.windowCount
}

// add inserts internal id i into the window of its departure time and keeps
// that window sorted.
func (d *departureIndex) add(i models.InternalID) {
	w := d.windowFor(d.store.departure(i))
	m := &d.meta[w]
	switch {
	case m.size == 0:
		m.pointer = d.allocate(1)
	case m.size&(m.size-1) == 0:
		// capacity exhausted, copy the body to a doubled tail region
		fresh := d.allocate(m.size * 2)
		copy(d.body[fresh:fresh+m.size], d.body[m.pointer:m.pointer+m.size])
		m.pointer = fresh
	}
	d.body[m.pointer+m.size] = uint32(i)
	m.size++
	d.sortWindow(w)
}

// remove drops internal id i from window w, closing the gap.
func (d *departureIndex) remove(i models.InternalID, w uint32) {
	m := &d.meta[w]
	for k := uint32(0); k < m.size; k++ {
		if d.body[m.pointer+k] == uint32(i) {
			copy(d.body[m.pointer+k:m.pointer+m.size-1], d.body[m.pointer+k+1:m.pointer+m.size])
			m.size--
			return
		}
	}
}

// allocate reserves n slots at the body-store tail and returns the region
// start. Old regions are never reclaimed.
func (d *departureIndex) allocate(n uint32) uint32 {
	p := d.nextPointer
	d.nextPointer += n
	for uint32(len(d.body)) < d.nextPointer {
		d.body = append(d.body, 0)
	}
	return p
}

// sortWindow quicksorts window w in place, keyed by departure time. The sort
// is not stable: the order among equal departure times is arbitrary.
func (d *departureIndex) sortWindow(w uint32) {
	m := d.meta[w]
	d.quicksort(int(m.pointer), int(m.pointer+m.size)-1)
}

func (d *departureIndex) quicksort(lo, hi int) {
	if lo >= hi {
		return
	}
	pivot := d.store.departure(models.InternalID(d.body[(lo+hi)/2]))
	i, j := lo, hi
	for i <= j {
		for d.store.departure(models.InternalID(d.body[i])) < pivot {
			i++
		}
		for d.store.departure(models.InternalID(d.body[j])) > pivot {
			j--
		}
		if i <= j {
			d.body[i], d.body[j] = d.body[j], d.body[i]
			i++
			j--
		}
	}
	d.quicksort(lo, j)
	d.quicksort(i, hi)
}

// searchLeft returns the index of the leftmost entry in window w with a
// departure time at or after t, or the window size when all entries depart
// earlier.
func (d *departureIndex) searchLeft(w uint32, t uint64) uint32 {
	m := d.meta[w]
	lo, hi := uint32(0), m.size
	for lo < hi {
		mid := (lo + hi) / 2
		if d.store.departure(models.InternalID(d.body[m.pointer+mid])) < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// searchRight returns the index of the rightmost entry in window w with a
// departure time at or before t. It returns (0, false) when every entry of
// the window departs after t.
func (d *departureIndex) searchRight(w uint32, t uint64) (uint32, bool) {
	m := d.meta[w]
	lo, hi := uint32(0), m.size
	for lo < hi {
		mid := (lo + hi) / 2
		if d.store.departure(models.InternalID(d.body[m.pointer+mid])) <= t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0, false
	}
	return lo - 1, true
}

func (d *departureIndex) clone(store *packedStore) *departureIndex {
	return &departureIndex{
		windowSeconds: d.windowSeconds,
		windowCount:   d.windowCount,
		meta:          append([]windowMeta(nil), d.meta...),
		body:          append([]uint32(nil), d.body...),
		nextPointer:   d.nextPointer,
		store:         store,
	}
}
