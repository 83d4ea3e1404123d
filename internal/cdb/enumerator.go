package cdb

import "github.com/EmileSonneveld/itinero-transit/internal/models"

const (
	indexUnset      = 0xFFFFFFFF
	windowExhausted = 0xFFFFFFFE
)

// DepartureEnumerator is a single-threaded cursor over the departure index.
// MoveNext visits connections in non-decreasing departure-time order,
// MovePrevious in non-increasing order, both anchored by MoveTo. The order
// among equal departure times is deterministic but arbitrary (the windowed
// quicksort is not stable).
//
// One window can hold departures from multiple modular cycles, so the
// enumerator records per window how far it has been consumed and resumes
// there when the cycle wraps around to the same window again.
type DepartureEnumerator struct {
	db *ConnectionsDb

	currentTime   uint64
	indexInWindow uint32
	alreadyUsed   []uint32

	current models.InternalID
}

// Enumerator returns a cursor coupled to this database. The database must
// not be mutated while the cursor is live; snapshot via Clone() first when a
// writer may be active.
func (db *ConnectionsDb) Enumerator() *DepartureEnumerator {
	return &DepartureEnumerator{
		db:          db,
		alreadyUsed: make([]uint32, db.depIndex.windowCount),
	}
}

// MoveTo resets the cursor state and anchors it at t. The next MoveNext
// yields the first departure at or after t, the next MovePrevious the last
// departure at or before t.
func (e *DepartureEnumerator) MoveTo(t uint64) {
	e.currentTime = t
	e.indexInWindow = indexUnset
	for i := range e.alreadyUsed {
		e.alreadyUsed[i] = indexUnset
	}
}

// Current returns the internal id the cursor stopped on.
func (e *DepartureEnumerator) Current() models.InternalID {
	return e.current
}

// CurrentTime returns the departure time the cursor stopped on. This is the
// clock consumed by the scanners and the metric guesser.
func (e *DepartureEnumerator) CurrentTime() uint64 {
	return e.currentTime
}

// CurrentConnection fills c with the connection the cursor stopped on.
func (e *DepartureEnumerator) CurrentConnection(c *models.Connection) bool {
	return e.db.Get(models.ConnectionID{Database: e.db.DatabaseID, Internal: e.current}, c)
}

// MoveNext advances to the connection with the smallest departure time at or
// after the current time. It returns false once the cursor moved past the
// latest stored departure.
func (e *DepartureEnumerator) MoveNext() bool {
	if e.db.Count() == 0 {
		return false
	}
	idx := e.db.depIndex

windows:
	for {
		if e.currentTime > e.db.latestDate {
			return false
		}
		w := idx.windowFor(e.currentTime)
		m := idx.meta[w]
		if m.size == 0 {
			if !e.nextWindow() {
				return false
			}
			continue
		}
		if e.indexInWindow == indexUnset || e.indexInWindow == windowExhausted {
			e.indexInWindow = idx.searchLeft(w, e.currentTime)
			e.alreadyUsed[w] = e.indexInWindow
		}
		for e.indexInWindow < m.size {
			id := models.InternalID(idx.body[m.pointer+e.indexInWindow])
			depTime := idx.store.departure(id)
			e.indexInWindow++
			if depTime < e.currentTime {
				// leftover from a previous cycle
				continue
			}
			if depTime-e.currentTime >= uint64(idx.windowSeconds) {
				// the entry belongs to a later cycle; the true successor
				// lives in a later window, so back the cursor off and move on
				e.indexInWindow--
				e.alreadyUsed[w] = e.indexInWindow
				if !e.nextWindow() {
					return false
				}
				continue windows
			}
			e.alreadyUsed[w] = e.indexInWindow
			e.currentTime = depTime
			e.current = id
			return true
		}
		e.alreadyUsed[w] = e.indexInWindow
		if !e.nextWindow() {
			return false
		}
	}
}

// nextWindow advances the cursor to the start of the following window and
// restores the resume index recorded for it.
func (e *DepartureEnumerator) nextWindow() bool {
	idx := e.db.depIndex
	windowStart := e.currentTime - e.currentTime%uint64(idx.windowSeconds)
	e.currentTime = windowStart + uint64(idx.windowSeconds)
	if e.currentTime > e.db.latestDate {
		return false
	}
	e.indexInWindow = e.alreadyUsed[idx.windowFor(e.currentTime)]
	return true
}

// MovePrevious retreats to the connection with the largest departure time at
// or before the current time. It returns false once the cursor moved before
// the earliest stored departure.
func (e *DepartureEnumerator) MovePrevious() bool {
	if e.db.Count() == 0 {
		return false
	}
	idx := e.db.depIndex

windows:
	for {
		if e.currentTime < e.db.earliestDate {
			return false
		}
		w := idx.windowFor(e.currentTime)
		m := idx.meta[w]
		if m.size == 0 || e.indexInWindow == windowExhausted {
			if !e.previousWindow() {
				return false
			}
			continue
		}
		if e.indexInWindow == indexUnset {
			right, ok := idx.searchRight(w, e.currentTime)
			if !ok {
				// every entry departs after the cursor, and backward motion
				// only makes that worse
				e.indexInWindow = windowExhausted
				e.alreadyUsed[w] = windowExhausted
				if !e.previousWindow() {
					return false
				}
				continue
			}
			e.indexInWindow = right
			e.alreadyUsed[w] = e.indexInWindow
		}
		for {
			id := models.InternalID(idx.body[m.pointer+e.indexInWindow])
			depTime := idx.store.departure(id)
			atFloor := e.indexInWindow == 0
			if !atFloor {
				e.indexInWindow--
			}
			if depTime > e.currentTime {
				// leftover from a later cycle
				if atFloor {
					e.indexInWindow = windowExhausted
					e.alreadyUsed[w] = windowExhausted
					if !e.previousWindow() {
						return false
					}
					continue windows
				}
				continue
			}
			if e.currentTime-depTime >= uint64(idx.windowSeconds) {
				// earlier cycle; the true predecessor lives in an earlier
				// window, so restore the cursor and move on
				if !atFloor {
					e.indexInWindow++
				}
				e.alreadyUsed[w] = e.indexInWindow
				if !e.previousWindow() {
					return false
				}
				continue windows
			}
			if atFloor {
				e.indexInWindow = windowExhausted
				e.alreadyUsed[w] = windowExhausted
			} else {
				e.alreadyUsed[w] = e.indexInWindow
			}
			e.currentTime = depTime
			e.current = id
			return true
		}
	}
}

// previousWindow retreats the cursor to the last second of the preceding
// window, guarding against underflow at the epoch.
func (e *DepartureEnumerator) previousWindow() bool {
	idx := e.db.depIndex
	windowStart := e.currentTime - e.currentTime%uint64(idx.windowSeconds)
	if windowStart == 0 {
		return false
	}
	e.currentTime = windowStart - 1
	if e.currentTime < e.db.earliestDate {
		return false
	}
	e.indexInWindow = e.alreadyUsed[idx.windowFor(e.currentTime)]
	return true
}
