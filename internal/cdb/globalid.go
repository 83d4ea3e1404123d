package cdb

import "github.com/EmileSonneveld/itinero-transit/internal/models"

const (
	globalIDBuckets = 65535
	noLink          = 0xFFFFFFFF
)

// globalIDIndex maps upstream feed identifiers to internal ids. Buckets head
// into a flat linked-list pool of (internalId, next) pairs. The index only
// ever grows: AddOrUpdate on a known global id leaves the chains untouched.
type globalIDIndex struct {
	bucketHeads []uint32
	linkedList  []uint32 // pairs: linkedList[p] = internal id, linkedList[p+1] = next pair offset
	nextPointer uint32
}

func newGlobalIDIndex() *globalIDIndex {
	idx := &globalIDIndex{
		bucketHeads: make([]uint32, globalIDBuckets),
	}
	for i := range idx.bucketHeads {
		idx.bucketHeads[i] = noLink
	}
	return idx
}

// hashGlobalID is the classical 23*31 rolling polynomial, folded into the
// bucket range.
func hashGlobalID(s string) uint32 {
	h := uint32(23)
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h % globalIDBuckets
}

// add appends internal id i to the bucket chain for globalID. The caller
// must have checked that globalID is not present yet.
func (g *globalIDIndex) add(globalID string, i models.InternalID) {
	p := g.nextPointer
	g.nextPointer += 2
	bucket := hashGlobalID(globalID)
	g.linkedList = append(g.linkedList, uint32(i), g.bucketHeads[bucket])
	g.bucketHeads[bucket] = p
}

// get walks the bucket chain for globalID and verifies each candidate
// against the side array of stored global ids.
func (g *globalIDIndex) get(globalID string, globalIDs []string) (models.InternalID, bool) {
	p := g.bucketHeads[hashGlobalID(globalID)]
	for p != noLink {
		i := models.InternalID(g.linkedList[p])
		if int(i) < len(globalIDs) && globalIDs[i] == globalID {
			return i, true
		}
		p = g.linkedList[p+1]
	}
	return 0, false
}

func (g *globalIDIndex) clone() *globalIDIndex {
	return &globalIDIndex{
		bucketHeads: append([]uint32(nil), g.bucketHeads...),
		linkedList:  append([]uint32(nil), g.linkedList...),
		nextPointer: g.nextPointer,
	}
}
