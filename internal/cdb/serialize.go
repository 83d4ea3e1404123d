package cdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/EmileSonneveld/itinero-transit/internal/models"
)

// formatVersion is the on-disk format this package reads and writes.
// Version 1 carried an arrival-time index mirror; version 2 dropped it.
const formatVersion = 2

// ErrIncompatibleVersion is returned by ReadFrom when the stream was written
// by a different format version.
var ErrIncompatibleVersion = errors.New("connections db: incompatible format version")

// WriteTo serializes the database. The database id is not part of the
// stream; it is assigned again on load.
func (db *ConnectionsDb) WriteTo(w io.Writer) error {
	sw := &streamWriter{w: w}

	sw.byte(formatVersion)
	sw.blob(db.store.data)
	sw.blob(encodeGlobalIDs(db.globalIDs))
	sw.blob(encodeUint32s(internalIDsToUint32s(db.tripIDs)))
	sw.blob(encodeUint32s(db.idIndex.bucketHeads))
	sw.blob(encodeUint32s(db.idIndex.linkedList))
	sw.uint32(db.idIndex.nextPointer)
	sw.blob(encodeWindowMeta(db.depIndex.meta))
	sw.blob(encodeUint32s(db.depIndex.body))
	sw.uint32(db.depIndex.nextPointer)
	sw.uint32(db.depIndex.windowSeconds)
	sw.uint32(db.depIndex.windowCount)
	sw.uint32(uint32(db.nextInternalID))
	sw.uint64(db.earliestDate)
	sw.uint64(db.latestDate)
	return sw.err
}

// ReadFrom deserializes a database written by WriteTo into a fresh instance
// carrying the given database id.
func ReadFrom(r io.Reader, id models.DatabaseID) (*ConnectionsDb, error) {
	sr := &streamReader{r: r}

	version := sr.byte()
	if sr.err != nil {
		return nil, sr.err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, version, formatVersion)
	}

	data := sr.blob()
	globalIDs, err := decodeGlobalIDs(sr.blob())
	if err != nil && sr.err == nil {
		return nil, err
	}
	tripIDs := decodeUint32s(sr.blob())
	bucketHeads := decodeUint32s(sr.blob())
	linkedList := decodeUint32s(sr.blob())
	linkedListPointer := sr.uint32()
	meta := decodeWindowMeta(sr.blob())
	body := decodeUint32s(sr.blob())
	bodyPointer := sr.uint32()
	windowSeconds := sr.uint32()
	windowCount := sr.uint32()
	nextInternalID := sr.uint32()
	earliest := sr.uint64()
	latest := sr.uint64()
	if sr.err != nil {
		return nil, sr.err
	}
	if len(bucketHeads) != globalIDBuckets {
		return nil, fmt.Errorf("connections db: bucket head table has %d entries, want %d", len(bucketHeads), globalIDBuckets)
	}
	if uint32(len(meta)) != windowCount {
		return nil, fmt.Errorf("connections db: window meta has %d entries, want %d", len(meta), windowCount)
	}

	store := &packedStore{data: data}
	db := &ConnectionsDb{
		DatabaseID: id,
		store:      store,
		globalIDs:  globalIDs,
		tripIDs:    uint32sToInternalIDs(tripIDs),
		idIndex: &globalIDIndex{
			bucketHeads: bucketHeads,
			linkedList:  linkedList,
			nextPointer: linkedListPointer,
		},
		depIndex: &departureIndex{
			windowSeconds: windowSeconds,
			windowCount:   windowCount,
			meta:          meta,
			body:          body,
			nextPointer:   bodyPointer,
			store:         store,
		},
		nextInternalID: models.InternalID(nextInternalID),
		earliestDate:   earliest,
		latestDate:     latest,
	}
	return db, nil
}

type streamWriter struct {
	w   io.Writer
	err error
}

func (s *streamWriter) write(p []byte) {
	if s.err != nil {
		return
	}
	_, s.err = s.w.Write(p)
}

func (s *streamWriter) byte(b uint8) {
	s.write([]byte{b})
}

func (s *streamWriter) uint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	s.write(buf[:])
}

func (s *streamWriter) uint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	s.write(buf[:])
}

func (s *streamWriter) blob(p []byte) {
	s.uint64(uint64(len(p)))
	s.write(p)
}

type streamReader struct {
	r   io.Reader
	err error
}

func (s *streamReader) read(p []byte) {
	if s.err != nil {
		return
	}
	_, s.err = io.ReadFull(s.r, p)
}

func (s *streamReader) byte() uint8 {
	var buf [1]byte
	s.read(buf[:])
	return buf[0]
}

func (s *streamReader) uint32() uint32 {
	var buf [4]byte
	s.read(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func (s *streamReader) uint64() uint64 {
	var buf [8]byte
	s.read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func (s *streamReader) blob() []byte {
	n := s.uint64()
	if s.err != nil {
		return nil
	}
	p := make([]byte, n)
	s.read(p)
	return p
}

func encodeUint32s(vs []uint32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func decodeUint32s(p []byte) []uint32 {
	out := make([]uint32, len(p)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(p[4*i:])
	}
	return out
}

func encodeWindowMeta(meta []windowMeta) []byte {
	out := make([]byte, 8*len(meta))
	for i, m := range meta {
		binary.LittleEndian.PutUint32(out[8*i:], m.pointer)
		binary.LittleEndian.PutUint32(out[8*i+4:], m.size)
	}
	return out
}

func decodeWindowMeta(p []byte) []windowMeta {
	out := make([]windowMeta, len(p)/8)
	for i := range out {
		out[i].pointer = binary.LittleEndian.Uint32(p[8*i:])
		out[i].size = binary.LittleEndian.Uint32(p[8*i+4:])
	}
	return out
}

func encodeGlobalIDs(ids []string) []byte {
	var out []byte
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(len(ids)))
	out = append(out, buf[:]...)
	for _, id := range ids {
		binary.LittleEndian.PutUint32(buf[:], uint32(len(id)))
		out = append(out, buf[:]...)
		out = append(out, id...)
	}
	return out
}

func decodeGlobalIDs(p []byte) ([]string, error) {
	if len(p) < 4 {
		return nil, errors.New("connections db: truncated global id blob")
	}
	count := binary.LittleEndian.Uint32(p)
	p = p[4:]
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(p) < 4 {
			return nil, errors.New("connections db: truncated global id blob")
		}
		n := binary.LittleEndian.Uint32(p)
		p = p[4:]
		if uint32(len(p)) < n {
			return nil, errors.New("connections db: truncated global id blob")
		}
		out = append(out, string(p[:n]))
		p = p[n:]
	}
	return out, nil
}

func internalIDsToUint32s(ids []models.InternalID) []uint32 {
	out := make([]uint32, len(ids))
	for i, v := range ids {
		out[i] = uint32(v)
	}
	return out
}

func uint32sToInternalIDs(vs []uint32) []models.InternalID {
	out := make([]models.InternalID, len(vs))
	for i, v := range vs {
		out[i] = models.InternalID(v)
	}
	return out
}
