package badger

import (
	"encoding/binary"
	"time"
)

// Key prefixes for different data types
const (
	runPrefix      = "run:"
	runStartPrefix = "runs:"
)

// makeRunKey generates a key for a run by ID.
func makeRunKey(id string) []byte {
	return []byte(runPrefix + id)
}

// makeRunStartKey generates a composite key for the start time index.
// Format: prefix:timestamp:id
func makeRunStartKey(startedAt time.Time, id string) []byte {
	prefixBytes := []byte(runStartPrefix)
	buf := make([]byte, len(prefixBytes)+8+len(id))
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(startedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}
