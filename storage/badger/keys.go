package badger

import (
	"encoding/binary"

	"github.com/poiesic/classit/core"
)

const (
	vectorRecordPrefix = "vecrec:"
)

// makeVectorKey generates a key for a cached vector.
// Format: prefix + 8 byte big-endian content key.
func makeVectorKey(id core.ID) []byte {
	prefixBytes := []byte(vectorRecordPrefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
