package storage

import (
	"encoding/binary"
	"math"
)

const (
	// PrimaryKeyLen is the size of a data namespace key: inverted timestamp then id.
	PrimaryKeyLen = 16
	// IndexKeyLen is the size of an index namespace key: inverted id.
	IndexKeyLen = 8
)

// EncodePrimaryKey builds the data namespace key for an entry. The timestamp
// is stored as MaxUint64-ts so a forward scan yields newest first; the id
// keeps keys unique among entries sharing a timestamp.
func EncodePrimaryKey(ts, id uint64) []byte {
	key := make([]byte, PrimaryKeyLen)
	binary.BigEndian.PutUint64(key[:8], math.MaxUint64-ts)
	binary.BigEndian.PutUint64(key[8:], id)
	return key
}

// DecodePrimaryKey is the inverse of EncodePrimaryKey. It panics if key is
// shorter than PrimaryKeyLen.
func DecodePrimaryKey(key []byte) (ts, id uint64) {
	_ = key[PrimaryKeyLen-1]
	return math.MaxUint64 - binary.BigEndian.Uint64(key[:8]), binary.BigEndian.Uint64(key[8:16])
}

// EncodeIndexKey builds the index namespace key for id, inverted so that the
// first key in the namespace belongs to the highest id.
func EncodeIndexKey(id uint64) []byte {
	key := make([]byte, IndexKeyLen)
	binary.BigEndian.PutUint64(key, math.MaxUint64-id)
	return key
}

// DecodeIndexKey is the inverse of EncodeIndexKey. It panics if key is
// shorter than IndexKeyLen.
func DecodeIndexKey(key []byte) uint64 {
	_ = key[IndexKeyLen-1]
	return math.MaxUint64 - binary.BigEndian.Uint64(key[:8])
}
