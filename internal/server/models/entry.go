// Package models holds the server-side domain types: the stored Entry with
// its tagged payload, and the Request/Response pair consumed by the executor.
package models

import (
	"bytes"
	"time"
)

// Entry is the stored unit. ID 0 means "unassigned".
type Entry struct {
	ID        uint64
	CreatedAt time.Time
	UpdatedAt time.Time
	Payload   Payload
	Metadata  map[string]string
}

// Clone returns a deep copy so callers can normalize an entry without
// touching the caller's value.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if e.Payload != nil {
		c.Payload = e.Payload.clone()
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// PayloadKind names the active payload variant.
type PayloadKind int

const (
	KindNone PayloadKind = iota
	KindBlob
	KindList
	KindMap
)

func (k PayloadKind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "none"
	}
}

// Payload is a closed sum type: Blob, List or Map. The unexported method
// keeps other packages from adding variants, so type switches over the
// three cases are exhaustive.
type Payload interface {
	Kind() PayloadKind
	clone() Payload
}

// Blob is a single opaque scalar. Embedded zero bytes are preserved.
type Blob []byte

// List is an ordered list of scalars.
type List [][]byte

// Pair is one key/scalar element of a Map.
type Pair struct {
	Key   string
	Value []byte
}

// Map is an ordered mapping of string to scalar. Order is insertion order.
type Map []Pair

func (Blob) Kind() PayloadKind { return KindBlob }
func (List) Kind() PayloadKind { return KindList }
func (Map) Kind() PayloadKind  { return KindMap }

func (b Blob) clone() Payload {
	return Blob(bytes.Clone(b))
}

func (l List) clone() Payload {
	out := make(List, len(l))
	for i, v := range l {
		out[i] = bytes.Clone(v)
	}
	return out
}

func (m Map) clone() Payload {
	out := make(Map, len(m))
	for i, p := range m {
		out[i] = Pair{Key: p.Key, Value: bytes.Clone(p.Value)}
	}
	return out
}

// Get returns the value of the first pair with the given key.
func (m Map) Get(key string) ([]byte, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// KindOf reports the variant of p, KindNone for nil.
func KindOf(p Payload) PayloadKind {
	if p == nil {
		return KindNone
	}
	return p.Kind()
}
