package wire

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/registadb/internal/server/models"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

var (
	// ErrMalformed is returned for bytes that are not a valid encoding.
	ErrMalformed = errors.New("malformed wire data")

	// ErrPayloadMismatch is returned when an entry carries more than one payload variant.
	ErrPayloadMismatch = errors.New("entry payload type mismatch")
)

const (
	entryID        protowire.Number = 1
	entryCreatedAt protowire.Number = 2
	entryUpdatedAt protowire.Number = 3
	entryBlob      protowire.Number = 4
	entryList      protowire.Number = 5
	entryMap       protowire.Number = 6
	entryMetadata  protowire.Number = 7

	listValues protowire.Number = 1
	mapPairs   protowire.Number = 1
	pairKey    protowire.Number = 1
	pairValue  protowire.Number = 2
)

var tsMarshal = proto.MarshalOptions{Deterministic: true}

// MarshalEntry encodes e. The output is deterministic: metadata keys are
// written in sorted order.
func MarshalEntry(e *models.Entry) ([]byte, error) {
	return appendEntry(nil, e)
}

func appendEntry(b []byte, e *models.Entry) ([]byte, error) {
	if e.ID != 0 {
		b = protowire.AppendTag(b, entryID, protowire.VarintType)
		b = protowire.AppendVarint(b, e.ID)
	}

	var err error
	if b, err = appendTimestamp(b, entryCreatedAt, e.CreatedAt); err != nil {
		return nil, err
	}
	if b, err = appendTimestamp(b, entryUpdatedAt, e.UpdatedAt); err != nil {
		return nil, err
	}

	switch p := e.Payload.(type) {
	case nil:
	case models.Blob:
		b = protowire.AppendTag(b, entryBlob, protowire.BytesType)
		b = protowire.AppendBytes(b, p)
	case models.List:
		var inner []byte
		for _, v := range p {
			inner = protowire.AppendTag(inner, listValues, protowire.BytesType)
			inner = protowire.AppendBytes(inner, v)
		}
		b = protowire.AppendTag(b, entryList, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	case models.Map:
		var inner []byte
		for _, pair := range p {
			inner = protowire.AppendTag(inner, mapPairs, protowire.BytesType)
			inner = protowire.AppendBytes(inner, appendPair(nil, pair.Key, pair.Value))
		}
		b = protowire.AppendTag(b, entryMap, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	default:
		return nil, fmt.Errorf("unsupported payload %T", p)
	}

	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b = protowire.AppendTag(b, entryMetadata, protowire.BytesType)
		b = protowire.AppendBytes(b, appendPair(nil, k, []byte(e.Metadata[k])))
	}

	return b, nil
}

func appendPair(b []byte, key string, value []byte) []byte {
	b = protowire.AppendTag(b, pairKey, protowire.BytesType)
	b = protowire.AppendString(b, key)
	b = protowire.AppendTag(b, pairValue, protowire.BytesType)
	return protowire.AppendBytes(b, value)
}

func appendTimestamp(b []byte, num protowire.Number, t time.Time) ([]byte, error) {
	if t.IsZero() {
		return b, nil
	}
	raw, err := tsMarshal.Marshal(timestamppb.New(t))
	if err != nil {
		return nil, fmt.Errorf("timestamp field %d: %w", num, err)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, raw), nil
}

// UnmarshalEntry decodes an entry produced by MarshalEntry or by any
// protobuf implementation of the Entry schema.
func UnmarshalEntry(b []byte) (*models.Entry, error) {
	e := &models.Entry{}

	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, varint uint64) error {
		switch num {
		case entryID:
			if typ != protowire.VarintType {
				return wrongType(num, typ)
			}
			e.ID = varint
		case entryCreatedAt, entryUpdatedAt:
			if typ != protowire.BytesType {
				return wrongType(num, typ)
			}
			t, err := decodeTimestamp(v)
			if err != nil {
				return err
			}
			if num == entryCreatedAt {
				e.CreatedAt = t
			} else {
				e.UpdatedAt = t
			}
		case entryBlob:
			if typ != protowire.BytesType {
				return wrongType(num, typ)
			}
			if err := checkVariant(e.Payload, models.KindBlob); err != nil {
				return err
			}
			// non-nil even when empty so an empty blob stays a blob
			e.Payload = models.Blob(append([]byte{}, v...))
		case entryList:
			if typ != protowire.BytesType {
				return wrongType(num, typ)
			}
			if err := checkVariant(e.Payload, models.KindList); err != nil {
				return err
			}
			list, _ := e.Payload.(models.List)
			if list == nil {
				list = models.List{}
			}
			values, err := decodeList(v)
			if err != nil {
				return err
			}
			e.Payload = append(list, values...)
		case entryMap:
			if typ != protowire.BytesType {
				return wrongType(num, typ)
			}
			if err := checkVariant(e.Payload, models.KindMap); err != nil {
				return err
			}
			m, _ := e.Payload.(models.Map)
			if m == nil {
				m = models.Map{}
			}
			pairs, err := decodeMap(v)
			if err != nil {
				return err
			}
			e.Payload = append(m, pairs...)
		case entryMetadata:
			if typ != protowire.BytesType {
				return wrongType(num, typ)
			}
			k, val, err := decodePair(v)
			if err != nil {
				return err
			}
			if e.Metadata == nil {
				e.Metadata = make(map[string]string)
			}
			e.Metadata[k] = string(val)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func checkVariant(current models.Payload, want models.PayloadKind) error {
	if kind := models.KindOf(current); kind != models.KindNone && kind != want {
		return fmt.Errorf("%w: %s and %s both set", ErrPayloadMismatch, kind, want)
	}
	return nil
}

func decodeTimestamp(b []byte) (time.Time, error) {
	ts := &timestamppb.Timestamp{}
	if err := proto.Unmarshal(b, ts); err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrMalformed, err)
	}
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrMalformed, err)
	}
	return ts.AsTime(), nil
}

func decodeList(b []byte) (models.List, error) {
	out := models.List{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != listValues {
			return nil
		}
		if typ != protowire.BytesType {
			return wrongType(num, typ)
		}
		out = append(out, append([]byte{}, v...))
		return nil
	})
	return out, err
}

func decodeMap(b []byte) (models.Map, error) {
	out := models.Map{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != mapPairs {
			return nil
		}
		if typ != protowire.BytesType {
			return wrongType(num, typ)
		}
		k, val, err := decodePair(v)
		if err != nil {
			return err
		}
		out = append(out, models.Pair{Key: k, Value: val})
		return nil
	})
	return out, err
}

func decodePair(b []byte) (string, []byte, error) {
	var key string
	value := []byte{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch num {
		case pairKey:
			if typ != protowire.BytesType {
				return wrongType(num, typ)
			}
			key = string(v)
		case pairValue:
			if typ != protowire.BytesType {
				return wrongType(num, typ)
			}
			value = append([]byte{}, v...)
		}
		return nil
	})
	return key, value, err
}
