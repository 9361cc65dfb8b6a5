package wire

import (
	"github.com/dmitrijs2005/registadb/internal/server/models"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	requestOp    protowire.Number = 1
	requestID    protowire.Number = 2
	requestEntry protowire.Number = 3

	responseStatus  protowire.Number = 1
	responseMessage protowire.Number = 2
	responseEntry   protowire.Number = 3
)

func MarshalRequest(r *models.Request) ([]byte, error) {
	var b []byte
	if r.Op != models.OpUnspecified {
		b = protowire.AppendTag(b, requestOp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.Op))
	}
	if r.ID != 0 {
		b = protowire.AppendTag(b, requestID, protowire.VarintType)
		b = protowire.AppendVarint(b, r.ID)
	}
	if r.Entry != nil {
		inner, err := MarshalEntry(r.Entry)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, requestEntry, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	}
	return b, nil
}

func UnmarshalRequest(b []byte) (*models.Request, error) {
	r := &models.Request{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, varint uint64) error {
		switch num {
		case requestOp:
			if typ != protowire.VarintType {
				return wrongType(num, typ)
			}
			r.Op = models.Operation(int32(varint))
		case requestID:
			if typ != protowire.VarintType {
				return wrongType(num, typ)
			}
			r.ID = varint
		case requestEntry:
			if typ != protowire.BytesType {
				return wrongType(num, typ)
			}
			e, err := UnmarshalEntry(v)
			if err != nil {
				return err
			}
			r.Entry = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func MarshalResponse(r *models.Response) ([]byte, error) {
	var b []byte
	if r.Status != models.StatusOK {
		b = protowire.AppendTag(b, responseStatus, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.Status))
	}
	if r.Message != "" {
		b = protowire.AppendTag(b, responseMessage, protowire.BytesType)
		b = protowire.AppendString(b, r.Message)
	}
	if r.Entry != nil {
		inner, err := MarshalEntry(r.Entry)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, responseEntry, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	}
	return b, nil
}

func UnmarshalResponse(b []byte) (*models.Response, error) {
	r := &models.Response{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, varint uint64) error {
		switch num {
		case responseStatus:
			if typ != protowire.VarintType {
				return wrongType(num, typ)
			}
			r.Status = models.Status(int32(varint))
		case responseMessage:
			if typ != protowire.BytesType {
				return wrongType(num, typ)
			}
			r.Message = string(v)
		case responseEntry:
			if typ != protowire.BytesType {
				return wrongType(num, typ)
			}
			e, err := UnmarshalEntry(v)
			if err != nil {
				return err
			}
			r.Entry = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}
