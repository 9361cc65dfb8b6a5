package wire

import (
	"fmt"

	"github.com/dmitrijs2005/registadb/internal/server/models"
	"google.golang.org/grpc/encoding"
)

const (
	// CodecName is the gRPC content-subtype under which Codec is registered.
	CodecName = "registadb"

	// QueryService is the fully qualified name of the query service.
	QueryService = "registadb.Query"
	// QueryExecuteMethod is the full method name of Query.Execute.
	QueryExecuteMethod = "/registadb.Query/Execute"
)

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec lets gRPC carry requests and responses in this package's encoding.
// Clients select it with grpc.CallContentSubtype(CodecName).
type Codec struct{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *models.Request:
		return MarshalRequest(m)
	case *models.Response:
		return MarshalResponse(m)
	default:
		return nil, fmt.Errorf("wire codec: cannot marshal %T", v)
	}
}

func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *models.Request:
		r, err := UnmarshalRequest(data)
		if err != nil {
			return err
		}
		*m = *r
	case *models.Response:
		r, err := UnmarshalResponse(data)
		if err != nil {
			return err
		}
		*m = *r
	default:
		return fmt.Errorf("wire codec: cannot unmarshal into %T", v)
	}
	return nil
}
