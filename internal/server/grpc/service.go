package grpc

import (
	"context"

	"github.com/dmitrijs2005/registadb/internal/server/models"
	"github.com/dmitrijs2005/registadb/internal/wire"
	"google.golang.org/grpc"
)

// QueryServer is the server API of the registadb.Query service.
type QueryServer interface {
	Execute(ctx context.Context, req *models.Request) (*models.Response, error)
}

// QueryServiceDesc describes registadb.Query for grpc.Server.RegisterService.
// There is no generated stub; the messages are encoded by wire.Codec.
var QueryServiceDesc = grpc.ServiceDesc{
	ServiceName: wire.QueryService,
	HandlerType: (*QueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler:    queryExecuteHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "registadb.proto",
}

func queryExecuteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(models.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QueryServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: wire.QueryExecuteMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QueryServer).Execute(ctx, req.(*models.Request))
	}
	return interceptor(ctx, in, info, handler)
}

// Execute runs the request. The outcome, including failures, travels in the
// response status; gRPC errors are reserved for transport and auth.
func (s *GRPCServer) Execute(ctx context.Context, req *models.Request) (*models.Response, error) {
	resp := s.executor.Execute(ctx, *req)

	s.logger.Debug(ctx, "query executed",
		"request_id", requestIDFromContext(ctx),
		"subject", ctx.Value(subjectKey),
		"op", req.Op.String(),
		"id", req.ID,
		"status", resp.Status.String(),
	)

	return &resp, nil
}
