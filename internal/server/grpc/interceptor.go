package grpc

import (
	"context"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	requestIDKey ctxKey = "requestID"
	subjectKey   ctxKey = "subject"
)

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *GRPCServer) requestIDInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	return handler(context.WithValue(ctx, requestIDKey, uuid.NewString()), req)
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if !s.verifier.Enabled() {
		return handler(ctx, req)
	}

	var value string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AuthorizationHeaderName)
		if len(values) > 0 {
			value = values[0]
		}
	}
	if len(value) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	subject, err := s.verifier.Check(value)
	if err != nil {
		s.logger.Warn(ctx, "rejected query", "request_id", requestIDFromContext(ctx), "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(context.WithValue(ctx, subjectKey, subject), req)
}
