package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/dmitrijs2005/registadb/internal/server/models"
	"github.com/dmitrijs2005/registadb/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type QueryClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *QueryClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewQueryClient prepares a client for endpointURL. The connection is made
// lazily on the first call. An empty accessToken sends no authorization.
func NewQueryClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*QueryClient, error) {
	c := &QueryClient{endpointURL: endpointURL, accessToken: accessToken}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(wire.CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (s *QueryClient) Close() error {
	return s.conn.Close()
}

// Execute sends req and returns the server's response. Non-OK statuses are
// not errors; only transport and auth failures are.
func (s *QueryClient) Execute(ctx context.Context, req *models.Request) (*models.Response, error) {
	resp := new(models.Response)
	if err := s.conn.Invoke(ctx, wire.QueryExecuteMethod, req, resp); err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *QueryClient) Create(ctx context.Context, e *models.Entry) (*models.Response, error) {
	return s.Execute(ctx, &models.Request{Op: models.OpCreate, Entry: e})
}

func (s *QueryClient) Read(ctx context.Context, id uint64) (*models.Response, error) {
	return s.Execute(ctx, &models.Request{Op: models.OpRead, ID: id})
}

func (s *QueryClient) Update(ctx context.Context, id uint64, e *models.Entry) (*models.Response, error) {
	return s.Execute(ctx, &models.Request{Op: models.OpUpdate, ID: id, Entry: e})
}

func (s *QueryClient) Delete(ctx context.Context, id uint64) (*models.Response, error) {
	return s.Execute(ctx, &models.Request{Op: models.OpDelete, ID: id})
}

func (s *QueryClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
