// Package grpc serves the query channel: a unary registadb.Query/Execute
// method whose messages are encoded by the wire codec.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/registadb/internal/logging"
	"github.com/dmitrijs2005/registadb/internal/server/auth"
	"github.com/dmitrijs2005/registadb/internal/server/models"
	"google.golang.org/grpc"
)

// Executor runs one request against the storage core.
type Executor interface {
	Execute(ctx context.Context, req models.Request) models.Response
}

type GRPCServer struct {
	address  string
	executor Executor
	logger   logging.Logger
	verifier *auth.Verifier
}

func NewGRPCServer(a string, l logging.Logger, x Executor, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		executor: x,
		verifier: auth.NewVerifier(secretKey),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.requestIDInterceptor, s.accessTokenInterceptor))
	srv.RegisterService(&QueryServiceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
