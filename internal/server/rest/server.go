// Package rest exposes the executor over HTTP. Bodies are JSON unless the
// client asks for the protobuf encoding through Content-Type or Accept.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/registadb/internal/logging"
	"github.com/dmitrijs2005/registadb/internal/server/auth"
	"github.com/dmitrijs2005/registadb/internal/server/models"
	"github.com/dmitrijs2005/registadb/internal/server/repositories/entries"
	"github.com/gorilla/mux"
)

// Executor runs requests and pages through entries.
type Executor interface {
	Execute(ctx context.Context, req models.Request) models.Response
	List(ctx context.Context, cursor []byte, limit int) (*entries.Page, error)
}

const (
	maxBodySize      = 16 << 20
	defaultPageLimit = 50
	maxPageLimit     = 1000
)

type RESTServer struct {
	address  string
	executor Executor
	logger   logging.Logger
	verifier *auth.Verifier
}

func NewRESTServer(a string, l logging.Logger, x Executor, secretKey string) *RESTServer {
	return &RESTServer{
		address:  a,
		executor: x,
		logger:   l.With("module", "rest_server"),
		verifier: auth.NewVerifier(secretKey),
	}
}

// Handler returns the router. /healthz is never behind auth.
func (s *RESTServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/entries").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", s.handleRead).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}", s.handleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/{id:[0-9]+}", s.handleDelete).Methods(http.MethodDelete)

	return r
}

func (s *RESTServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting REST server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
