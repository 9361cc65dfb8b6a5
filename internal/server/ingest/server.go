// Package ingest serves the push channel: clients stream entries as binary
// WebSocket frames and each frame is executed as a CREATE. Nothing is sent
// back; failures are logged and the frame is dropped.
package ingest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/dmitrijs2005/registadb/internal/logging"
	"github.com/dmitrijs2005/registadb/internal/server/auth"
	"github.com/dmitrijs2005/registadb/internal/server/models"
	"github.com/dmitrijs2005/registadb/internal/wire"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Path is where the ingest endpoint is mounted.
const Path = "/ingest"

// MaxFrameSize bounds a single entry frame.
const MaxFrameSize = 16 << 20

// Executor runs one request against the storage core.
type Executor interface {
	Execute(ctx context.Context, req models.Request) models.Response
}

type IngestServer struct {
	address  string
	executor Executor
	logger   logging.Logger
	verifier *auth.Verifier
	upgrader websocket.Upgrader

	accepted atomic.Uint64
	dropped  atomic.Uint64
}

func NewIngestServer(a string, l logging.Logger, x Executor, secretKey string) *IngestServer {
	return &IngestServer{
		address:  a,
		executor: x,
		logger:   l.With("module", "ingest_server"),
		verifier: auth.NewVerifier(secretKey),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 1024,
			// producers are not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Accepted is the number of frames stored so far.
func (s *IngestServer) Accepted() uint64 { return s.accepted.Load() }

// Dropped is the number of frames that failed to decode or store.
func (s *IngestServer) Dropped() uint64 { return s.dropped.Load() }

// Handler returns the HTTP handler serving Path.
func (s *IngestServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(Path, s.handleIngest).Methods(http.MethodGet)
	return r
}

func (s *IngestServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping ingest server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting ingest server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *IngestServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := s.verifier.Check(r.Header.Get(common.AuthorizationHeaderName)); err != nil {
		s.logger.Warn(ctx, "rejected ingest connection", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(ctx, "websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(MaxFrameSize)

	// hijacked connections outlive http.Server.Shutdown; close on cancel
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	log := s.logger.With("connection_id", uuid.NewString(), "remote", r.RemoteAddr)
	log.Debug(ctx, "ingest connection opened")

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				log.Warn(ctx, "ingest connection closed", "error", err)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		s.ingest(ctx, log, data)
	}
}

func (s *IngestServer) ingest(ctx context.Context, log logging.Logger, frame []byte) {
	entry, err := wire.UnmarshalEntry(frame)
	if err != nil {
		s.dropped.Add(1)
		log.Warn(ctx, "dropping undecodable frame", "size", len(frame), "error", err)
		return
	}

	resp := s.executor.Execute(ctx, models.Request{Op: models.OpCreate, Entry: entry})
	if !resp.OK() {
		s.dropped.Add(1)
		log.Warn(ctx, "dropping rejected entry", "status", resp.Status.String(), "message", resp.Message)
		return
	}

	s.accepted.Add(1)
	log.Debug(ctx, "entry ingested", "id", resp.Entry.ID)
}
