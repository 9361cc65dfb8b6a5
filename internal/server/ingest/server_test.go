package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/dmitrijs2005/registadb/internal/logging"
	"github.com/dmitrijs2005/registadb/internal/server/auth"
	"github.com/dmitrijs2005/registadb/internal/server/models"
	"github.com/dmitrijs2005/registadb/internal/wire"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	mu      sync.Mutex
	creates []*models.Entry
	status  models.Status
}

func (r *recordingExecutor) Execute(_ context.Context, req models.Request) models.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.Op != models.OpCreate {
		return models.Response{Status: models.StatusInvalidArgument}
	}
	r.creates = append(r.creates, req.Entry)
	e := req.Entry.Clone()
	e.ID = uint64(len(r.creates))
	return models.Response{Status: r.status, Entry: e}
}

func (r *recordingExecutor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.creates)
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + Path
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func sendEntry(t *testing.T, conn *websocket.Conn, e *models.Entry) {
	t.Helper()
	b, err := wire.MarshalEntry(e)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, b))
}

func TestIngest_BinaryFramesAreCreated(t *testing.T) {
	x := &recordingExecutor{}
	s := NewIngestServer("", logging.Nop{}, x, "")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)

	sendEntry(t, conn, &models.Entry{Payload: models.Blob("a")})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ignored")))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0xff, 0xff}))
	sendEntry(t, conn, &models.Entry{ID: 12, Payload: models.Map{{Key: "k", Value: []byte("v")}}})

	require.Eventually(t, func() bool { return x.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return s.Dropped() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(2), s.Accepted())

	x.mu.Lock()
	defer x.mu.Unlock()
	assert.Equal(t, models.Blob("a"), x.creates[0].Payload)
	assert.Equal(t, uint64(12), x.creates[1].ID)
}

func TestIngest_RejectedEntriesAreDropped(t *testing.T) {
	x := &recordingExecutor{status: models.StatusInternalError}
	s := NewIngestServer("", logging.Nop{}, x, "")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	sendEntry(t, conn, &models.Entry{Payload: models.Blob("a")})

	require.Eventually(t, func() bool { return s.Dropped() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, s.Accepted())
}

func TestIngest_RequiresTokenWhenConfigured(t *testing.T) {
	s := NewIngestServer("", logging.Nop{}, &recordingExecutor{}, "secret")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	_, resp, err := dial(t, srv, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := auth.GenerateToken("producer", []byte("secret"), time.Minute)
	require.NoError(t, err)
	h := http.Header{}
	h.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	_, _, err = dial(t, srv, h)
	require.NoError(t, err)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := NewIngestServer("127.0.0.1:0", logging.Nop{}, &recordingExecutor{}, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("ingest server did not stop")
	}
}
