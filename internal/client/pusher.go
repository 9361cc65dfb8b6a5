package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/dmitrijs2005/registadb/internal/server/models"
	"github.com/dmitrijs2005/registadb/internal/wire"
	"github.com/gorilla/websocket"
)

// Pusher sends entries to the ingest channel. The channel never replies,
// so a successful Push only means the frame was written.
type Pusher struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialIngest opens a WebSocket to url, e.g. ws://localhost:5555/ingest.
func DialIngest(ctx context.Context, url, accessToken string) (*Pusher, error) {
	header := http.Header{}
	if accessToken != "" {
		header.Set(common.AuthorizationHeaderName, common.BearerPrefix+accessToken)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Pusher{conn: conn}, nil
}

// Push writes e as one binary frame. Safe for concurrent use.
func (p *Pusher) Push(e *models.Entry) error {
	b, err := wire.MarshalEntry(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.BinaryMessage, b)
}

// Close sends a close frame and waits briefly for the server to finish
// reading, so frames written before Close are not lost.
func (p *Pusher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	werr := p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

	// the server answers with its own close frame once it has read ours
	_ = p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			break
		}
	}

	return errors.Join(werr, p.conn.Close())
}
