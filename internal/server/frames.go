package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/ghostcanvas/pkg/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 1 << 20
)

// wsFrame is a preview window connected over a WebSocket.
type wsFrame struct {
	id, page string
	conn     *websocket.Conn

	// mu serializes writers; gorilla allows one concurrent writer.
	mu sync.Mutex
}

func (f *wsFrame) ID() string     { return f.id }
func (f *wsFrame) PageID() string { return f.page }

// Send writes msg as one JSON text message.
func (f *wsFrame) Send(ctx context.Context, msg protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = f.conn.SetWriteDeadline(deadline)
	return f.conn.WriteJSON(msg)
}

func (f *wsFrame) ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// handleFrameSocket upgrades the request and pumps frame messages into the
// session's host until the socket closes.
func (s *Server) handleFrameSocket(w http.ResponseWriter, r *http.Request) {
	host := sessionFrom(r).Host
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	f := &wsFrame{
		id:   chi.URLParam(r, "frameID"),
		page: r.URL.Query().Get("page"),
		conn: conn,
	}
	host.Register(f)
	s.logger.Info("frame connected", "frame", f.id, "page", f.page)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		host.Release(f)
		_ = conn.Close()
		s.logger.Info("frame disconnected", "frame", f.id)
	}()
	go s.keepAlive(ctx, f)

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("frame socket closed unexpectedly", "frame", f.id, "err", err)
			}
			return
		}
		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("malformed frame message", "frame", f.id, "err", err)
			continue
		}
		if err := host.Receive(ctx, f.id, msg); err != nil {
			s.logger.Debug("frame message rejected", "frame", f.id, "type", msg.Type, "err", err)
		}
	}
}

func (s *Server) keepAlive(ctx context.Context, f *wsFrame) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.ping(); err != nil {
				return
			}
		}
	}
}
