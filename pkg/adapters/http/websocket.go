package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 64 * 1024
)

// wsInbound is a client frame. Plain-text frames are accepted too.
type wsInbound struct {
	Message string `json:"message"`
}

// wsOutbound wraps replies and errors sent to the client.
type wsOutbound struct {
	Reply *domain.Message `json:"reply,omitempty"`
	Error string          `json:"error,omitempty"`
}

// wsConn serialises writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (c *wsConn) send(v wsOutbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.conn.Close() //nolint:errcheck
	}
}

// chatSocket streams a user's conversation over one WebSocket. Messages are
// queued on the user's mailbox, so replies come back in arrival order. If the
// socket drops mid-turn the turn still completes and its reply is discarded.
func (s *Server) chatSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "user_id", userID, "err", err)
		return
	}
	conn := &wsConn{conn: raw}
	defer conn.close()

	raw.SetReadLimit(wsMaxMessage)
	raw.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	go s.keepAlive(ctx, conn)

	s.logger.Debug("WebSocket connected", "user_id", userID)
	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket read failed", "user_id", userID, "err", err)
			}
			return
		}
		text := decodeFrame(data)

		err = s.mailbox.Submit(userID, func() {
			// Turns still queued when the socket closed are dropped; a started
			// one runs to completion.
			if ctx.Err() != nil {
				return
			}
			reply, err := s.engine.HandleTurn(context.WithoutCancel(ctx), userID, text)
			out := wsOutbound{Reply: &reply}
			if err != nil {
				out = wsOutbound{Error: err.Error()}
			}
			if werr := conn.send(out); werr != nil {
				s.logger.Debug("Discarding reply for closed socket", "user_id", userID, "turn", reply.Turn)
			}
		})
		if err != nil {
			conn.send(wsOutbound{Error: err.Error()}) //nolint:errcheck
			return
		}
	}
}

func (s *Server) keepAlive(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

func decodeFrame(data []byte) string {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "{") {
		var in wsInbound
		if err := json.Unmarshal(data, &in); err == nil {
			return in.Message
		}
	}
	return text
}
