package chathub

import (
	"campusconnect/backend/internal/config"
	"campusconnect/backend/internal/models"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketClient is the Connection backed by a gorilla websocket. A
// single writePump owns all writes to the socket.
type WebSocketClient struct {
	ID     string
	UserID string

	conn *websocket.Conn
	send chan models.Event
	cfg  config.GatewayConfig
	log  *slog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewWebSocketClient(conn *websocket.Conn, userID string, cfg config.GatewayConfig, log *slog.Logger) *WebSocketClient {
	id := uuid.NewString()
	return &WebSocketClient{
		ID:     id,
		UserID: userID,
		conn:   conn,
		send:   make(chan models.Event, cfg.SendBuffer),
		cfg:    cfg,
		log:    log.With("conn_id", id, "user_id", userID),
		done:   make(chan struct{}),
	}
}

func (c *WebSocketClient) Send(evt models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- evt:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and releases the socket.
func (c *WebSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Done is closed once the write pump has exited and the socket is closed.
func (c *WebSocketClient) Done() <-chan struct{} {
	return c.done
}

// readPump delivers inbound frames to handle, one at a time, until the
// transport fails or the peer stops answering pings.
func (c *WebSocketClient) readPump(handle func([]byte)) {
	c.conn.SetReadLimit(c.cfg.MaxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.Warn("websocket read failed", "error", err)
			}
			return
		}
		handle(data)
	}
}

// writePump drains the send queue onto the socket and keeps the peer alive
// with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case evt, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := json.Marshal(evt)
			if err != nil {
				c.log.Error("failed to encode event", "type", evt.Type, "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("websocket write failed", "error", err)
				c.markClosed()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.markClosed()
				return
			}
		}
	}
}

// markClosed makes further Sends fail after the write side has died.
func (c *WebSocketClient) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
