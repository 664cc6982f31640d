package relay

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 32
)

// Client is one open signaling connection. The hub references it via
// topic membership; the connection's pumps own its lifetime.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	topics map[string]struct{} // guarded by hub.mu
	alive  atomic.Bool
	logger *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.NewString()
	c := &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		topics: make(map[string]struct{}),
		logger: hub.logger.With(zap.String("conn", id)),
	}
	c.alive.Store(true)
	return c
}

// readPump reads frames until the connection dies. Malformed frames are
// logged and ignored; they never terminate the connection.
func (c *Client) readPump() {
	defer c.hub.drop(c)
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("connection read failed", zap.Error(err))
			}
			return
		}
		frame, err := ParseFrame(raw)
		if err != nil {
			c.logger.Warn("ignoring malformed frame", zap.Error(err))
			continue
		}
		c.hub.handle(c, frame)
	}
}

// writePump is the only goroutine writing data frames to the
// connection. It exits when the hub closes the send channel.
func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
}
