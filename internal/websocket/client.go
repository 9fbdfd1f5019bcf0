package websocket

import (
	"errors"
	"sync"
	"time"

	"yatube/internal/interfaces"
	"yatube/pkg/config"
	"yatube/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 512
	sendBufferSize        = 256
)

var (
	ErrSendBufferFull = errors.New("client send buffer is full")
	ErrClientClosed   = errors.New("client is closed")
)

// Client is a read-only feed subscriber. Anything the browser sends is
// discarded; reads only keep the pong deadline moving.
type Client struct {
	ID    string
	Conn  *websocket.Conn
	Send  chan []byte
	group string

	mu      sync.RWMutex
	closed  bool
	manager interfaces.ConnectionManager

	writeWait      time.Duration
	pongWait       time.Duration
	maxMessageSize int64
}

func NewClient(conn *websocket.Conn, groupSlug string, manager interfaces.ConnectionManager) *Client {
	wsConfig := config.GlobalConfig.WebSocket

	c := &Client{
		ID:             uuid.NewString(),
		Conn:           conn,
		Send:           make(chan []byte, sendBufferSize),
		group:          groupSlug,
		manager:        manager,
		writeWait:      time.Duration(wsConfig.WriteWaitSeconds) * time.Second,
		pongWait:       time.Duration(wsConfig.PongWaitSeconds) * time.Second,
		maxMessageSize: int64(wsConfig.MaxMessageSize),
	}
	if c.writeWait <= 0 {
		c.writeWait = defaultWriteWait
	}
	if c.pongWait <= 0 {
		c.pongWait = defaultPongWait
	}
	if c.maxMessageSize <= 0 {
		c.maxMessageSize = defaultMaxMessageSize
	}
	return c
}

func (c *Client) GroupSlug() string {
	return c.group
}

// QueueBytes never blocks; a full buffer is reported to the hub, which decides
// whether to retry or drop the client.
func (c *Client) QueueBytes(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops WritePump, which in turn closes the connection. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

func (c *Client) pingPeriod() time.Duration {
	return (c.pongWait * 9) / 10
}

func (c *Client) ReadPump() {
	defer func() {
		c.manager.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L.Warn("Unexpected feed close", zap.String("clientID", c.ID), zap.Error(err))
			} else {
				logger.L.Debug("Feed client read ended", zap.String("clientID", c.ID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod())
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.L.Warn("Failed to write feed event", zap.String("clientID", c.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.L.Debug("Failed to send ping", zap.String("clientID", c.ID), zap.Error(err))
				return
			}
		}
	}
}
