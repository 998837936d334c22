package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/watch-party/internal/config"
	"github.com/weiawesome/watch-party/pkg/log"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Membership is the room registration a connection currently holds.
type Membership struct {
	RoomID   string
	MemberID string
}

func (m Membership) Empty() bool {
	return m.RoomID == "" || m.MemberID == ""
}

// Client is one websocket connection. Frames are queued on a bounded
// channel and written by WritePump only.
type Client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	config    config.WebSocketConfig

	mu         sync.Mutex
	membership Membership
}

func NewClient(id string, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	size := cfg.SendBuffer
	if size <= 0 {
		size = 256
	}
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, size),
		done:   make(chan struct{}),
		config: cfg,
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues data for the writer. It never blocks.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

// Close stops the writer, which sends a close frame and closes the socket.
// Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) Membership() Membership {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.membership
}

func (c *Client) SetMembership(m Membership) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.membership = m
}

// ReadPump reads frames in arrival order and hands each one to handler
// before reading the next. It returns when the peer closes, the read
// deadline passes or the connection fails.
func (c *Client) ReadPump(ctx context.Context, handler func(context.Context, []byte)) {
	if c.config.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.config.MaxMessageSize)
	}
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		handler(ctx, message)
	}
}

func (c *Client) extendReadDeadline() {
	if c.config.PongWait > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	}
}

// WritePump is the only goroutine writing to the socket. It also sends
// pings every PingInterval.
func (c *Client) WritePump() {
	interval := c.config.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.setWriteDeadline()
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.setWriteDeadline()
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.setWriteDeadline()
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) setWriteDeadline() {
	if c.config.WriteWait > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
	}
}
