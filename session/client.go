package session

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/djkaif/Scribble-bot/shared/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// Client wraps one live websocket connection. Writes go through a
// buffered channel so a slow reader never blocks a broadcast.
type Client struct {
	id      string
	socket  *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	mu     sync.Mutex // guards closed and the send channel's lifetime
	closed bool
}

func NewClient(id string, conn *websocket.Conn) *Client {
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return &Client{
		id:      id,
		socket:  conn,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

func (c *Client) ID() string {
	return c.id
}

// ReadPump consumes inbound frames until the connection dies, then
// invokes done.
func (c *Client) ReadPump(handle func(raw []byte), done func()) {
	defer done()
	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			logger.Debugf("[Session %s] Read ended: %v", c.id, err)
			return
		}
		handle(data)
	}
}

// AllowCommand rate-limits command frames (join, chat, votes). Stroke
// relays bypass it: freehand drawing legitimately emits dozens of
// frames per second.
func (c *Client) AllowCommand() bool {
	return c.limiter.Allow()
}

// WritePump drains the send channel and keeps the connection alive
// with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Enqueue queues data for delivery, dropping it when the buffer is
// full so one stuck connection cannot stall the room. A broadcast
// racing the disconnect lands after CloseSend and is dropped too,
// never written to the closed channel.
func (c *Client) Enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Warningf("[Session %s] Send buffer full, dropping packet", c.id)
	}
}

func (c *Client) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
