package websocket

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound frames queued per connection before Send reports failure.
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

var errSendUnavailable = errors.New("send queue full or connection closing")

// Client wraps one WebSocket connection behind the non-blocking Sender
// surface the room core expects.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// Send queues a frame for delivery. It never blocks: a full queue or a
// closing connection reports failure so callers treat the peer as gone.
func (c *Client) Send(message []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errSendUnavailable
	}
	c.mu.Unlock()

	select {
	case c.send <- message:
		return nil
	default:
		return errSendUnavailable
	}
}

// Close sends a close frame with the given status code and reason, then
// tears down the connection. Safe to call more than once and from any
// goroutine.
func (c *Client) Close(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	// WriteControl is safe alongside the write pump.
	payload := websocket.FormatCloseMessage(code, reason)
	c.conn.WriteControl(websocket.CloseMessage, payload, time.Now().Add(writeWait))

	close(c.done)
	c.conn.Close()
}

// writePump drains the send queue onto the wire. It exits when a write
// fails or the connection is closed, and is the only goroutine that
// writes data frames.
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
