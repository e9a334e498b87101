package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coderipple/coderipple-go/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period, must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

// Client is the send side of one websocket connection. All writes go
// through the buffered send channel so a slow peer never blocks a room
// broadcast; a full buffer drops the message instead.
type Client struct {
	id          model.ConnectionID
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(id model.ConnectionID, conn *websocket.Conn) *Client {
	return &Client{
		id:          id,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// Send queues a message for delivery, reporting whether it was accepted.
// A closed client always refuses; the standalone done check keeps the
// refusal deterministic even while the send buffer has room.
func (c *Client) Send(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case <-c.done:
		return false
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Close releases the send side. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump drains the send channel onto the websocket connection and
// keeps the connection alive with periodic pings. One writePump runs per
// connection; the websocket write side is not safe for concurrent use.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
