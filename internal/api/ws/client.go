package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chessroom/internal/metrics"
	"chessroom/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Client is one websocket connection. It implements protocol.Conn: Send
// enqueues onto a buffered channel drained by writePump, so enqueue order
// is delivery order and a slow consumer is torn down instead of blocking
// the session.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan protocol.ServerMessage

	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan protocol.ServerMessage, 32),
	}
}

func (c *Client) ID() string { return c.id }

// Send enqueues msg for delivery. If the buffer is full the connection is
// closed, which funnels through the same disconnect path as a dropped
// peer.
func (c *Client) Send(msg protocol.ServerMessage) {
	select {
	case c.send <- msg:
		metrics.MessagesSent.Inc()
	default:
		log.Printf("[ws] client %s too slow, dropping connection", c.id)
		c.close()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

// readPump reads client messages until the connection drops, then runs the
// disconnect transition. A failed write surfaces here too: writePump closes
// the connection and the pending read returns.
func (c *Client) readPump(handler *protocol.Handler) {
	defer func() {
		handler.Disconnect(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg protocol.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] client %s read error: %v", c.id, err)
			}
			return
		}
		metrics.MessagesReceived.Inc()
		handler.Handle(c, msg)
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
