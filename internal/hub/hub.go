// Package hub pushes revalidation events to connected websocket subscribers.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tasklist/internal/models"
	"tasklist/pkg/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBuffer     = 16
)

// ErrClosed is returned by Attach once Run has returned.
var ErrClosed = errors.New("hub: closed")

// MessageTypeRevalidate tags a pushed RevalidateEvent.
const MessageTypeRevalidate = "revalidate"

// Message is the frame format on the subscription socket.
type Message struct {
	Type string                 `json:"type"`
	Data models.RevalidateEvent `json:"data"`
}

// Client is one connected subscriber.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{} // closed when Run returns
}

// New creates a hub. Call Run before registering clients.
func New() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Attach wraps an upgraded connection into a registered client and starts its
// pumps. If the hub has stopped the connection is closed and ErrClosed returned.
func (h *Hub) Attach(ctx context.Context, conn *websocket.Conn) (*Client, error) {
	c := &Client{
		ID:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil, ErrClosed
	case <-ctx.Done():
		conn.Close()
		return nil, ctx.Err()
	}
	go c.writePump(ctx)
	go c.readPump(ctx)
	return c, nil
}

// Broadcast pushes ev to every connected client.
func (h *Hub) Broadcast(ctx context.Context, ev models.RevalidateEvent) {
	b, err := json.Marshal(Message{Type: MessageTypeRevalidate, Data: ev})
	if err != nil {
		logger.Error(ctx, "Marshal revalidate message failed", "error", err)
		return
	}
	select {
	case h.broadcast <- b:
	case <-h.done:
	case <-ctx.Done():
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	case <-ctx.Done():
		return 0
	}
}

// Run is the hub's main loop; it returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			logger.Debug(ctx, "Subscriber connected", "client_id", c.ID)
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				logger.Debug(ctx, "Subscriber disconnected", "client_id", c.ID)
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					logger.Warn(ctx, "Subscriber send buffer full, dropping client", "client_id", c.ID)
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		case <-ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// Subscribers only listen; anything they send is discarded.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug(ctx, "Subscriber read failed", "error", err, "client_id", c.ID)
			}
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug(ctx, "Subscriber write failed", "error", err, "client_id", c.ID)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
