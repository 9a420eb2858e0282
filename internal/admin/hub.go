package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum inbound control message size.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// controlMessage is the JSON shape browsers send over the socket.
type controlMessage struct {
	Action string `json:"action"`
}

// Hub tracks connected browsers, fans lifecycle records out to them,
// and funnels their control actions back to the run.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	logger     *slog.Logger

	// Actions carries pause/resume/stop requests sent by browsers.
	Actions chan string
}

// NewHub returns a hub ready for Run.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		Actions:    make(chan string, 8),
		logger:     logger,
	}
}

// Run owns the client set until the context ends. All registration and
// broadcast traffic goes through here so no lock is needed.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Slow client. Drop the message rather than
					// stall the publisher.
				}
			}
		}
	}
}

// Send queues one message for every connected client without blocking
// the caller.
func (h *Hub) Send(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast buffer full, dropping message")
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

// client is a middleman between one websocket connection and the hub.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump forwards control actions from the socket to the hub. A read
// error means the connection is gone and unregisters the client.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("websocket read failed", "error", err)
			}
			break
		}
		var msg controlMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.logger.Error("bad control message", "error", err)
			continue
		}
		select {
		case c.hub.Actions <- msg.Action:
		default:
			c.hub.logger.Warn("action buffer full, dropping", "action", msg.Action)
		}
	}
}

// writePump is the only writer on the connection. It drains the send
// channel and tells the peer goodbye once the hub closes it.
func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
