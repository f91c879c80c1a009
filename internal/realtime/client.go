package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// clientMessage is the wire format for client-to-server traffic.
type clientMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Client-to-server event names.
const (
	clientEventJoin         = "join"
	clientEventStatusUpdate = "status-update"
)

type joinPayload struct {
	Room string `json:"room"`
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	mu     sync.Mutex
	userID string
}

// NewClient creates a new Client for a connected socket.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, 64),
	}
}

// UserID returns the user identity associated with this session, if any.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Client) setUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID == "" && userID != "" {
		c.userID = userID
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start(ctx context.Context) {
	go c.writePump()
	go c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("unexpected websocket close", "error", err.Error())
			}
			return
		}

		c.handleMessage(ctx, msg)
	}
}

// handleMessage processes one client frame. Background failures never send
// error frames back; the client simply does not see the expected event.
func (c *Client) handleMessage(ctx context.Context, msg clientMessage) {
	switch msg.Event {
	case clientEventJoin:
		var join joinPayload
		if err := json.Unmarshal(msg.Payload, &join); err != nil || join.Room == "" {
			return
		}
		c.hub.Join(c, join.Room)

	case clientEventStatusUpdate:
		if c.hub.presence == nil {
			return
		}
		if userID := extractUserID(msg.Payload); userID != "" {
			c.setUserID(userID)
		}
		if err := c.hub.presence.HandleStatusUpdate(ctx, msg.Payload); err != nil {
			c.hub.log.Error("status update failed", "error", err.Error())
		}
	}
}

func extractUserID(raw []byte) string {
	var probe struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.UserID
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
