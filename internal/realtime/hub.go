// Package realtime relays domain events to connected browser sessions over
// WebSocket, partitioned into named rooms.
package realtime

import (
	"context"
	"sync"

	"elecrm_backend/platform/logger"
)

// Room names. RoomGlobal addresses every connected client regardless of
// room membership.
const (
	RoomGlobal     = ""
	RoomSalesQueue = "sales-queue"
	RoomPresence   = "presence"
)

// Client event names.
const (
	EventNewLead            = "new_lead"
	EventRemoveLead         = "remove_lead"
	EventUpdateLead         = "update_lead"
	EventQueueUpdate        = "queue_update"
	EventUserStatusUpdated  = "user_status_updated"
	EventCallEnded          = "call-ended"
	EventOutboundCallStatus = "outbound-call-status"
)

// Message is the wire format for server-to-client pushes.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type roomMessage struct {
	room    string
	message Message
}

// PresenceHandler reacts to client presence traffic. Implemented by the
// presence service; declared here so the hub stays decoupled from it.
type PresenceHandler interface {
	HandleStatusUpdate(ctx context.Context, raw []byte) error
	HandleDisconnect(ctx context.Context, userID string)
}

// Hub maintains the set of active clients, their room memberships, and
// broadcasts messages to them. Broadcasts are best-effort fire-and-forget:
// the caller never blocks and individual client delivery failures drop the
// message for that client only.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage

	presence PresenceHandler
	log      *logger.Logger
}

// NewHub creates a new Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 256),
		log:        log,
	}
}

// SetPresenceHandler wires the presence service in after construction,
// breaking the hub/presence construction cycle.
func (h *Hub) SetPresenceHandler(p PresenceHandler) {
	h.presence = p
}

// Run services registration, unregistration and broadcast until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(ctx, client)

		case rm := <-h.broadcast:
			h.fanOut(rm)
		}
	}
}

// Broadcast queues a message for every client in the room. It never blocks;
// if the hub's queue is full the message is dropped and logged.
func (h *Hub) Broadcast(room, event string, payload interface{}) {
	rm := roomMessage{room: room, message: Message{Event: event, Payload: payload}}
	select {
	case h.broadcast <- rm:
	default:
		h.log.Warn("realtime broadcast queue full, dropping message", "room", room, "event", event)
	}
}

// Join adds the client to a named room.
func (h *Hub) Join(client *Client, room string) {
	if room == RoomGlobal {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Info("websocket client connected", "total_clients", total)
}

func (h *Hub) removeClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for _, members := range h.rooms {
		delete(members, client)
	}
	total := len(h.clients)
	h.mu.Unlock()

	close(client.send)
	h.log.Info("websocket client disconnected", "total_clients", total)

	// A session with an associated user forces presence recomputation.
	if userID := client.UserID(); userID != "" && h.presence != nil {
		h.presence.HandleDisconnect(ctx, userID)
	}
}

func (h *Hub) fanOut(rm roomMessage) {
	h.mu.RLock()
	var targets []*Client
	if rm.room == RoomGlobal {
		targets = make([]*Client, 0, len(h.clients))
		for client := range h.clients {
			targets = append(targets, client)
		}
	} else {
		members := h.rooms[rm.room]
		targets = make([]*Client, 0, len(members))
		for client := range members {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- rm.message:
		default:
			// Slow client: drop rather than block the hub.
			h.log.Warn("dropping message for slow websocket client", "event", rm.message.Event)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount reports the number of clients joined to a room.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
