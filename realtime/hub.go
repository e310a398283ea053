package realtime

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/epicshot/messaging/models"
	"github.com/google/uuid"
)

// Event is the outbound frame envelope.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Hub owns presence and conversation room membership and fans events out
// to live connections. Delivery is best-effort and at-most-once: when
// nobody is listening the event is dropped, and clients recover missed
// state by re-fetching on reconnect.
type Hub struct {
	presence *Presence

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	logger *log.Logger
}

func NewHub() *Hub {
	return &Hub{
		presence:   NewPresence(),
		rooms:      make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     log.New(os.Stdout, "[REALTIME] ", log.LstdFlags),
	}
}

func (h *Hub) Presence() *Presence {
	return h.presence
}

func (h *Hub) Register(c *Client) {
	h.register <- c
}

func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}

// Run processes connection lifecycle events. Must be running before the
// first client registers.
func (h *Hub) Run() {
	h.logger.Println("hub started")
	for {
		select {
		case client := <-h.register:
			h.presence.Register(client)
			h.logger.Printf("client connected: %s (%s)", client.Username, client.UserID)

			client.deliver(encodeEvent(models.EventSocketConnected, map[string]interface{}{
				"user_id":      client.UserID,
				"connected_at": client.ConnectedAt,
			}))
			h.broadcastExcept(client, models.EventUserOnline, map[string]interface{}{
				"user_id":         client.UserID,
				"username":        client.Username,
				"profile_picture": client.ProfileImage,
				"timestamp":       time.Now(),
			})

		case client := <-h.unregister:
			h.leaveAllRooms(client)
			wentOffline := h.presence.Unregister(client)
			client.shutdown()
			h.logger.Printf("client disconnected: %s (%s)", client.Username, client.UserID)

			if wentOffline {
				h.broadcastExcept(client, models.EventUserOffline, map[string]interface{}{
					"user_id":   client.UserID,
					"username":  client.Username,
					"timestamp": time.Now(),
				})
			}
		}
	}
}

// NotifyUser delivers an event to every live connection of one user.
func (h *Hub) NotifyUser(userID uuid.UUID, event string, payload interface{}) {
	data := encodeEvent(event, payload)
	if data == nil {
		return
	}
	for _, c := range h.presence.ClientsFor(userID) {
		if !c.deliver(data) {
			// Slow or dead consumer; drop the connection, the read
			// pump unregisters it.
			c.shutdown()
		}
	}
}

// NotifyRoom delivers an event to every connection that joined the
// conversation room.
func (h *Hub) NotifyRoom(conversationID uuid.UUID, event string, payload interface{}) {
	data := encodeEvent(event, payload)
	if data == nil {
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[conversationID]))
	for c := range h.rooms[conversationID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.deliver(data) {
			c.shutdown()
		}
	}
}

func (h *Hub) joinRoom(c *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[conversationID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) leaveRoom(c *Client, conversationID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[conversationID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
}

func (h *Hub) leaveAllRooms(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, id)
		}
	}
}

// handleClientEvent dispatches one inbound frame. Every signal here is
// fire-and-forget and never persisted; typing and delivery acks are
// relayed only to the named recipient's personal channel.
func (h *Hub) handleClientEvent(c *Client, evt ClientEvent) {
	switch evt.Event {
	case models.EventJoinConversation:
		var p roomPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			return
		}
		h.joinRoom(c, p.ConversationID)

	case models.EventLeaveConversation:
		var p roomPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.ConversationID == uuid.Nil {
			return
		}
		h.leaveRoom(c, p.ConversationID)

	case models.EventTyping:
		var p typingPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.ReceiverID == uuid.Nil {
			return
		}
		h.NotifyUser(p.ReceiverID, models.EventTyping, map[string]interface{}{
			"conversation_id": p.ConversationID,
			"sender_id":       c.UserID,
			"sender_name":     c.Username,
			"timestamp":       time.Now(),
		})

	case models.EventStopTyping:
		var p typingPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.ReceiverID == uuid.Nil {
			return
		}
		h.NotifyUser(p.ReceiverID, models.EventStopTyping, map[string]interface{}{
			"conversation_id": p.ConversationID,
			"sender_id":       c.UserID,
			"timestamp":       time.Now(),
		})

	case models.EventMessageDelivered:
		var p deliveryPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil || p.ReceiverID == uuid.Nil {
			return
		}
		h.NotifyUser(p.ReceiverID, models.EventMessageDelivered, map[string]interface{}{
			"message_id":      p.MessageID,
			"conversation_id": p.ConversationID,
			"sender_id":       c.UserID,
			"timestamp":       time.Now(),
		})

	case models.EventHeartbeat:
		c.deliver(encodeEvent(models.EventPong, map[string]interface{}{
			"timestamp": time.Now(),
		}))

	default:
		// Unknown client events are ignored.
	}
}

// broadcastExcept fans an event out to every live connection but one.
// Called only from the Run loop; failed deliveries are skipped, the
// owning pumps will notice dead connections on their own.
func (h *Hub) broadcastExcept(except *Client, event string, payload interface{}) {
	data := encodeEvent(event, payload)
	if data == nil {
		return
	}
	for _, c := range h.presence.AllClients() {
		if c == except {
			continue
		}
		c.deliver(data)
	}
}

func encodeEvent(event string, payload interface{}) []byte {
	data, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		log.Printf("failed to marshal %s event: %v", event, err)
		return nil
	}
	return data
}
