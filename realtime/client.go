package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 10 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client is one authenticated websocket connection. A closed client is
// never reused; reconnection always produces a fresh one that
// re-authenticates from scratch.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	UserID       uuid.UUID
	Username     string
	ProfileImage string
	ConnectedAt  time.Time

	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, username, profileImage string) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		UserID:       userID,
		Username:     username,
		ProfileImage: profileImage,
		ConnectedAt:  time.Now(),
		send:         make(chan []byte, sendBufferSize),
		done:         make(chan struct{}),
	}
}

// deliver queues an outbound frame without blocking. Returns false when
// the client is gone or its buffer is full.
func (c *Client) deliver(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// shutdown makes the client unreachable for future deliveries and tears
// down the transport. Safe to call more than once.
func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// ClientEvent is the inbound frame envelope.
type ClientEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type roomPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type typingPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	ReceiverID     uuid.UUID `json:"receiver_id"`
}

type deliveryPayload struct {
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	ReceiverID     uuid.UUID `json:"receiver_id"`
}

// ReadPump consumes inbound frames until the transport drops, then
// unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error for %s: %v", c.Username, err)
			}
			break
		}

		var evt ClientEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			log.Printf("dropping malformed frame from %s: %v", c.Username, err)
			continue
		}
		c.hub.handleClientEvent(c, evt)
	}
}

// WritePump flushes queued frames and keeps the connection alive with
// periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
