package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// OnlineUser is the public snapshot of one online user's presence.
type OnlineUser struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	Connections int       `json:"connections"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Presence is the process-wide registry of live connections per user.
// It is ephemeral by design: a restart empties it and clients re-register
// on reconnect. Never persisted, never exposed as a raw map.
type Presence struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
}

func NewPresence() *Presence {
	return &Presence{clients: make(map[uuid.UUID]map[*Client]struct{})}
}

// Register adds a connection for its user and reports whether it is the
// user's first live connection.
func (p *Presence) Register(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		p.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	return len(set) == 1
}

// Unregister removes the connection and reports whether the user went
// offline (the set emptied). Removing a connection that was never
// registered is a no-op: network teardown ordering is not guaranteed.
func (p *Presence) Unregister(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.clients[c.UserID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(p.clients, c.UserID)
		return true
	}
	return false
}

func (p *Presence) IsOnline(userID uuid.UUID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients[userID]) > 0
}

// ClientsFor returns a snapshot of the user's live connections.
func (p *Presence) ClientsFor(userID uuid.UUID) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	set := p.clients[userID]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// AllClients returns a snapshot of every live connection.
func (p *Presence) AllClients() []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []*Client
	for _, set := range p.clients {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// OnlineUsers lists users with at least one live connection.
func (p *Presence) OnlineUsers() []OnlineUser {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]OnlineUser, 0, len(p.clients))
	for userID, set := range p.clients {
		entry := OnlineUser{UserID: userID, Connections: len(set)}
		for c := range set {
			entry.Username = c.Username
			if entry.ConnectedAt.IsZero() || c.ConnectedAt.Before(entry.ConnectedAt) {
				entry.ConnectedAt = c.ConnectedAt
			}
		}
		out = append(out, entry)
	}
	return out
}
