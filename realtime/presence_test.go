package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceMultipleConnections(t *testing.T) {
	p := NewPresence()
	userID := uuid.New()
	c1 := NewClient(nil, nil, userID, "alice", "")
	c2 := NewClient(nil, nil, userID, "alice", "")

	assert.True(t, p.Register(c1), "first connection should bring the user online")
	assert.False(t, p.Register(c2), "second connection should not")
	assert.True(t, p.IsOnline(userID))
	assert.Len(t, p.ClientsFor(userID), 2)

	assert.False(t, p.Unregister(c1), "user still has a live connection")
	assert.True(t, p.IsOnline(userID))

	assert.True(t, p.Unregister(c2), "last connection going away means offline")
	assert.False(t, p.IsOnline(userID))
	assert.Empty(t, p.ClientsFor(userID))
}

func TestPresenceUnregisterUnknownIsNoop(t *testing.T) {
	p := NewPresence()
	userID := uuid.New()
	never := NewClient(nil, nil, userID, "ghost", "")

	assert.False(t, p.Unregister(never))

	// A stray unregister must not knock a registered sibling offline.
	live := NewClient(nil, nil, userID, "alice", "")
	p.Register(live)
	assert.False(t, p.Unregister(never))
	assert.True(t, p.IsOnline(userID))
}

func TestPresenceOnlineUsersSnapshot(t *testing.T) {
	p := NewPresence()
	alice := uuid.New()
	bob := uuid.New()

	a1 := NewClient(nil, nil, alice, "alice", "")
	a2 := NewClient(nil, nil, alice, "alice", "")
	b1 := NewClient(nil, nil, bob, "bob", "")
	p.Register(a1)
	p.Register(a2)
	p.Register(b1)

	users := p.OnlineUsers()
	require.Len(t, users, 2)

	byID := make(map[uuid.UUID]OnlineUser)
	for _, u := range users {
		byID[u.UserID] = u
	}
	assert.Equal(t, 2, byID[alice].Connections)
	assert.Equal(t, 1, byID[bob].Connections)
	assert.Equal(t, "alice", byID[alice].Username)

	p.Unregister(b1)
	assert.Len(t, p.OnlineUsers(), 1)
}
