package realtime

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/epicshot/messaging/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	return h
}

// connect registers a nil-conn client and waits for its connected frame,
// which guarantees the hub finished processing the registration.
func connect(t *testing.T, h *Hub, userID uuid.UUID, username string) *Client {
	t.Helper()
	c := NewClient(h, nil, userID, username, "")
	h.Register(c)
	evt := nextEvent(t, c)
	require.Equal(t, models.EventSocketConnected, evt.Event)
	return c
}

func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var evt Event
		require.NoError(t, json.Unmarshal(data, &evt))
		return evt
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for frame on %s", c.Username)
		return Event{}
	}
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected frame on %s: %s", c.Username, data)
	case <-time.After(100 * time.Millisecond):
	}
}

func payloadField(t *testing.T, evt Event, key string) interface{} {
	t.Helper()
	m, ok := evt.Payload.(map[string]interface{})
	require.True(t, ok, "payload is not an object: %v", evt.Payload)
	return m[key]
}

func inboundFrame(event string, payload interface{}) ClientEvent {
	raw, _ := json.Marshal(payload)
	return ClientEvent{Event: event, Payload: raw}
}

func TestRegisterAnnouncesUserOnline(t *testing.T) {
	h := startHub(t)
	alice := connect(t, h, uuid.New(), "alice")

	bobID := uuid.New()
	bob := connect(t, h, bobID, "bob")

	evt := nextEvent(t, alice)
	require.Equal(t, models.EventUserOnline, evt.Event)
	assert.Equal(t, bobID.String(), payloadField(t, evt, "user_id"))
	assert.Equal(t, "bob", payloadField(t, evt, "username"))

	// The newcomer hears about nobody, including itself.
	expectNoEvent(t, bob)
}

func TestUnregisterAnnouncesOfflineOnlyOnLastConnection(t *testing.T) {
	h := startHub(t)
	aliceID := uuid.New()
	a1 := connect(t, h, aliceID, "alice")
	a2 := connect(t, h, aliceID, "alice")
	nextEvent(t, a1) // a2's userOnline broadcast

	bob := connect(t, h, uuid.New(), "bob")
	nextEvent(t, a1)
	nextEvent(t, a2)

	h.Unregister(a1)
	expectNoEvent(t, bob)
	assert.True(t, h.Presence().IsOnline(aliceID))

	h.Unregister(a2)
	evt := nextEvent(t, bob)
	require.Equal(t, models.EventUserOffline, evt.Event)
	assert.Equal(t, aliceID.String(), payloadField(t, evt, "user_id"))
	assert.False(t, h.Presence().IsOnline(aliceID))
}

func TestNotifyUserReachesEveryConnection(t *testing.T) {
	h := startHub(t)
	aliceID := uuid.New()
	a1 := connect(t, h, aliceID, "alice")
	a2 := connect(t, h, aliceID, "alice")
	nextEvent(t, a1) // a2's userOnline broadcast

	h.NotifyUser(aliceID, models.EventNewMessage, map[string]interface{}{"hello": "world"})

	for _, c := range []*Client{a1, a2} {
		evt := nextEvent(t, c)
		require.Equal(t, models.EventNewMessage, evt.Event)
		assert.Equal(t, "world", payloadField(t, evt, "hello"))
	}
}

func TestNotifyUserOfflineIsDropped(t *testing.T) {
	h := startHub(t)
	alice := connect(t, h, uuid.New(), "alice")

	h.NotifyUser(uuid.New(), models.EventNewMessage, map[string]interface{}{"lost": true})
	expectNoEvent(t, alice)
}

func TestRoomScopedDelivery(t *testing.T) {
	h := startHub(t)
	alice := connect(t, h, uuid.New(), "alice")
	bob := connect(t, h, uuid.New(), "bob")
	nextEvent(t, alice) // bob's userOnline
	carol := connect(t, h, uuid.New(), "carol")
	nextEvent(t, alice)
	nextEvent(t, bob)

	conversationID := uuid.New()
	join := map[string]interface{}{"conversation_id": conversationID}
	h.handleClientEvent(alice, inboundFrame(models.EventJoinConversation, join))
	h.handleClientEvent(bob, inboundFrame(models.EventJoinConversation, join))

	h.NotifyRoom(conversationID, models.EventMessageAdded, map[string]interface{}{"n": 1})

	for _, c := range []*Client{alice, bob} {
		evt := nextEvent(t, c)
		assert.Equal(t, models.EventMessageAdded, evt.Event)
	}
	expectNoEvent(t, carol)

	h.handleClientEvent(bob, inboundFrame(models.EventLeaveConversation, join))
	h.NotifyRoom(conversationID, models.EventMessageAdded, map[string]interface{}{"n": 2})

	evt := nextEvent(t, alice)
	assert.Equal(t, models.EventMessageAdded, evt.Event)
	expectNoEvent(t, bob)
}

func TestUnregisterLeavesRooms(t *testing.T) {
	h := startHub(t)
	alice := connect(t, h, uuid.New(), "alice")

	conversationID := uuid.New()
	h.handleClientEvent(alice, inboundFrame(models.EventJoinConversation, map[string]interface{}{
		"conversation_id": conversationID,
	}))
	h.Unregister(alice)

	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.rooms) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTypingRelayedToRecipientOnly(t *testing.T) {
	h := startHub(t)
	aliceID := uuid.New()
	bobID := uuid.New()
	alice := connect(t, h, aliceID, "alice")
	bob := connect(t, h, bobID, "bob")
	nextEvent(t, alice) // bob's userOnline
	carol := connect(t, h, uuid.New(), "carol")
	nextEvent(t, alice)
	nextEvent(t, bob)

	conversationID := uuid.New()
	h.handleClientEvent(alice, inboundFrame(models.EventTyping, map[string]interface{}{
		"conversation_id": conversationID,
		"receiver_id":     bobID,
	}))

	evt := nextEvent(t, bob)
	require.Equal(t, models.EventTyping, evt.Event)
	assert.Equal(t, aliceID.String(), payloadField(t, evt, "sender_id"))
	assert.Equal(t, "alice", payloadField(t, evt, "sender_name"))
	expectNoEvent(t, carol)
	expectNoEvent(t, alice)

	h.handleClientEvent(alice, inboundFrame(models.EventStopTyping, map[string]interface{}{
		"conversation_id": conversationID,
		"receiver_id":     bobID,
	}))
	evt = nextEvent(t, bob)
	assert.Equal(t, models.EventStopTyping, evt.Event)
}

func TestMessageDeliveredRelay(t *testing.T) {
	h := startHub(t)
	aliceID := uuid.New()
	bobID := uuid.New()
	alice := connect(t, h, aliceID, "alice")
	bob := connect(t, h, bobID, "bob")
	nextEvent(t, alice) // bob's userOnline

	messageID := uuid.New()
	h.handleClientEvent(bob, inboundFrame(models.EventMessageDelivered, map[string]interface{}{
		"message_id":  messageID,
		"receiver_id": aliceID,
	}))

	evt := nextEvent(t, alice)
	require.Equal(t, models.EventMessageDelivered, evt.Event)
	assert.Equal(t, messageID.String(), payloadField(t, evt, "message_id"))
	assert.Equal(t, bobID.String(), payloadField(t, evt, "sender_id"))
	expectNoEvent(t, bob)
}

func TestHeartbeatAnswersPong(t *testing.T) {
	h := startHub(t)
	alice := connect(t, h, uuid.New(), "alice")

	h.handleClientEvent(alice, inboundFrame(models.EventHeartbeat, nil))
	evt := nextEvent(t, alice)
	assert.Equal(t, models.EventPong, evt.Event)
}

func TestUnknownAndMalformedFramesIgnored(t *testing.T) {
	h := startHub(t)
	alice := connect(t, h, uuid.New(), "alice")

	h.handleClientEvent(alice, inboundFrame("definitelyNotAnEvent", map[string]interface{}{"x": 1}))
	h.handleClientEvent(alice, ClientEvent{Event: models.EventTyping, Payload: json.RawMessage(`{"receiver_id":"nope"}`)})
	h.handleClientEvent(alice, ClientEvent{Event: models.EventJoinConversation, Payload: json.RawMessage(`[]`)})
	expectNoEvent(t, alice)
}

func TestDeliverAfterShutdown(t *testing.T) {
	c := NewClient(nil, nil, uuid.New(), "alice", "")
	require.True(t, c.deliver([]byte(`{}`)))

	c.shutdown()
	assert.False(t, c.deliver([]byte(`{}`)))
	c.shutdown() // safe to repeat
}

func TestDeliverDropsWhenBufferFull(t *testing.T) {
	c := NewClient(nil, nil, uuid.New(), "alice", "")
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, c.deliver([]byte(fmt.Sprintf(`{"n":%d}`, i))))
	}
	assert.False(t, c.deliver([]byte(`{"overflow":true}`)))
}
