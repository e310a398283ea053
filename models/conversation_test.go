package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKeySymmetric(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	require.Equal(t, PairKey(a, b), PairKey(b, a))

	one, two := SortPair(a, b)
	assert.True(t, one.String() < two.String())
	assert.Equal(t, one.String()+":"+two.String(), PairKey(a, b))

	// Same pair regardless of argument order.
	oneR, twoR := SortPair(b, a)
	assert.Equal(t, one, oneR)
	assert.Equal(t, two, twoR)
}

func TestConversationParticipants(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	one, two := SortPair(a, b)
	conv := Conversation{UserOneID: one, UserTwoID: two}

	assert.True(t, conv.HasParticipant(a))
	assert.True(t, conv.HasParticipant(b))
	assert.False(t, conv.HasParticipant(uuid.New()))

	assert.Equal(t, two, conv.OtherParticipant(one))
	assert.Equal(t, one, conv.OtherParticipant(two))
}

func TestConversationUnreadSlots(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	one, two := SortPair(a, b)
	conv := Conversation{UserOneID: one, UserTwoID: two, UnreadOne: 3, UnreadTwo: 1}

	assert.Equal(t, 3, conv.UnreadFor(one))
	assert.Equal(t, 1, conv.UnreadFor(two))
	assert.Equal(t, 0, conv.UnreadFor(uuid.New()))

	assert.Equal(t, "unread_one", conv.UnreadColumnFor(one))
	assert.Equal(t, "unread_two", conv.UnreadColumnFor(two))

	counts := conv.UnreadCount()
	assert.Equal(t, 3, counts[one.String()])
	assert.Equal(t, 1, counts[two.String()])
}

func TestConversationSummaryPicksOtherUser(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	one, two := SortPair(a, b)
	conv := Conversation{
		UserOneID: one,
		UserTwoID: two,
		UserOne:   &User{Model: Model{ID: one}, Username: "one"},
		UserTwo:   &User{Model: Model{ID: two}, Username: "two"},
		UnreadTwo: 2,
	}

	summary := conv.Summary(one)
	require.NotNil(t, summary.OtherUser)
	assert.Equal(t, "two", summary.OtherUser.Username)
	assert.Equal(t, []uuid.UUID{one, two}, summary.Participants)
	assert.Equal(t, 2, summary.UnreadCount[two.String()])

	summary = conv.Summary(two)
	require.NotNil(t, summary.OtherUser)
	assert.Equal(t, "one", summary.OtherUser.Username)
}

func TestSummaryWithoutPreloadedUsers(t *testing.T) {
	conv := Conversation{UserOneID: uuid.New(), UserTwoID: uuid.New()}
	summary := conv.Summary(conv.UserOneID)
	assert.Nil(t, summary.OtherUser)
}

func TestValidMessageType(t *testing.T) {
	assert.True(t, ValidMessageType(MessageTypeText))
	assert.True(t, ValidMessageType(MessageTypeImage))
	assert.True(t, ValidMessageType(MessageTypeVideo))
	assert.True(t, ValidMessageType(MessageTypeFile))
	assert.False(t, ValidMessageType(""))
	assert.False(t, ValidMessageType("sticker"))
}
