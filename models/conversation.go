package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is the two-party thread container. The participant pair is
// stored sorted (UserOneID < UserTwoID) so that each unordered pair maps to
// exactly one row; ParticipantKey carries the unique index that enforces
// the singleton invariant even under concurrent first-sends.
type Conversation struct {
	Model
	UserOneID      uuid.UUID  `json:"-" gorm:"type:uuid;not null;index"`
	UserTwoID      uuid.UUID  `json:"-" gorm:"type:uuid;not null;index"`
	UserOne        *User      `json:"-" gorm:"foreignKey:UserOneID"`
	UserTwo        *User      `json:"-" gorm:"foreignKey:UserTwoID"`
	ParticipantKey string     `json:"-" gorm:"uniqueIndex;not null"`
	LastMessageID  *uuid.UUID `json:"last_message_id,omitempty" gorm:"type:uuid"`
	LastMessage    *Message   `json:"last_message,omitempty" gorm:"foreignKey:LastMessageID"`
	LastMessageAt  time.Time  `json:"last_message_at"`
	UnreadOne      int        `json:"-" gorm:"not null;default:0"`
	UnreadTwo      int        `json:"-" gorm:"not null;default:0"`
}

// SortPair returns the pair in storage order.
func SortPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if strings.Compare(a.String(), b.String()) > 0 {
		return b, a
	}
	return a, b
}

// PairKey builds the unique key for an unordered participant pair.
func PairKey(a, b uuid.UUID) string {
	one, two := SortPair(a, b)
	return one.String() + ":" + two.String()
}

func (c *Conversation) Participants() []uuid.UUID {
	return []uuid.UUID{c.UserOneID, c.UserTwoID}
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.UserOneID == userID || c.UserTwoID == userID
}

func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.UserOneID == userID {
		return c.UserTwoID
	}
	return c.UserOneID
}

// OtherUser returns the preloaded profile of the participant that is not
// the viewer, when associations were loaded.
func (c *Conversation) OtherUser(viewerID uuid.UUID) *User {
	if c.UserOneID == viewerID {
		return c.UserTwo
	}
	return c.UserOne
}

func (c *Conversation) UnreadFor(userID uuid.UUID) int {
	switch userID {
	case c.UserOneID:
		return c.UnreadOne
	case c.UserTwoID:
		return c.UnreadTwo
	}
	return 0
}

// UnreadColumnFor maps a participant to its counter column. Repositories
// use it to increment/reset the right slot atomically.
func (c *Conversation) UnreadColumnFor(userID uuid.UUID) string {
	if userID == c.UserOneID {
		return "unread_one"
	}
	return "unread_two"
}

// UnreadCount renders the per-participant counters in the map shape the
// clients consume.
func (c *Conversation) UnreadCount() map[string]int {
	return map[string]int{
		c.UserOneID.String(): c.UnreadOne,
		c.UserTwoID.String(): c.UnreadTwo,
	}
}

// ConversationSummary is the list/broadcast shape of a conversation: the
// other participant's public profile, the populated last message and the
// viewer-relevant unread counters.
type ConversationSummary struct {
	ID            uuid.UUID      `json:"id"`
	Participants  []uuid.UUID    `json:"participants"`
	OtherUser     *UserResponse  `json:"other_user,omitempty"`
	LastMessage   *Message       `json:"last_message,omitempty"`
	LastMessageAt time.Time      `json:"last_message_at"`
	UnreadCount   map[string]int `json:"unread_count"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (c *Conversation) Summary(viewerID uuid.UUID) ConversationSummary {
	return ConversationSummary{
		ID:            c.ID,
		Participants:  c.Participants(),
		OtherUser:     c.OtherUser(viewerID).PublicProfile(),
		LastMessage:   c.LastMessage,
		LastMessageAt: c.LastMessageAt,
		UnreadCount:   c.UnreadCount(),
		UpdatedAt:     c.UpdatedAt,
	}
}
