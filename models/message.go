package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
	MessageTypeFile  = "file"
)

func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeFile:
		return true
	}
	return false
}

// Message belongs to exactly one conversation. Content may be empty for
// media-only messages, but never both content and media. Declares its own
// timestamps instead of embedding Model so created_at can join the
// (conversation_id, created_at) history index.
type Message struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID  `json:"conversation_id" gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1"`
	SenderID       uuid.UUID  `json:"sender_id" gorm:"type:uuid;not null"`
	Sender         *User      `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	ReceiverID     uuid.UUID  `json:"receiver_id" gorm:"type:uuid;not null;index:idx_messages_receiver_read,priority:1"`
	Receiver       *User      `json:"receiver,omitempty" gorm:"foreignKey:ReceiverID"`
	Content        string     `json:"content"`
	MediaURL       string     `json:"media_url,omitempty"`
	MessageType    string     `json:"message_type" gorm:"not null;default:text"`
	IsRead         bool       `json:"is_read" gorm:"not null;default:false;index:idx_messages_receiver_read,priority:2"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	IsEdited       bool       `json:"is_edited" gorm:"not null;default:false"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	ReplyToID      *uuid.UUID `json:"reply_to_id,omitempty" gorm:"type:uuid"`
	ReplyTo        *Message   `json:"reply_to,omitempty" gorm:"foreignKey:ReplyToID"`
	Reactions      []Reaction `json:"reactions" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time  `json:"created_at" gorm:"index:idx_messages_conversation_created,priority:2"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Reaction is a single emoji reaction by one user on one message. The
// unique index lets a user hold at most one reaction per emoji per
// message; toggling the same emoji again removes the row.
type Reaction struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	MessageID uuid.UUID `json:"message_id" gorm:"type:uuid;not null;uniqueIndex:idx_reactions_message_user_emoji,priority:1"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_reactions_message_user_emoji,priority:2"`
	Emoji     string    `json:"emoji" gorm:"not null;uniqueIndex:idx_reactions_message_user_emoji,priority:3"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type SendMessageRequest struct {
	ReceiverID  uuid.UUID  `json:"receiver_id" binding:"required"`
	Content     string     `json:"content" conform:"trim"`
	MediaURL    string     `json:"media_url" conform:"trim"`
	MessageType string     `json:"message_type" binding:"omitempty,messagetype"`
	ReplyToID   *uuid.UUID `json:"reply_to_id"`
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required" conform:"trim"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

type MarkReadRequest struct {
	ConversationID uuid.UUID `json:"conversation_id" binding:"required"`
}

type OnlineStatusRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required"`
}
