package db

import (
	goerrors "errors"
	"time"

	"github.com/epicshot/messaging/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MessageRepository interface
type MessageRepository interface {
	FindByID(id uuid.UUID) (*models.Message, error)
	ListByConversation(conversationID uuid.UUID) ([]models.Message, error)
	CreateWithConversation(msg *models.Message, conv *models.Conversation) error
	UpdateContent(msg *models.Message) error
	MarkConversationRead(conv *models.Conversation, readerID uuid.UUID) (int64, error)
	DeleteAndReconcile(msg *models.Message, conv *models.Conversation) (bool, error)
	ToggleReaction(messageID, userID uuid.UUID, emoji string) ([]models.Reaction, error)
	ListReactions(messageID uuid.UUID) ([]models.Reaction, error)
}

// messageRepo struct
type messageRepo struct {
	DB *gorm.DB
}

// NewMessageRepo creates a new instance of MessageRepository
func NewMessageRepo(db *GormDB) MessageRepository {
	return &messageRepo{db.DB}
}

func (r *messageRepo) FindByID(id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := r.DB.
		Preload("Sender").
		Preload("Receiver").
		Preload("ReplyTo").
		Preload("ReplyTo.Sender").
		Preload("Reactions").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) ListByConversation(conversationID uuid.UUID) ([]models.Message, error) {
	var msgs []models.Message
	err := r.DB.
		Preload("Sender").
		Preload("Receiver").
		Preload("ReplyTo").
		Preload("ReplyTo.Sender").
		Preload("Reactions").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	return msgs, nil
}

// CreateWithConversation appends the message and moves the conversation's
// last-message pointer and the receiver's unread counter in one
// transaction, so the counter can never drift from the stored messages.
func (r *messageRepo) CreateWithConversation(msg *models.Message, conv *models.Conversation) error {
	tx := r.DB.Begin()

	if err := tx.Create(msg).Error; err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to create message")
	}

	unreadColumn := conv.UnreadColumnFor(msg.ReceiverID)
	updates := map[string]interface{}{
		"last_message_id": msg.ID,
		"last_message_at": msg.CreatedAt,
		unreadColumn:      gorm.Expr(unreadColumn + " + 1"),
	}
	if err := tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return errors.Wrap(err, "failed to update conversation")
	}

	return tx.Commit().Error
}

// UpdateContent persists an edit. A zero-row update means the message was
// deleted after the caller loaded it; that surfaces as not-found, never as
// a silent success.
func (r *messageRepo) UpdateContent(msg *models.Message) error {
	res := r.DB.Model(&models.Message{}).Where("id = ?", msg.ID).Updates(map[string]interface{}{
		"content":   msg.Content,
		"is_edited": msg.IsEdited,
		"edited_at": msg.EditedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkConversationRead flags every unread message addressed to the reader
// in the conversation and decrements the reader's unread slot by exactly
// the number of rows flagged. The decrement is relative rather than a
// reset to zero: a message committed by a concurrent send after the
// message UPDATE took its snapshot keeps its increment. Returns the
// number of newly-read messages; a repeat call affects zero rows.
func (r *messageRepo) MarkConversationRead(conv *models.Conversation, readerID uuid.UUID) (int64, error) {
	tx := r.DB.Begin()
	now := time.Now()

	res := tx.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conv.ID, readerID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if res.Error != nil {
		tx.Rollback()
		return 0, errors.Wrap(res.Error, "failed to mark messages read")
	}

	if res.RowsAffected > 0 {
		unreadColumn := conv.UnreadColumnFor(readerID)
		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Update(unreadColumn, gorm.Expr("GREATEST("+unreadColumn+" - ?, 0)", res.RowsAffected)).Error; err != nil {
			tx.Rollback()
			return 0, errors.Wrap(err, "failed to decrement unread counter")
		}
	}

	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// DeleteAndReconcile removes the message and repairs the owning
// conversation: the receiver's unread slot when the message was still
// unread, and the last-message pointer when the deleted message held it.
// Reports whether the pointer changed.
func (r *messageRepo) DeleteAndReconcile(msg *models.Message, conv *models.Conversation) (bool, error) {
	tx := r.DB.Begin()

	res := tx.Where("id = ?", msg.ID).Delete(&models.Message{})
	if res.Error != nil {
		tx.Rollback()
		return false, errors.Wrap(res.Error, "failed to delete message")
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return false, gorm.ErrRecordNotFound
	}

	if !msg.IsRead {
		unreadColumn := conv.UnreadColumnFor(msg.ReceiverID)
		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Update(unreadColumn, gorm.Expr("GREATEST("+unreadColumn+" - 1, 0)")).Error; err != nil {
			tx.Rollback()
			return false, errors.Wrap(err, "failed to decrement unread counter")
		}
	}

	pointerChanged := conv.LastMessageID != nil && *conv.LastMessageID == msg.ID
	if pointerChanged {
		var last models.Message
		err := tx.Where("conversation_id = ?", conv.ID).Order("created_at DESC").First(&last).Error
		switch {
		case err == nil:
			if err := tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(map[string]interface{}{
				"last_message_id": last.ID,
				"last_message_at": last.CreatedAt,
			}).Error; err != nil {
				tx.Rollback()
				return false, errors.Wrap(err, "failed to move last-message pointer")
			}
		case goerrors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(map[string]interface{}{
				"last_message_id": nil,
				"last_message_at": conv.CreatedAt,
			}).Error; err != nil {
				tx.Rollback()
				return false, errors.Wrap(err, "failed to clear last-message pointer")
			}
		default:
			tx.Rollback()
			return false, errors.Wrap(err, "failed to find remaining last message")
		}
	}

	if err := tx.Commit().Error; err != nil {
		return false, err
	}
	return pointerChanged, nil
}

// ToggleReaction removes the (user, emoji) reaction when present,
// otherwise appends it, and returns the resulting reaction list.
func (r *messageRepo) ToggleReaction(messageID, userID uuid.UUID, emoji string) ([]models.Reaction, error) {
	tx := r.DB.Begin()

	var existing models.Reaction
	err := tx.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).First(&existing).Error
	switch {
	case err == nil:
		if err := tx.Delete(&existing).Error; err != nil {
			tx.Rollback()
			return nil, errors.Wrap(err, "failed to remove reaction")
		}
	case goerrors.Is(err, gorm.ErrRecordNotFound):
		reaction := models.Reaction{MessageID: messageID, UserID: userID, Emoji: emoji}
		if err := tx.Create(&reaction).Error; err != nil {
			tx.Rollback()
			return nil, errors.Wrap(err, "failed to add reaction")
		}
	default:
		tx.Rollback()
		return nil, errors.Wrap(err, "failed to look up reaction")
	}

	var reactions []models.Reaction
	if err := tx.Where("message_id = ?", messageID).Order("created_at ASC").Find(&reactions).Error; err != nil {
		tx.Rollback()
		return nil, errors.Wrap(err, "failed to list reactions")
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return reactions, nil
}

func (r *messageRepo) ListReactions(messageID uuid.UUID) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := r.DB.Where("message_id = ?", messageID).Order("created_at ASC").Find(&reactions).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reactions")
	}
	return reactions, nil
}
