package db

import (
	goerrors "errors"
	"time"

	"github.com/epicshot/messaging/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ConversationRepository interface
type ConversationRepository interface {
	FindByID(id uuid.UUID) (*models.Conversation, error)
	FindByPair(a, b uuid.UUID) (*models.Conversation, error)
	FindOrCreate(a, b uuid.UUID) (*models.Conversation, error)
	ListForUser(userID uuid.UUID) ([]models.Conversation, error)
	UnreadTotal(userID uuid.UUID) (int64, error)
}

// conversationRepo struct
type conversationRepo struct {
	DB *gorm.DB
}

// NewConversationRepo creates a new instance of ConversationRepository
func NewConversationRepo(db *GormDB) ConversationRepository {
	return &conversationRepo{db.DB}
}

func (r *conversationRepo) FindByID(id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.DB.
		Preload("UserOne").
		Preload("UserTwo").
		Preload("LastMessage").
		Preload("LastMessage.Sender").
		Where("id = ?", id).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) FindByPair(a, b uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.DB.
		Preload("UserOne").
		Preload("UserTwo").
		Preload("LastMessage").
		Preload("LastMessage.Sender").
		Where("participant_key = ?", models.PairKey(a, b)).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindOrCreate locates the conversation for the unordered pair, creating
// it when absent. The unique index on participant_key collapses a
// concurrent first-send into a single row; the loser of that race
// re-reads the winner's row instead of surfacing the conflict.
func (r *conversationRepo) FindOrCreate(a, b uuid.UUID) (*models.Conversation, error) {
	one, two := models.SortPair(a, b)
	conv := models.Conversation{
		UserOneID:      one,
		UserTwoID:      two,
		ParticipantKey: models.PairKey(a, b),
		LastMessageAt:  time.Now(),
	}

	err := r.DB.
		Where(models.Conversation{ParticipantKey: conv.ParticipantKey}).
		FirstOrCreate(&conv).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrDuplicatedKey) {
			return r.FindByPair(a, b)
		}
		return nil, errors.Wrap(err, "failed to find or create conversation")
	}
	return &conv, nil
}

func (r *conversationRepo) ListForUser(userID uuid.UUID) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.DB.
		Preload("UserOne").
		Preload("UserTwo").
		Preload("LastMessage").
		Preload("LastMessage.Sender").
		Where("user_one_id = ? OR user_two_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	return convs, nil
}

func (r *conversationRepo) UnreadTotal(userID uuid.UUID) (int64, error) {
	var total int64
	err := r.DB.Model(&models.Conversation{}).
		Select("COALESCE(SUM(CASE WHEN user_one_id = ? THEN unread_one ELSE unread_two END), 0)", userID).
		Where("user_one_id = ? OR user_two_id = ?", userID, userID).
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to sum unread counters")
	}
	return total, nil
}
