package db

import (
	"github.com/epicshot/messaging/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// UserRepository interface
type UserRepository interface {
	FindUserByID(id uuid.UUID) (*models.User, error)
	IsConnected(a, b uuid.UUID) (bool, error)
	FollowingIDs(userID uuid.UUID) ([]uuid.UUID, error)
	FollowerIDs(userID uuid.UUID) ([]uuid.UUID, error)
	MessagingPeers(userID uuid.UUID) ([]models.User, error)
}

// userRepo struct
type userRepo struct {
	DB *gorm.DB
}

// NewUserRepo creates a new instance of UserRepository
func NewUserRepo(db *GormDB) UserRepository {
	return &userRepo{db.DB}
}

func (r *userRepo) FindUserByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// IsConnected reports whether at least one of the two users follows the
// other. This is the messaging permission rule.
func (r *userRepo) IsConnected(a, b uuid.UUID) (bool, error) {
	var count int64
	err := r.DB.Table("user_follows").
		Where("(follower_id = ? AND followed_id = ?) OR (follower_id = ? AND followed_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check follow relationship")
	}
	return count > 0, nil
}

func (r *userRepo) FollowingIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB.Table("user_follows").
		Where("follower_id = ?", userID).
		Pluck("followed_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list following")
	}
	return ids, nil
}

func (r *userRepo) FollowerIDs(userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB.Table("user_follows").
		Where("followed_id = ?", userID).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list followers")
	}
	return ids, nil
}

// MessagingPeers returns the union of the user's following and followers,
// deduplicated and sorted by username.
func (r *userRepo) MessagingPeers(userID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := r.DB.Distinct("users.*").
		Joins("JOIN user_follows uf ON (uf.followed_id = users.id AND uf.follower_id = ?) OR (uf.follower_id = users.id AND uf.followed_id = ?)", userID, userID).
		Order("users.username ASC").
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messaging peers")
	}
	return users, nil
}
