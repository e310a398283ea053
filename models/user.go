package models

import "github.com/google/uuid"

// User represents a user of the application. The messaging core treats
// users and their follow relationships as read-only reference data; account
// creation and profile edits belong to the auth service.
type User struct {
	Model
	Username     string  `json:"username" gorm:"uniqueIndex;not null" binding:"required,min=2"`
	Fullname     string  `json:"fullname" binding:"required,min=2"`
	Email        string  `json:"email" gorm:"unique;not null" binding:"required,email"`
	ProfileImage string  `json:"profile_picture,omitempty"`
	Following    []*User `json:"-" gorm:"many2many:user_follows;joinForeignKey:FollowerID;joinReferences:FollowedID"`
}

// UserResponse is the public profile shape attached to conversations and
// messages.
type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Fullname     string    `json:"fullname"`
	ProfileImage string    `json:"profile_picture,omitempty"`
}

func (u *User) PublicProfile() *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Fullname:     u.Fullname,
		ProfileImage: u.ProfileImage,
	}
}
