package services

import (
	goerrors "errors"
	"net/http"

	"github.com/epicshot/messaging/db"
	apiError "github.com/epicshot/messaging/errors"
	"github.com/epicshot/messaging/models"
	"github.com/epicshot/messaging/services/jwt"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentityVerifier resolves an opaque bearer token to a user. Both the
// HTTP Authorize middleware and the websocket handshake go through it.
type IdentityVerifier interface {
	Verify(accessToken string) (*models.User, error)
}

type jwtIdentity struct {
	secret   string
	userRepo db.UserRepository
}

func NewJWTIdentityVerifier(secret string, userRepo db.UserRepository) IdentityVerifier {
	return &jwtIdentity{secret: secret, userRepo: userRepo}
}

func (v *jwtIdentity) Verify(accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, apiError.ErrUnauthorized
	}

	claims, err := jwt.ValidateAndGetClaims(accessToken, v.secret)
	if err != nil {
		return nil, apiError.New("invalid access token", http.StatusUnauthorized)
	}

	idValue, ok := claims["id"].(string)
	if !ok {
		return nil, apiError.New("invalid token claims", http.StatusUnauthorized)
	}
	userID, err := uuid.Parse(idValue)
	if err != nil {
		return nil, apiError.New("invalid token claims", http.StatusUnauthorized)
	}

	user, err := v.userRepo.FindUserByID(userID)
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("user not found", http.StatusUnauthorized)
		}
		return nil, apiError.ErrInternalServerError
	}
	return user, nil
}
