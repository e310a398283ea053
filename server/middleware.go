package server

import (
	"net/http"

	errs "github.com/epicshot/messaging/errors"
	"github.com/epicshot/messaging/models"
	"github.com/epicshot/messaging/server/response"
	"github.com/gin-gonic/gin"
)

func (s *Server) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := getTokenFromHeader(c)
		if accessToken == "" {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.New("Unauthorized", http.StatusUnauthorized))
			return
		}

		user, err := s.Identity.Verify(accessToken)
		if err != nil {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.New("Unauthorized", http.StatusUnauthorized))
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Set("username", user.Username)
		c.Next()
	}
}

// respondAndAbort calls response.JSON and aborts the Context
func respondAndAbort(c *gin.Context, message string, status int, data interface{}, e *errs.Error) {
	response.JSON(c, message, status, data, e)
	c.Abort()
}

// getTokenFromHeader returns the token string in the authorization header
func getTokenFromHeader(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if len(authHeader) > 8 {
		return authHeader[7:]
	}
	return ""
}

// GetUserFromContext returns the authenticated user set by Authorize.
func GetUserFromContext(c *gin.Context) (*models.User, error) {
	if userI, exists := c.Get("user"); exists {
		if user, ok := userI.(*models.User); ok {
			return user, nil
		}
	}
	return nil, errs.New("user is not logged in", http.StatusUnauthorized)
}

func messageRateKey(c *gin.Context) string {
	user, err := GetUserFromContext(c)
	if err != nil {
		return c.ClientIP()
	}
	return user.ID.String()
}
