package errors

import (
	"fmt"
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Error is the typed failure returned by the service layer. Status carries
// the HTTP status the transport should respond with.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func New(message string, status int) *Error {
	return &Error{
		Message: message,
		Status:  status,
	}
}

var (
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
	ErrUnauthorized        = New("unauthorized", http.StatusUnauthorized)
	ErrForbidden           = New("forbidden", http.StatusForbidden)
	ErrNotFound            = New("not found", http.StatusNotFound)
	ErrConflict            = New("conflict", http.StatusConflict)
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
)

// ErrorHandler is passed to the rate limiter middleware.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error":       "too many requests",
		"retry_after": time.Until(info.ResetTime).String(),
	})
}
