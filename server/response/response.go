package response

import (
	"errors"
	"net/http"

	errs "github.com/epicshot/messaging/errors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// JSON writes the standard response envelope.
func JSON(c *gin.Context, message string, status int, data interface{}, err error) {
	errMessage := ""
	if err != nil {
		errMessage = err.Error()
	}

	c.JSON(status, gin.H{
		"message": message,
		"data":    data,
		"errors":  errMessage,
		"status":  http.StatusText(status),
	})
}

// HandleErrors maps service errors to HTTP responses.
func HandleErrors(c *gin.Context, err error) {
	var apiErr *errs.Error
	switch {
	case errors.As(err, &apiErr):
		JSON(c, "", apiErr.Status, nil, apiErr)
	case errors.Is(err, gorm.ErrRecordNotFound):
		JSON(c, "", http.StatusNotFound, nil, errs.ErrNotFound)
	default:
		JSON(c, "", http.StatusInternalServerError, nil, errs.ErrInternalServerError)
	}
}
