package middlewares

import (
	"Medicare/apperrors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RespondJSON writes a JSON response to the client.
func RespondJSON(c *gin.Context, data interface{}, status int) {
	c.JSON(status, data)
}

// HttpError logs an error and writes an HTTP error response to the client.
func HttpError(c *gin.Context, message string, status int, err error) {
	entry := log.WithFields(log.Fields{
		"status": status,
		"method": c.Request.Method,
		"path":   c.FullPath(),
	})
	if err != nil {
		entry = entry.WithError(err)
	}
	if status >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Info(message)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// RespondError maps err to its status. Server side failures answer with a
// generic message; the cause only goes to the log.
func RespondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	HttpError(c, message, status, err)
}
