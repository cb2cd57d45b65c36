package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sparrow/services"
)

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrConversationNotFound), errors.Is(err, services.ErrConversationClosed):
		return http.StatusNotFound, "Conversation not found"
	case errors.Is(err, services.ErrUnknownSession):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, services.ErrReplyPending):
		return http.StatusConflict, "Sparrow is still typing"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg})
}
