package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sparrow/chat"
	"sparrow/services"
)

type SessionsHandler struct {
	catalog services.SessionCatalog
	now     func() time.Time
}

func NewSessionsHandler(catalog services.SessionCatalog) *SessionsHandler {
	return &SessionsHandler{catalog: catalog, now: time.Now}
}

type sessionResponse struct {
	chat.Session
	LastActivityLabel string `json:"last_activity_label"`
}

// List returns the session sidebar in display order.
func (h *SessionsHandler) List(c *gin.Context) {
	sessions, err := h.catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			Session:           s,
			LastActivityLabel: chat.RelativeTime(now, s.LastActivity),
		})
	}

	c.JSON(http.StatusOK, out)
}
