package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sparrow/chat"
	"sparrow/services"
)

type ConversationsHandler struct {
	registry *services.Registry
	catalog  services.SessionCatalog
}

func NewConversationsHandler(registry *services.Registry, catalog services.SessionCatalog) *ConversationsHandler {
	return &ConversationsHandler{registry: registry, catalog: catalog}
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type selectSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type setViewRequest struct {
	View string `json:"view" binding:"required"`
}

type conversationResponse struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	State chat.State `json:"state"`
}

// Create opens a conversation holding only the greeting.
func (h *ConversationsHandler) Create(c *gin.Context) {
	conv := h.registry.Create()
	s, err := conv.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusCreated, conv.ID(), s)
}

func (h *ConversationsHandler) Get(c *gin.Context) {
	conv, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	s, err := conv.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, conv.ID(), s)
}

func (h *ConversationsHandler) Delete(c *gin.Context) {
	if err := h.registry.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation closed"})
}

// SendMessage accepts the user message; the assistant reply follows on the
// event stream after the reply delay.
func (h *ConversationsHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	conv, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	msg, err := conv.Submit(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	if msg == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": msg})
}

func (h *ConversationsHandler) Reset(c *gin.Context) {
	conv, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	s, err := conv.Reset(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, conv.ID(), s)
}

func (h *ConversationsHandler) SelectSession(c *gin.Context) {
	var req selectSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	conv, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	s, err := conv.SelectSession(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, conv.ID(), s)
}

func (h *ConversationsHandler) SetView(c *gin.Context) {
	var req setViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	view, ok := chat.ParseView(req.View)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown view"})
		return
	}

	conv, err := h.registry.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	s, err := conv.SetView(c.Request.Context(), view)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondState(c, http.StatusOK, conv.ID(), s)
}

func (h *ConversationsHandler) respondState(c *gin.Context, status int, id string, s chat.State) {
	sessions, err := h.catalog.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, conversationResponse{
		ID:    id,
		Title: chat.ActiveTitle(sessions, s.ActiveSessionID),
		State: s,
	})
}
