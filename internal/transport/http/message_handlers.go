package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm/internal/service/chat"
)

// MessageHandlers serves conversation, send and react endpoints.
type MessageHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(chatService *chat.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{chat: chatService, log: logger}
}

// SendMessageRequest represents the send message body.
type SendMessageRequest struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// ReactRequest represents the reaction body.
type ReactRequest struct {
	Content string `json:"content"`
}

// ListConversation returns the messages between the caller and :username, newest first.
// GET /api/conversations/:username/messages
func (h *MessageHandlers) ListConversation(c *gin.Context) {
	id, _ := identityFrom(c)

	msgs, err := h.chat.ListConversation(c.Request.Context(), id.Username, c.Param("username"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// SendMessage handles POST /api/messages.
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, errBadBody)
		return
	}

	id, _ := identityFrom(c)
	msg, err := h.chat.SendMessage(c.Request.Context(), id.Username, req.To, req.Content)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// React handles POST /api/messages/:uuid/reactions.
func (h *MessageHandlers) React(c *gin.Context) {
	var req ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, errBadBody)
		return
	}

	id, _ := identityFrom(c)
	reaction, err := h.chat.React(c.Request.Context(), id.Username, c.Param("uuid"), req.Content)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, reaction)
}
