package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm/internal/service/chat"
)

// UserHandlers provides HTTP handlers for user listing.
type UserHandlers struct {
	chat *chat.Service
	log  *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(chatService *chat.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		chat: chatService,
		log:  logger,
	}
}

// ListUsers returns every other user with the latest message exchanged with the caller.
// GET /api/users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	id, _ := identityFrom(c)

	users, err := h.chat.ListUsers(c.Request.Context(), id.Username)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, users)
}
