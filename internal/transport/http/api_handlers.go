package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiredm/internal/auth"
	"github.com/vovakirdan/wiredm/internal/core"
	"github.com/vovakirdan/wiredm/internal/store"
)

// APIHandlers serves account endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the user record plus its bearer token.
type LoginResponse struct {
	*store.User
	Token string `json:"token"`
}

// AvatarRequest represents the avatar update body.
type AvatarRequest struct {
	ImageURL string `json:"imageUrl"`
}

var errBadBody = core.InvalidArgument("invalid request body", nil)

// Register handles user registration.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		writeError(c, h.log, errBadBody)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login handles user login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		writeError(c, h.log, errBadBody)
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	h.log.Info().Str("username", session.User.Username).Msg("user logged in")
	c.JSON(http.StatusOK, LoginResponse{User: session.User, Token: session.Token})
}

// Me returns the caller's account.
// GET /api/me
func (h *APIHandlers) Me(c *gin.Context) {
	id, _ := identityFrom(c)
	user, err := h.authService.Me(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateAvatar sets or clears the caller's image URL.
// PUT /api/me/avatar
func (h *APIHandlers) UpdateAvatar(c *gin.Context) {
	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, errBadBody)
		return
	}

	id, _ := identityFrom(c)
	user, err := h.authService.UpdateAvatar(c.Request.Context(), id, req.ImageURL)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
