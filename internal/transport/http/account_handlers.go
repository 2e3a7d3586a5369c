package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/questline/partyhub/internal/identity"
	"github.com/questline/partyhub/internal/ids"
	"github.com/questline/partyhub/internal/transport/lobby"
)

// AccountHandlers provides HTTP handlers for account management. A successful
// login additionally brings the user's lobby connection up, since every party
// operation needs one.
type AccountHandlers struct {
	identity *identity.Service
	pool     *lobby.Pool
	tokens   *identity.TokenConfig
	// connectCtx parents lobby connections, which must outlive the request.
	connectCtx context.Context
	log        *zerolog.Logger
}

// NewAccountHandlers creates the account handlers.
func NewAccountHandlers(connectCtx context.Context, svc *identity.Service, pool *lobby.Pool, tokens *identity.TokenConfig, logger *zerolog.Logger) *AccountHandlers {
	return &AccountHandlers{
		identity:   svc,
		pool:       pool,
		tokens:     tokens,
		connectCtx: connectCtx,
		log:        logger,
	}
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	UserID       string `json:"userId" binding:"required"`
	PlatformType string `json:"platformType"`
	PlatformID   string `json:"platformId"`
	DisplayName  string `json:"displayName" binding:"required,min=1,max=64"`
	Secret       string `json:"secret" binding:"required,min=6"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	UserID string `json:"userId" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string `json:"token"`
}

// AttributeRequest represents an attribute update body.
type AttributeRequest struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value"`
}

// Register handles account creation.
// POST /api/register
func (h *AccountHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	userID := ids.NewUserID(ids.Composite{
		ID:           req.UserID,
		PlatformType: req.PlatformType,
		PlatformID:   req.PlatformID,
	})
	if !userID.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed user id"})
		return
	}

	account, err := h.identity.Register(c.Request.Context(), userID, req.DisplayName, req.Secret)
	if err != nil {
		h.log.Error().Err(err).Str("user", req.UserID).Msg("failed to register account")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	token, err := identity.GenerateToken(h.tokens, account)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to issue token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("user", req.UserID).Msg("account registered")
	c.JSON(http.StatusCreated, AuthResponse{Token: token})
}

// Login verifies a secret, issues a token and connects the user to the lobby.
// POST /api/login
func (h *AccountHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, err := h.identity.Login(c.Request.Context(), h.tokens, req.UserID, req.Secret)
	if err != nil {
		if errors.Is(err, identity.ErrBadCredentials) || errors.Is(err, identity.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Str("user", req.UserID).Msg("failed to login")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	account, _ := h.identity.Account(req.UserID)
	if err := h.pool.Connect(h.connectCtx, account.UserID, token); err != nil {
		h.log.Error().Err(err).Str("user", req.UserID).Msg("lobby connection failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "lobby unavailable"})
		return
	}

	h.log.Info().Str("user", req.UserID).Msg("user logged in")
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// AccountResponse represents the account info body.
type AccountResponse struct {
	UserID       string            `json:"userId"`
	PlatformType string            `json:"platformType,omitempty"`
	PlatformID   string            `json:"platformId,omitempty"`
	DisplayName  string            `json:"displayName"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Connected    bool              `json:"connected"`
}

// Me returns the authenticated account, including whether its lobby
// connection is up.
// GET /api/account
func (h *AccountHandlers) Me(c *gin.Context) {
	primaryID := c.GetString(ContextKeyUserID)
	account, ok := h.identity.Account(primaryID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "account not found"})
		return
	}

	attrs := make(map[string]string, len(account.Attributes))
	for k, v := range account.Attributes {
		attrs[k] = v
	}
	c.JSON(http.StatusOK, AccountResponse{
		UserID:       account.UserID.PrimaryID(),
		PlatformType: account.UserID.PlatformType(),
		PlatformID:   account.UserID.PlatformID(),
		DisplayName:  account.DisplayName,
		Attributes:   attrs,
		Connected:    h.pool.Connected(account.UserID),
	})
}

// Logout drops the user's lobby connection.
// POST /api/logout
func (h *AccountHandlers) Logout(c *gin.Context) {
	primaryID := c.GetString(ContextKeyUserID)
	h.pool.Disconnect(ids.UserIDFromPrimary(primaryID))
	c.Status(http.StatusNoContent)
}

// SetAttribute updates one account attribute, such as the crossplay
// preference.
// PUT /api/account/attributes
func (h *AccountHandlers) SetAttribute(c *gin.Context) {
	var req AttributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	primaryID := c.GetString(ContextKeyUserID)
	if err := h.identity.SetAttribute(c.Request.Context(), primaryID, req.Name, req.Value); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "account not found"})
			return
		}
		h.log.Error().Err(err).Str("user", primaryID).Msg("failed to set attribute")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}
