package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/questline/partyhub/internal/config"
	"github.com/questline/partyhub/internal/identity"
)

// NewServer builds the HTTP server with the REST routes mounted.
func NewServer(cfg config.Config, tokens *identity.TokenConfig, accounts *AccountHandlers, parties *PartyHandlers, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.POST("/api/register", accounts.Register)
	router.POST("/api/login", accounts.Login)

	authed := router.Group("/", AuthMiddleware(tokens, logger))
	authed.GET("/api/account", accounts.Me)
	authed.POST("/api/logout", accounts.Logout)
	authed.PUT("/api/account/attributes", accounts.SetAttribute)

	authed.GET("/api/party", parties.State)
	authed.GET("/api/party/invites", parties.Invites)
	authed.POST("/api/party", parties.Create)
	authed.POST("/api/party/restore", parties.Restore)
	authed.POST("/api/party/:id/join", parties.Join)
	authed.POST("/api/party/:id/leave", parties.Leave)
	authed.POST("/api/party/:id/invite", parties.Invite)
	authed.POST("/api/party/:id/kick", parties.Kick)
	authed.POST("/api/party/:id/promote", parties.Promote)
	authed.PUT("/api/party/:id/data", parties.UpdateData)
	authed.POST("/api/party/:id/reject", parties.Reject)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
