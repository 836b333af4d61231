package router

import (
	"sttstream/internal/api"
	"sttstream/internal/bootstrap"
	"sttstream/internal/middleware"
	"sttstream/internal/ws"

	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the router with all routes.
// All dependencies are explicitly injected through AppDependencies.
func NewRouter(deps *bootstrap.AppDependencies) *gin.Engine {
	ginRouter := gin.New()

	// Use custom structured logger and standard recovery
	ginRouter.Use(middleware.Logger())
	ginRouter.Use(gin.Recovery())

	// Create WebSocket handler with explicit dependencies
	wsHandler := ws.NewHandler(deps.Config, deps.SessionManager, deps.Factory, deps.Dispatcher)
	ginRouter.GET("/ws", func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request)
	})
	// Per-session streaming path: the path's session id is handed to the
	// handler as its "session_id" query parameter.
	ginRouter.GET("/audio/:session_id/stream", func(c *gin.Context) {
		q := c.Request.URL.Query()
		q.Set("session_id", c.Param("session_id"))
		c.Request.URL.RawQuery = q.Encode()
		wsHandler.HandleWebSocket(c.Writer, c.Request)
	})

	// Register REST routes (/health, /transcribe, /audio/:session_id/*)
	apiHandler := api.NewHandler(deps.Config, deps.SessionManager, deps.Factory)
	apiHandler.RegisterRoutes(ginRouter)

	// Static file service
	ginRouter.Static("/static", "./static")
	ginRouter.StaticFile("/", "./static/index.html")

	return ginRouter
}
