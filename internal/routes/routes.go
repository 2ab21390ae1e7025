package routes

import (
	"ping_backend/internal/handlers"
	"ping_backend/internal/middleware"
	"ping_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the HTTP API and the websocket endpoint. Everything
// under /api/v1 and /ws requires a valid bearer token.
func RegisterRoutes(
	router *gin.Engine,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *ws.Handler,
) {
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware())
	{
		notificationHandler.RegisterRoutes(api)
	}

	wsGroup := router.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware())
	{
		wsGroup.GET("", wsHandler.ServeWS)
	}
}
