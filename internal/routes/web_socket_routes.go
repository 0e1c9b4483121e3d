package routes

import (
	"fleet_monitor/internal/controllers"

	"github.com/gin-gonic/gin"
)

// WebSocketRoutes registers the live monitoring feed. Auth happens
// inside the handler because the token rides in a query parameter.
func WebSocketRoutes(r *gin.Engine, ws *controllers.WSController) {
	wsRoutes := r.Group("/ws")
	{
		wsRoutes.GET("/monitoring", ws.HandleMonitoringWebSocket)
	}
}
