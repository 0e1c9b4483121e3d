package routes

import (
	"fleet_monitor/internal/controllers"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the engine and registers every route group. The
// caller owns listening; nothing here binds a port.
func SetupRouter(trips *controllers.TripController, devices *controllers.DeviceController, ws *controllers.WSController) *gin.Engine {
	r := gin.Default()

	AuthRoutes(r)
	FleetRoutes(r, devices)
	TripRoutes(r, trips)
	AdminRoutes(r)
	WebSocketRoutes(r, ws)

	return r
}
