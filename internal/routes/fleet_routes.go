package routes

import (
	"fleet_monitor/internal/controllers"
	"fleet_monitor/internal/middleware"

	"github.com/gin-gonic/gin"
)

// FleetRoutes registers the carrier-facing CRUD endpoints. Every route
// is tenant-scoped by the controllers; admins see across carriers.
func FleetRoutes(r *gin.Engine, devices *controllers.DeviceController) {
	api := r.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.POST("/drivers", controllers.CreateDriver)
		api.GET("/drivers", controllers.ListDrivers)
		api.GET("/drivers/:id", controllers.GetDriver)
		api.PUT("/drivers/:id", controllers.UpdateDriver)
		api.DELETE("/drivers/:id", controllers.DeleteDriver)

		api.POST("/vehicles", controllers.CreateVehicle)
		api.GET("/vehicles", controllers.ListVehicles)
		api.GET("/vehicles/:id", controllers.GetVehicle)
		api.PUT("/vehicles/:id", controllers.UpdateVehicle)
		api.DELETE("/vehicles/:id", controllers.DeleteVehicle)
		api.POST("/vehicles/:id/device", devices.AssignDevice)

		api.POST("/devices/:id/sync", devices.SyncDevice)
		api.DELETE("/devices/:id", devices.RemoveDevice)

		api.POST("/routes", controllers.CreateRoute)
		api.GET("/routes", controllers.ListRoutes)
		api.GET("/routes/:id", controllers.GetRoute)
		api.PUT("/routes/:id", controllers.UpdateRoute)
		api.DELETE("/routes/:id", controllers.DeleteRoute)
	}
}
