package routes

import (
	"fleet_monitor/internal/controllers"
	"fleet_monitor/internal/middleware"

	"github.com/gin-gonic/gin"
)

func AdminRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuthWithRole("admin"))
	{
		admin.GET("/transportadoras", controllers.ListTransportadoras)
	}
}
