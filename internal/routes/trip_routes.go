package routes

import (
	"fleet_monitor/internal/controllers"
	"fleet_monitor/internal/middleware"

	"github.com/gin-gonic/gin"
)

// TripRoutes registers trip lifecycle and monitoring endpoints.
func TripRoutes(r *gin.Engine, trips *controllers.TripController) {
	api := r.Group("/api/trips")
	api.Use(middleware.RequireAuth())
	{
		api.POST("", trips.CreateTrip)
		api.GET("", trips.ListTrips)
		api.GET("/:id", trips.GetTrip)
		api.POST("/:id/start", trips.StartTrip)
		api.POST("/:id/complete", trips.CompleteTrip)
		api.POST("/:id/cancel", trips.CancelTrip)

		api.POST("/:id/analyze", trips.AnalyzeTrip)
		api.POST("/:id/recalculate-stats", trips.RecalculateStats)
		api.GET("/:id/positions", trips.ListTripPositions)
		api.GET("/:id/alerts", trips.ListTripAlerts)
	}
}
