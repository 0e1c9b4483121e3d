package main

import (
	"context"
	"log"
	"net/http"

	"fleet_monitor/internal/config"
	"fleet_monitor/internal/controllers"
	"fleet_monitor/internal/hub"
	"fleet_monitor/internal/logger"
	"fleet_monitor/internal/middleware"
	"fleet_monitor/internal/monitoring"
	"fleet_monitor/internal/routes"
	"fleet_monitor/internal/scheduler"
	"fleet_monitor/internal/telemetry"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	// Connect to the database
	config.InitDB()
	db := config.GetDB()

	// Telemetry provider client and device sync
	providerClient := telemetry.NewClient(telemetry.Config{
		BaseURL: config.TelemetryBaseURL(),
		APIKey:  config.TelemetryAPIKey(),
		APIUser: config.TelemetryAPIUser(),
		APIPass: config.TelemetryAPIPass(),
	})
	syncer := telemetry.NewSyncer(db, providerClient)

	// Trip analysis pipeline
	store := monitoring.NewGormStore(db)
	analyzer := monitoring.NewAnalyzer(monitoring.NewDevicePositions(db), store)
	recalculator := monitoring.NewRecalculator(db)

	// Live monitoring feed
	fleetHub := hub.NewFleetHub()

	// Controllers with their injected collaborators
	trips := controllers.NewTripController(analyzer, recalculator, syncer, config.DeviceFreshnessThreshold())
	devices := controllers.NewDeviceController(syncer)
	ws := controllers.NewWSController(fleetHub)

	// Setup Gin router
	r := routes.SetupRouter(trips, devices, ws)

	// Recovery middleware
	r.Use(gin.Recovery())

	// Request logging middleware
	r.Use(ginlog.SetLogger(
		ginlog.WithLogger(func(_ *gin.Context, l zerolog.Logger) zerolog.Logger {
			return l.With().Str("service", "fleet_monitor").Logger()
		}),
	))

	// Background trip monitor
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor := scheduler.NewMonitor(db, syncer, analyzer, store, fleetHub, config.MonitorInterval())
	go monitor.Start(ctx)
	defer monitor.Stop()

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	log.Println("🚀 Server running at :8080")
	log.Fatal(http.ListenAndServe("0.0.0.0:8080", handler))
}
