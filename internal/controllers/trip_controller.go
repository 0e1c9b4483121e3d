package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet_monitor/internal/config"
	"fleet_monitor/internal/models"
	"fleet_monitor/internal/monitoring"
	"fleet_monitor/internal/telemetry"
)

// TripController owns the trip lifecycle and the monitoring endpoints.
// Its collaborators are injected at startup; nothing here reaches for a
// package-level singleton besides the database handle.
type TripController struct {
	Analyzer     *monitoring.Analyzer
	Recalculator *monitoring.Recalculator
	Syncer       *telemetry.Syncer
	Freshness    time.Duration
}

func NewTripController(analyzer *monitoring.Analyzer, recalc *monitoring.Recalculator, syncer *telemetry.Syncer, freshness time.Duration) *TripController {
	return &TripController{
		Analyzer:     analyzer,
		Recalculator: recalc,
		Syncer:       syncer,
		Freshness:    freshness,
	}
}

type tripInput struct {
	RouteID   uint `json:"route_id" binding:"required"`
	DriverID  uint `json:"driver_id" binding:"required"`
	VehicleID uint `json:"vehicle_id" binding:"required"`

	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`

	PlannedStartDate time.Time `json:"planned_start_date" binding:"required"`
	PlannedEndDate   time.Time `json:"planned_end_date" binding:"required"`

	CargoDescription string   `json:"cargo_description"`
	CargoValue       *float64 `json:"cargo_value"`
	Observations     string   `json:"observations"`

	DeviationToleranceMeters int `json:"deviation_tolerance_meters"`
}

// CreateTrip plans a new trip. The vehicle's tracker is synced and its
// freshness recorded, so a stale tracker is visible before departure.
func (tc *TripController) CreateTrip(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if tenantID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only transportadoras can plan trips"})
		return
	}

	var input tripInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !input.PlannedEndDate.After(input.PlannedStartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "planned_end_date must be after planned_start_date"})
		return
	}

	var route models.Route
	if err := tenantScoped(config.DB, tenantID).First(&route, input.RouteID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Route not found"})
		return
	}
	var driver models.Driver
	if err := tenantScoped(config.DB, tenantID).First(&driver, input.DriverID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Driver not found"})
		return
	}
	if !driver.IsActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Driver is inactive"})
		return
	}
	if !driver.CNHIsValid(time.Now()) {
		c.JSON(http.StatusConflict, gin.H{"error": "Driver's CNH is expired or missing"})
		return
	}
	var vehicle models.Vehicle
	if err := tenantScoped(config.DB, tenantID).Preload("Device").First(&vehicle, input.VehicleID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vehicle not found"})
		return
	}
	if vehicle.Status != models.VehicleAvailable {
		c.JSON(http.StatusConflict, gin.H{"error": "Vehicle is not available"})
		return
	}
	if vehicle.Device == nil || !vehicle.Device.IsActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Vehicle has no active tracker"})
		return
	}

	now := time.Now()
	deviceWasUpdated := false
	if err := tc.Syncer.SyncDevice(c.Request.Context(), vehicle.Device); err != nil {
		logrus.WithError(err).WithField("vehicle_id", vehicle.ID).
			Warn("Tracker sync failed during trip planning, using last stored snapshot.")
	}
	deviceWasUpdated = vehicle.Device.IsUpdatedRecently(now, tc.Freshness)

	trip := models.Trip{
		TransportadoraID:         tenantID,
		RouteID:                  route.ID,
		DriverID:                 driver.ID,
		VehicleID:                vehicle.ID,
		Name:                     input.Name,
		Description:              input.Description,
		Status:                   models.TripPlanned,
		PlannedStartDate:         input.PlannedStartDate,
		PlannedEndDate:           input.PlannedEndDate,
		DeviceValidatedAt:        &now,
		DeviceWasUpdated:         deviceWasUpdated,
		CargoDescription:         input.CargoDescription,
		CargoValue:               input.CargoValue,
		Observations:             input.Observations,
		DeviationToleranceMeters: input.DeviationToleranceMeters,
		IsActive:                 true,
		Alerts:                   models.AlertLog{},
	}
	if err := config.DB.Create(&trip).Error; err != nil {
		logrus.WithError(err).Error("CreateTrip: insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create trip failed: " + err.Error()})
		return
	}

	response := gin.H{"trip": trip}
	if !deviceWasUpdated {
		response["warning"] = "Vehicle tracker has not reported recently; monitoring may lag"
	}
	c.JSON(http.StatusCreated, response)
}

// ListTrips returns trips visible to the caller, optionally filtered by status.
func (tc *TripController) ListTrips(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	query := tenantScoped(config.DB, tenantID).
		Preload("Route").Preload("Driver").Preload("Vehicle")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var trips []models.Trip
	if err := query.Order("created_at desc").Find(&trips).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing trips: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

// GetTrip returns one trip with its associations and alert history.
func (tc *TripController) GetTrip(c *gin.Context) {
	trip, ok := tc.loadTrip(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// StartTrip moves a planned trip into EM_ANDAMENTO and flags the vehicle.
func (tc *TripController) StartTrip(c *gin.Context) {
	trip, ok := tc.loadTrip(c)
	if !ok {
		return
	}
	if trip.Status != models.TripPlanned {
		c.JSON(http.StatusConflict, gin.H{"error": "Only planned trips can be started"})
		return
	}

	now := time.Now()
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(trip).Updates(map[string]interface{}{
			"status":            models.TripInProgress,
			"actual_start_date": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Vehicle{}).Where("id = ?", trip.VehicleID).
			Update("status", models.VehicleOnTrip).Error
	})
	if err != nil {
		logrus.WithError(err).Error("StartTrip: transition failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Start trip failed: " + err.Error()})
		return
	}

	trip.Status = models.TripInProgress
	trip.ActualStartDate = &now
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// CompleteTrip finishes a trip in progress, frees the vehicle and
// recalculates the trip statistics from position history.
func (tc *TripController) CompleteTrip(c *gin.Context) {
	trip, ok := tc.loadTrip(c)
	if !ok {
		return
	}
	if trip.Status != models.TripInProgress {
		c.JSON(http.StatusConflict, gin.H{"error": "Only trips in progress can be completed"})
		return
	}

	now := time.Now()
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(trip).Updates(map[string]interface{}{
			"status":          models.TripCompleted,
			"actual_end_date": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Vehicle{}).Where("id = ?", trip.VehicleID).
			Update("status", models.VehicleAvailable).Error
	})
	if err != nil {
		logrus.WithError(err).Error("CompleteTrip: transition failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Complete trip failed: " + err.Error()})
		return
	}

	if err := tc.Recalculator.Recalculate(trip.ID); err != nil {
		logrus.WithError(err).WithField("trip_id", trip.ID).
			Warn("Statistics recalculation failed after trip completion.")
	}

	trip.Status = models.TripCompleted
	trip.ActualEndDate = &now
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// CancelTrip aborts a planned or running trip.
func (tc *TripController) CancelTrip(c *gin.Context) {
	trip, ok := tc.loadTrip(c)
	if !ok {
		return
	}
	if trip.Status != models.TripPlanned && trip.Status != models.TripInProgress {
		c.JSON(http.StatusConflict, gin.H{"error": "Trip is already finished"})
		return
	}

	wasInProgress := trip.Status == models.TripInProgress
	now := time.Now()
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(trip).Updates(map[string]interface{}{
			"status":          models.TripCancelled,
			"actual_end_date": now,
		}).Error; err != nil {
			return err
		}
		if !wasInProgress {
			return nil
		}
		return tx.Model(&models.Vehicle{}).Where("id = ?", trip.VehicleID).
			Update("status", models.VehicleAvailable).Error
	})
	if err != nil {
		logrus.WithError(err).Error("CancelTrip: transition failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cancel trip failed: " + err.Error()})
		return
	}

	trip.Status = models.TripCancelled
	trip.ActualEndDate = &now
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// AnalyzeTrip runs one analysis cycle on demand. A Success=false body is
// an expected no-op (trip not running, tracker silent) and still 200.
func (tc *TripController) AnalyzeTrip(c *gin.Context) {
	trip, ok := tc.loadTrip(c)
	if !ok {
		return
	}

	result, err := tc.Analyzer.AnalyzeCurrentPosition(trip)
	if err != nil {
		if errors.Is(err, monitoring.ErrMissingRoute) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		logrus.WithError(err).WithField("trip_id", trip.ID).Error("AnalyzeTrip: analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RecalculateStats rebuilds the trip's aggregate statistics from its
// stored position history.
func (tc *TripController) RecalculateStats(c *gin.Context) {
	trip, ok := tc.loadTrip(c)
	if !ok {
		return
	}

	if err := tc.Recalculator.Recalculate(trip.ID); err != nil {
		logrus.WithError(err).WithField("trip_id", trip.ID).Error("RecalculateStats failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recalculation failed: " + err.Error()})
		return
	}

	var refreshed models.Trip
	if err := config.DB.First(&refreshed, trip.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trip_id":                    refreshed.ID,
		"total_distance_traveled_km": refreshed.TotalDistanceTraveledKm,
		"average_speed_kmh":          refreshed.AverageSpeedKmh,
		"total_stops":                refreshed.TotalStops,
	})
}

// ListTripPositions returns the stored track for a trip, newest last.
// With ?format=geojson the track is returned as a LineString feature.
func (tc *TripController) ListTripPositions(c *gin.Context) {
	trip, ok := tc.loadTrip(c)
	if !ok {
		return
	}

	var history []models.PositionHistory
	if err := config.DB.Where("trip_id = ?", trip.ID).
		Order("device_timestamp asc").Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing positions: " + err.Error()})
		return
	}

	if c.Query("format") == "geojson" {
		coords := make([][]float64, 0, len(history))
		for _, p := range history {
			coords = append(coords, []float64{p.Longitude, p.Latitude})
		}
		c.JSON(http.StatusOK, gin.H{
			"type": "Feature",
			"geometry": gin.H{
				"type":        "LineString",
				"coordinates": coords,
			},
			"properties": gin.H{
				"trip_id":    trip.ID,
				"identifier": trip.Identifier,
				"points":     len(coords),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"positions": history})
}

// ListTripAlerts returns the alert log accumulated by monitoring.
func (tc *TripController) ListTripAlerts(c *gin.Context) {
	trip, ok := tc.loadTrip(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": trip.Alerts})
}

// loadTrip fetches the trip in the caller's scope, with the associations
// the analyzer needs. Writes the error response itself on failure.
func (tc *TripController) loadTrip(c *gin.Context) (*models.Trip, bool) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return nil, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return nil, false
	}

	var trip models.Trip
	query := tenantScoped(config.DB, tenantID).
		Preload("Route").Preload("Driver").Preload("Vehicle").Preload("Vehicle.Device")
	if err := query.First(&trip, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return &trip, true
}
