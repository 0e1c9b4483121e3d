package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fleet_monitor/internal/config"
	"fleet_monitor/internal/models"
	"fleet_monitor/internal/telemetry"
)

// DeviceController manages GPS trackers. The syncer is injected so the
// provider client is swappable in tests.
type DeviceController struct {
	Syncer *telemetry.Syncer
}

func NewDeviceController(syncer *telemetry.Syncer) *DeviceController {
	return &DeviceController{Syncer: syncer}
}

// AssignDevice installs a tracker on a vehicle. One tracker per vehicle.
func (dc *DeviceController) AssignDevice(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	vehicleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return
	}

	var vehicle models.Vehicle
	if err := tenantScoped(config.DB, tenantID).First(&vehicle, vehicleID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}

	var input struct {
		ProviderDeviceID string `json:"provider_device_id" binding:"required"`
		Label            string `json:"label"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device := models.Device{
		TransportadoraID: vehicle.TransportadoraID,
		VehicleID:        vehicle.ID,
		ProviderDeviceID: input.ProviderDeviceID,
		Label:            input.Label,
		IsActive:         true,
	}
	if err := config.DB.Create(&device).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "vehicle already has a tracker, or the tracker is installed elsewhere"})
			return
		}
		logrus.WithError(err).Error("AssignDevice: insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Assign device failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"device": device})
}

// SyncDevice pulls the tracker's latest position from the provider on
// demand and returns the refreshed snapshot.
func (dc *DeviceController) SyncDevice(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
		return
	}

	var device models.Device
	if err := tenantScoped(config.DB, tenantID).First(&device, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	if err := dc.Syncer.SyncDevice(c.Request.Context(), &device); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Device sync failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"device": device})
}

// RemoveDevice uninstalls the tracker from its vehicle.
func (dc *DeviceController) RemoveDevice(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid device ID"})
		return
	}

	var device models.Device
	if err := tenantScoped(config.DB, tenantID).First(&device, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return
	}

	if err := config.DB.Delete(&device).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Device removed successfully"})
}
