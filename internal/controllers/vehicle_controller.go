package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet_monitor/internal/config"
	"fleet_monitor/internal/models"
)

type vehicleInput struct {
	Placa  string `json:"placa" binding:"required"`
	Modelo string `json:"modelo"`
	Marca  string `json:"marca"`
	Ano    int    `json:"ano"`
}

// CreateVehicle registers a vehicle under the authenticated carrier.
func CreateVehicle(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if tenantID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only transportadoras can register vehicles"})
		return
	}

	var input vehicleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vehicle := models.Vehicle{
		TransportadoraID: tenantID,
		Placa:            input.Placa,
		Modelo:           input.Modelo,
		Marca:            input.Marca,
		Ano:              input.Ano,
		Status:           models.VehicleAvailable,
	}
	if err := config.DB.Create(&vehicle).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "placa already registered"})
			return
		}
		logrus.WithError(err).Error("CreateVehicle: insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create vehicle failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vehicle": vehicle})
}

// ListVehicles returns the carrier's vehicles with their trackers.
func ListVehicles(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	var vehicles []models.Vehicle
	if err := tenantScoped(config.DB, tenantID).Preload("Device").Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing vehicles: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// GetVehicle returns one vehicle within the carrier scope.
func GetVehicle(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return
	}

	var vehicle models.Vehicle
	if err := tenantScoped(config.DB, tenantID).Preload("Device").First(&vehicle, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// UpdateVehicle applies partial updates. Status transitions are limited
// to the maintenance flags here; trip lifecycle changes EM_VIAGEM.
func UpdateVehicle(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return
	}

	var vehicle models.Vehicle
	if err := tenantScoped(config.DB, tenantID).First(&vehicle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	var input struct {
		Modelo *string `json:"modelo"`
		Marca  *string `json:"marca"`
		Ano    *int    `json:"ano"`
		Status *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Modelo != nil {
		vehicle.Modelo = *input.Modelo
	}
	if input.Marca != nil {
		vehicle.Marca = *input.Marca
	}
	if input.Ano != nil {
		vehicle.Ano = *input.Ano
	}
	if input.Status != nil {
		switch *input.Status {
		case models.VehicleAvailable, models.VehicleMaintenance, models.VehicleInactive:
			if vehicle.Status == models.VehicleOnTrip {
				c.JSON(http.StatusConflict, gin.H{"error": "Vehicle is on a trip; complete or cancel the trip first"})
				return
			}
			vehicle.Status = *input.Status
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle status"})
			return
		}
	}

	if err := config.DB.Save(&vehicle).Error; err != nil {
		logrus.WithError(err).Error("UpdateVehicle: save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// DeleteVehicle removes a vehicle that is not on a trip.
func DeleteVehicle(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return
	}

	var vehicle models.Vehicle
	if err := tenantScoped(config.DB, tenantID).First(&vehicle, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}
	if vehicle.Status == models.VehicleOnTrip {
		c.JSON(http.StatusConflict, gin.H{"error": "Vehicle is on a trip"})
		return
	}

	if err := config.DB.Delete(&vehicle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted successfully"})
}
