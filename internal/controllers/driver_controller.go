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
)

type driverInput struct {
	Nome        string     `json:"nome" binding:"required"`
	CPF         string     `json:"cpf" binding:"required"`
	Phone       string     `json:"phone"`
	CNH         string     `json:"cnh"`
	CNHCategory string     `json:"cnh_category"`
	CNHExpiry   *time.Time `json:"cnh_expiry"`
}

// CreateDriver registers a driver under the authenticated carrier.
func CreateDriver(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if tenantID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only transportadoras can register drivers"})
		return
	}

	var input driverInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	driver := models.Driver{
		TransportadoraID: tenantID,
		Nome:             input.Nome,
		CPF:              input.CPF,
		Phone:            input.Phone,
		CNH:              input.CNH,
		CNHCategory:      input.CNHCategory,
		CNHExpiry:        input.CNHExpiry,
		IsActive:         true,
	}
	if err := config.DB.Create(&driver).Error; err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "cpf already registered"})
			return
		}
		logrus.WithError(err).Error("CreateDriver: insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create driver failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"driver": driver})
}

// ListDrivers returns the carrier's drivers (all drivers for admins).
func ListDrivers(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	var drivers []models.Driver
	if err := tenantScoped(config.DB, tenantID).Find(&drivers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing drivers: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"drivers": drivers})
}

// GetDriver returns one driver within the carrier scope.
func GetDriver(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver ID"})
		return
	}

	var driver models.Driver
	if err := tenantScoped(config.DB, tenantID).First(&driver, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"driver": driver})
}

// UpdateDriver applies partial updates to a driver profile.
func UpdateDriver(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver ID"})
		return
	}

	var driver models.Driver
	if err := tenantScoped(config.DB, tenantID).First(&driver, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	var input struct {
		Nome        *string    `json:"nome"`
		Phone       *string    `json:"phone"`
		CNH         *string    `json:"cnh"`
		CNHCategory *string    `json:"cnh_category"`
		CNHExpiry   *time.Time `json:"cnh_expiry"`
		IsActive    *bool      `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Nome != nil {
		driver.Nome = *input.Nome
	}
	if input.Phone != nil {
		driver.Phone = *input.Phone
	}
	if input.CNH != nil {
		driver.CNH = *input.CNH
	}
	if input.CNHCategory != nil {
		driver.CNHCategory = *input.CNHCategory
	}
	if input.CNHExpiry != nil {
		driver.CNHExpiry = input.CNHExpiry
	}
	if input.IsActive != nil {
		driver.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&driver).Error; err != nil {
		logrus.WithError(err).Error("UpdateDriver: save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"driver": driver})
}

// DeleteDriver removes a driver. Drivers assigned to a trip in progress
// cannot be removed.
func DeleteDriver(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver ID"})
		return
	}

	var driver models.Driver
	if err := tenantScoped(config.DB, tenantID).First(&driver, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
		return
	}

	var activeTrips int64
	config.DB.Model(&models.Trip{}).
		Where("driver_id = ? AND status = ?", driver.ID, models.TripInProgress).
		Count(&activeTrips)
	if activeTrips > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Driver has a trip in progress"})
		return
	}

	if err := config.DB.Delete(&driver).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Driver deleted successfully"})
}
