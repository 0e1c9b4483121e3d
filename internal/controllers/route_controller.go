package controllers

import (
	"encoding/binary"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet_monitor/internal/config"
	"fleet_monitor/internal/models"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// RouteResponse mirrors models.Route but carries the geometry as a
// GeoJSON string for API output.
type RouteResponse struct {
	ID               uint           `json:"ID"`
	CreatedAt        time.Time      `json:"CreatedAt"`
	UpdatedAt        time.Time      `json:"UpdatedAt"`
	DeletedAt        gorm.DeletedAt `json:"DeletedAt,omitempty"`
	TransportadoraID uint           `json:"transportadora_id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`

	OriginName      string  `json:"origin_name"`
	OriginAddress   string  `json:"origin_address"`
	OriginLatitude  float64 `json:"origin_latitude"`
	OriginLongitude float64 `json:"origin_longitude"`

	DestinationName      string  `json:"destination_name"`
	DestinationAddress   string  `json:"destination_address"`
	DestinationLatitude  float64 `json:"destination_latitude"`
	DestinationLongitude float64 `json:"destination_longitude"`

	DistanceMeters           *int   `json:"distance_meters"`
	EstimatedDurationSeconds *int   `json:"estimated_duration_seconds"`
	Geometry                 string `json:"geometry"`
	IsActive                 bool   `json:"is_active"`
}

func toRouteResponse(route models.Route) RouteResponse {
	jsonGeom, _ := convertWKBToGeoJSON(route.Geometry)
	return RouteResponse{
		ID:                       route.ID,
		CreatedAt:                route.CreatedAt,
		UpdatedAt:                route.UpdatedAt,
		DeletedAt:                route.DeletedAt,
		TransportadoraID:         route.TransportadoraID,
		Name:                     route.Name,
		Description:              route.Description,
		OriginName:               route.OriginName,
		OriginAddress:            route.OriginAddress,
		OriginLatitude:           route.OriginLatitude,
		OriginLongitude:          route.OriginLongitude,
		DestinationName:          route.DestinationName,
		DestinationAddress:       route.DestinationAddress,
		DestinationLatitude:      route.DestinationLatitude,
		DestinationLongitude:     route.DestinationLongitude,
		DistanceMeters:           route.DistanceMeters,
		EstimatedDurationSeconds: route.EstimatedDurationSeconds,
		Geometry:                 jsonGeom,
		IsActive:                 route.IsActive,
	}
}

// parseAndConvertGeometry parses a GeoJSON string into a geom.T and returns WKB bytes
func parseAndConvertGeometry(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	err := gjson.Unmarshal([]byte(raw), &g)
	if err != nil {
		return nil, err
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type routeInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`

	OriginName      string  `json:"origin_name" binding:"required"`
	OriginAddress   string  `json:"origin_address"`
	OriginLatitude  float64 `json:"origin_latitude" binding:"required"`
	OriginLongitude float64 `json:"origin_longitude" binding:"required"`

	DestinationName      string  `json:"destination_name" binding:"required"`
	DestinationAddress   string  `json:"destination_address"`
	DestinationLatitude  float64 `json:"destination_latitude" binding:"required"`
	DestinationLongitude float64 `json:"destination_longitude" binding:"required"`

	DistanceMeters           *int   `json:"distance_meters"`
	EstimatedDurationSeconds *int   `json:"estimated_duration_seconds"`
	Geometry                 string `json:"geometry"` // GeoJSON LineString
}

// CreateRoute registers a planned route, optionally with a GeoJSON polyline.
func CreateRoute(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	if tenantID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only transportadoras can create routes"})
		return
	}

	var input routeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	wkbGeom, err := parseAndConvertGeometry(input.Geometry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
		return
	}

	route := models.Route{
		TransportadoraID:         tenantID,
		Name:                     input.Name,
		Description:              input.Description,
		OriginName:               input.OriginName,
		OriginAddress:            input.OriginAddress,
		OriginLatitude:           input.OriginLatitude,
		OriginLongitude:          input.OriginLongitude,
		DestinationName:          input.DestinationName,
		DestinationAddress:       input.DestinationAddress,
		DestinationLatitude:      input.DestinationLatitude,
		DestinationLongitude:     input.DestinationLongitude,
		DistanceMeters:           input.DistanceMeters,
		EstimatedDurationSeconds: input.EstimatedDurationSeconds,
		Geometry:                 wkbGeom,
		IsActive:                 true,
	}
	if err := config.DB.Create(&route).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Create route failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"route": toRouteResponse(route)})
}

// ListRoutes returns all routes visible to the caller.
func ListRoutes(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}

	var routes []models.Route
	if err := tenantScoped(config.DB, tenantID).Find(&routes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing routes: " + err.Error()})
		return
	}

	routeResponses := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		routeResponses = append(routeResponses, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"routes": routeResponses})
}

// GetRoute returns a single route with its polyline as GeoJSON.
func GetRoute(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var route models.Route
	if err := tenantScoped(config.DB, tenantID).First(&route, rID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// UpdateRoute handles updating an existing route.
func UpdateRoute(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		logrus.WithError(err).Warn("UpdateRoute: Invalid route ID in parameter")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var existingRoute models.Route
	if err := tenantScoped(config.DB, tenantID).First(&existingRoute, rID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		} else {
			logrus.WithError(err).Error("UpdateRoute: Database error fetching route")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	var input struct {
		Name                     *string `json:"name"`
		Description              *string `json:"description"`
		Geometry                 *string `json:"geometry"`
		DistanceMeters           *int    `json:"distance_meters"`
		EstimatedDurationSeconds *int    `json:"estimated_duration_seconds"`
		IsActive                 *bool   `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRoute: Invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		existingRoute.Name = *input.Name
	}
	if input.Description != nil {
		existingRoute.Description = *input.Description
	}
	if input.DistanceMeters != nil {
		existingRoute.DistanceMeters = input.DistanceMeters
	}
	if input.EstimatedDurationSeconds != nil {
		existingRoute.EstimatedDurationSeconds = input.EstimatedDurationSeconds
	}
	if input.IsActive != nil {
		existingRoute.IsActive = *input.IsActive
	}
	if input.Geometry != nil {
		if *input.Geometry == "" {
			existingRoute.Geometry = nil
		} else {
			wkbGeom, err := parseAndConvertGeometry(*input.Geometry)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
				return
			}
			existingRoute.Geometry = wkbGeom
		}
	}

	if err := config.DB.Save(&existingRoute).Error; err != nil {
		logrus.WithError(err).Error("UpdateRoute: Failed to save updated route")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(existingRoute)})
}

// DeleteRoute removes a route that no trip in progress depends on.
func DeleteRoute(c *gin.Context) {
	tenantID, ok := requireTenant(c)
	if !ok {
		return
	}
	rID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid route ID"})
		return
	}

	var route models.Route
	if err := tenantScoped(config.DB, tenantID).First(&route, rID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	var activeTrips int64
	config.DB.Model(&models.Trip{}).
		Where("route_id = ? AND status = ?", route.ID, models.TripInProgress).
		Count(&activeTrips)
	if activeTrips > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Route is used by a trip in progress"})
		return
	}

	if err := config.DB.Delete(&route).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Delete failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully"})
}
