package models

import (
	"gorm.io/gorm"
)

// Route represents a planned path between an origin and a destination.
// A transportadora owns many routes; trips reference one route each.
type Route struct {
	gorm.Model
	TransportadoraID uint   `json:"transportadora_id" gorm:"index"`
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`

	OriginName      string  `json:"origin_name" binding:"required"`
	OriginAddress   string  `json:"origin_address"`
	OriginLatitude  float64 `json:"origin_latitude" binding:"required"`
	OriginLongitude float64 `json:"origin_longitude" binding:"required"`

	DestinationName      string  `json:"destination_name" binding:"required"`
	DestinationAddress   string  `json:"destination_address"`
	DestinationLatitude  float64 `json:"destination_latitude" binding:"required"`
	DestinationLongitude float64 `json:"destination_longitude" binding:"required"`

	// Filled by the routing service when geometry is acquired
	DistanceMeters           *int `json:"distance_meters"`
	EstimatedDurationSeconds *int `json:"estimated_duration_seconds"`

	// Planned path stored as a WKB LINESTRING; GeoJSON at the API boundary.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	IsActive bool `json:"is_active" gorm:"default:true"`
}

// HasGeometry reports whether a polyline was acquired for this route.
func (r *Route) HasGeometry() bool {
	return len(r.Geometry) > 0
}

// HasEndpoints reports whether origin and destination coordinates are set.
func (r *Route) HasEndpoints() bool {
	return !(r.OriginLatitude == 0 && r.OriginLongitude == 0 &&
		r.DestinationLatitude == 0 && r.DestinationLongitude == 0)
}

// DistanceKm returns the routed distance in kilometers, or 0 when unknown.
func (r *Route) DistanceKm() float64 {
	if r.DistanceMeters == nil {
		return 0
	}
	return float64(*r.DistanceMeters) / 1000.0
}
