package models

import (
	"time"

	"gorm.io/gorm"
)

// PositionHistory is one snapshot of the vehicle position during a trip,
// captured once per analysis tick. The unique index drops duplicate
// telemetry ticks at the persistence boundary: the same device timestamp
// and coordinates are never stored twice for one trip.
type PositionHistory struct {
	gorm.Model
	TripID uint `json:"trip_id" gorm:"index;uniqueIndex:idx_trip_position_dedup"`

	Latitude  float64  `json:"latitude" gorm:"uniqueIndex:idx_trip_position_dedup"`
	Longitude float64  `json:"longitude" gorm:"uniqueIndex:idx_trip_position_dedup"`
	Speed     *float64 `json:"speed"` // km/h, null when the tracker omitted it
	Address   *string  `json:"address"`
	Heading   *int     `json:"heading"` // degrees 0-360

	DeviceTimestamp time.Time `json:"device_timestamp" gorm:"uniqueIndex:idx_trip_position_dedup;index"`

	// Simulation support: positions injected by tooling rather than a tracker
	IsTestPosition bool `json:"is_test_position" gorm:"default:false"`
}
