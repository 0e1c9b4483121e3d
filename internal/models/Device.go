package models

import (
	"time"

	"gorm.io/gorm"
)

// Device is a GPS tracker installed in a vehicle. The last_* columns hold
// the most recent snapshot pulled from the telemetry provider; the trip
// analyzer reads the vehicle's current position from here.
type Device struct {
	gorm.Model
	TransportadoraID uint   `json:"transportadora_id" gorm:"index"`
	VehicleID        uint   `json:"vehicle_id" gorm:"uniqueIndex"`
	ProviderDeviceID string `json:"provider_device_id" gorm:"uniqueIndex" binding:"required"`
	Label            string `json:"label"`
	IsActive         bool   `json:"is_active" gorm:"default:true"`

	LastLatitude   *float64   `json:"last_latitude"`
	LastLongitude  *float64   `json:"last_longitude"`
	LastSpeed      *float64   `json:"last_speed"` // km/h as reported by the provider
	LastAddress    *string    `json:"last_address"`
	LastSystemDate *time.Time `json:"last_system_date"` // timestamp reported by the tracker
	LastSyncAt     *time.Time `json:"last_sync_at"`     // when we last pulled from the provider
}

// HasPosition reports whether the device carries a usable last known position.
func (d *Device) HasPosition() bool {
	return d.LastLatitude != nil && d.LastLongitude != nil
}

// MinutesSinceLastUpdate returns how stale the tracker snapshot is.
// Returns -1 when the device never reported.
func (d *Device) MinutesSinceLastUpdate(now time.Time) float64 {
	if d.LastSystemDate == nil {
		return -1
	}
	return now.Sub(*d.LastSystemDate).Minutes()
}

// IsUpdatedRecently reports whether the tracker reported within the threshold.
func (d *Device) IsUpdatedRecently(now time.Time, threshold time.Duration) bool {
	if d.LastSystemDate == nil {
		return false
	}
	return now.Sub(*d.LastSystemDate) <= threshold
}
