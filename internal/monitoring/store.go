package monitoring

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"fleet_monitor/internal/geo"
	"fleet_monitor/internal/models"
)

// GormStore persists analyzer mutations. All changed columns plus the
// appended alert log go out in one UPDATE, so a crash mid-cycle never
// leaves half-written trip state.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) SaveAnalysis(trip *models.Trip, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	return s.db.Model(trip).Select(columns).Updates(trip).Error
}

// DevicePositions resolves a trip's current position from the last known
// snapshot on its vehicle's tracker. Returns nil (not an error) when the
// vehicle has no device or the device never reported.
type DevicePositions struct {
	db *gorm.DB
}

func NewDevicePositions(db *gorm.DB) *DevicePositions {
	return &DevicePositions{db: db}
}

func (p *DevicePositions) CurrentPosition(trip *models.Trip) (*Position, error) {
	var device models.Device
	err := p.db.Where("vehicle_id = ?", trip.VehicleID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch device for vehicle %d: %w", trip.VehicleID, err)
	}
	return PositionFromDevice(&device), nil
}

// PositionFromDevice builds a position snapshot from a device's last
// known state, or nil when the device has nothing usable.
func PositionFromDevice(device *models.Device) *Position {
	if device == nil || !device.HasPosition() || device.LastSystemDate == nil {
		return nil
	}
	pos := &Position{
		Latitude:  *device.LastLatitude,
		Longitude: *device.LastLongitude,
		Speed:     device.LastSpeed,
		Timestamp: *device.LastSystemDate,
	}
	if device.LastAddress != nil {
		pos.Address = *device.LastAddress
	}
	return pos
}

// SavePositionSnapshot appends the position to the trip's history.
// Duplicate telemetry ticks (same device timestamp and coordinates) are
// silently dropped by the unique index.
func (s *GormStore) SavePositionSnapshot(trip *models.Trip, pos *Position) error {
	record := models.PositionHistory{
		TripID:          trip.ID,
		Latitude:        pos.Latitude,
		Longitude:       pos.Longitude,
		Speed:           pos.Speed,
		DeviceTimestamp: pos.Timestamp.Truncate(time.Second),
	}
	if pos.Address != "" {
		addr := pos.Address
		record.Address = &addr
	}

	// Heading is derived from the previous snapshot, when the vehicle moved.
	var prev models.PositionHistory
	prevErr := s.db.Where("trip_id = ?", trip.ID).
		Order("device_timestamp desc").First(&prev).Error
	if prevErr == nil && (prev.Latitude != pos.Latitude || prev.Longitude != pos.Longitude) {
		heading := int(geo.Bearing(prev.Latitude, prev.Longitude, pos.Latitude, pos.Longitude))
		record.Heading = &heading
	}
	err := s.db.Create(&record).Error
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}
