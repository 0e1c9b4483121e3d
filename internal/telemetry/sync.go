package telemetry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet_monitor/internal/models"
)

// PositionFetcher is the slice of the provider client that device sync
// needs. Satisfied by *Client.
type PositionFetcher interface {
	GetDeviceLastPosition(ctx context.Context, deviceID string) (*LastPosition, error)
}

// Syncer copies provider positions into device rows.
type Syncer struct {
	db      *gorm.DB
	fetcher PositionFetcher
}

func NewSyncer(db *gorm.DB, fetcher PositionFetcher) *Syncer {
	return &Syncer{db: db, fetcher: fetcher}
}

// SyncDevice refreshes the device's last_* columns from the provider.
// A provider with no data for the device is not an error; the device
// keeps its previous position and only last_sync_at advances.
func (s *Syncer) SyncDevice(ctx context.Context, device *models.Device) error {
	pos, err := s.fetcher.GetDeviceLastPosition(ctx, device.ProviderDeviceID)
	if err != nil {
		logrus.WithError(err).WithField("device_id", device.ProviderDeviceID).
			Warn("Failed to fetch device position from provider")
		return err
	}

	now := time.Now()
	columns := map[string]interface{}{"last_sync_at": now}
	device.LastSyncAt = &now

	if pos != nil {
		lat, lng := pos.Latitude, pos.Longitude
		device.LastLatitude = &lat
		device.LastLongitude = &lng
		device.LastSpeed = pos.Speed
		device.LastAddress = pos.Address
		device.LastSystemDate = pos.SystemDate

		columns["last_latitude"] = lat
		columns["last_longitude"] = lng
		columns["last_speed"] = pos.Speed
		columns["last_address"] = pos.Address
		columns["last_system_date"] = pos.SystemDate
	}

	return s.db.Model(device).Updates(columns).Error
}
