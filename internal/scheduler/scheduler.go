// Package scheduler drives the periodic monitoring cycle for trips in
// progress.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet_monitor/internal/hub"
	"fleet_monitor/internal/models"
	"fleet_monitor/internal/monitoring"
)

// DeviceSyncer refreshes a device from the tracking provider before a
// trip is analyzed.
type DeviceSyncer interface {
	SyncDevice(ctx context.Context, device *models.Device) error
}

// Monitor runs the analysis cycle for every trip in progress on a fixed
// interval. Each trip is guarded by its own mutex so a slow provider
// call on one tick never overlaps the next tick's analysis of the same
// trip.
type Monitor struct {
	db        *gorm.DB
	syncer    DeviceSyncer
	analyzer  *monitoring.Analyzer
	snapshots *monitoring.GormStore
	hub       *hub.FleetHub
	interval  time.Duration

	tripLocks sync.Map // trip ID -> *sync.Mutex
	stopChan  chan struct{}
	stopOnce  sync.Once
}

func NewMonitor(db *gorm.DB, syncer DeviceSyncer, analyzer *monitoring.Analyzer, snapshots *monitoring.GormStore, fleetHub *hub.FleetHub, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		db:        db,
		syncer:    syncer,
		analyzer:  analyzer,
		snapshots: snapshots,
		hub:       fleetHub,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start runs the monitoring loop until the context is cancelled or Stop
// is called. It blocks; run it in its own goroutine.
func (m *Monitor) Start(ctx context.Context) {
	logrus.WithField("interval", m.interval.String()).Info("Trip monitor started.")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.runCycle(ctx)
	for {
		select {
		case <-ticker.C:
			m.runCycle(ctx)
		case <-ctx.Done():
			logrus.Info("Trip monitor stopping: context cancelled.")
			return
		case <-m.stopChan:
			logrus.Info("Trip monitor stopped.")
			return
		}
	}
}

// Stop terminates the monitoring loop. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) runCycle(ctx context.Context) {
	var trips []models.Trip
	err := m.db.
		Preload("Route").
		Preload("Vehicle").
		Preload("Vehicle.Device").
		Preload("Driver").
		Where("status = ?", models.TripInProgress).
		Find(&trips).Error
	if err != nil {
		logrus.WithError(err).Error("Failed to load trips in progress for monitoring cycle.")
		return
	}

	for i := range trips {
		trip := &trips[i]
		lock := m.lockFor(trip.ID)
		if !lock.TryLock() {
			logrus.WithField("trip_id", trip.ID).
				Debug("Previous monitoring pass still running for trip, skipping.")
			continue
		}
		m.monitorTrip(ctx, trip)
		lock.Unlock()
	}
}

func (m *Monitor) lockFor(tripID uint) *sync.Mutex {
	actual, _ := m.tripLocks.LoadOrStore(tripID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (m *Monitor) monitorTrip(ctx context.Context, trip *models.Trip) {
	log := logrus.WithFields(logrus.Fields{
		"trip_id":    trip.ID,
		"identifier": trip.Identifier,
	})

	if trip.Vehicle.Device != nil && trip.Vehicle.Device.IsActive {
		if err := m.syncer.SyncDevice(ctx, trip.Vehicle.Device); err != nil {
			log.WithError(err).Warn("Device sync failed, analyzing with last known position.")
		}
	}

	result, err := m.analyzer.AnalyzeCurrentPosition(trip)
	if err != nil {
		log.WithError(err).Error("Trip analysis failed.")
		return
	}
	if !result.Success {
		log.WithField("reason", result.Reason).Debug("Trip analysis skipped.")
		m.completeIfOverdue(trip, log)
		return
	}

	if result.Position != nil {
		if err := m.snapshots.SavePositionSnapshot(trip, result.Position); err != nil {
			log.WithError(err).Warn("Failed to record position history entry.")
		}
		m.hub.PublishPosition(trip.TransportadoraID, map[string]interface{}{
			"trip_id":    trip.ID,
			"identifier": trip.Identifier,
			"latitude":   result.Position.Latitude,
			"longitude":  result.Position.Longitude,
			"speed":      result.Position.SpeedOrZero(),
			"timestamp":  result.Position.Timestamp.Format(time.RFC3339),
		})
	}

	for _, alert := range result.AlertsGenerated {
		m.hub.PublishAlert(trip.TransportadoraID, map[string]interface{}{
			"trip_id":    trip.ID,
			"identifier": trip.Identifier,
			"alert_type": alert.Type,
			"severity":   alert.Severity,
			"message":    alert.Message,
			"timestamp":  alert.Timestamp.Format(time.RFC3339),
		})
	}

	m.completeIfOverdue(trip, log)
}

// completeIfOverdue finishes trips whose planned window has long passed.
// The grace period keeps trips running through ordinary delays.
const overdueGrace = 6 * time.Hour

func (m *Monitor) completeIfOverdue(trip *models.Trip, log *logrus.Entry) {
	if trip.PlannedEndDate.IsZero() {
		return
	}
	if time.Since(trip.PlannedEndDate) < overdueGrace {
		return
	}

	now := time.Now()
	err := m.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":          models.TripCompleted,
			"actual_end_date": now,
		}
		if err := tx.Model(trip).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Model(&models.Vehicle{}).Where("id = ?", trip.VehicleID).
			Update("status", models.VehicleAvailable).Error
	})
	if err != nil {
		log.WithError(err).Error("Failed to auto-complete overdue trip.")
		return
	}
	trip.Status = models.TripCompleted
	trip.ActualEndDate = &now
	log.Info("Trip auto-completed after exceeding its planned window.")
}
