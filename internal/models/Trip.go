package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Trip status values.
const (
	TripPlanned    = "PLANEJADO"
	TripInProgress = "EM_ANDAMENTO"
	TripCompleted  = "CONCLUIDO"
	TripCancelled  = "CANCELADO"
)

// Trip links a route, a driver and a vehicle into one monitored transport
// job (the original system calls this an SM, "sistema de monitoramento").
// The monitoring state columns are mutated only by the position analyzer
// and the statistics recalculator while the trip is EM_ANDAMENTO; once the
// trip completes or is cancelled they are read-only history.
type Trip struct {
	gorm.Model
	TransportadoraID uint `json:"transportadora_id" gorm:"index:idx_trips_tenant_status"`
	RouteID          uint `json:"route_id"`
	DriverID         uint `json:"driver_id"`
	VehicleID        uint `json:"vehicle_id"`

	Route   Route   `gorm:"foreignKey:RouteID" json:"route,omitempty"`
	Driver  Driver  `gorm:"foreignKey:DriverID" json:"driver,omitempty"`
	Vehicle Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`

	Identifier  string `json:"identifier" gorm:"unique"` // SM-<year>-<seq>
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`

	Status string `json:"status" gorm:"default:PLANEJADO;index:idx_trips_tenant_status"`

	PlannedStartDate time.Time  `json:"planned_start_date"`
	PlannedEndDate   time.Time  `json:"planned_end_date"`
	ActualStartDate  *time.Time `json:"actual_start_date"`
	ActualEndDate    *time.Time `json:"actual_end_date"`

	// Tracker freshness validation recorded at creation time
	DeviceValidatedAt *time.Time `json:"device_validated_at"`
	DeviceWasUpdated  bool       `json:"device_was_updated"`

	CargoDescription string   `json:"cargo_description"`
	CargoValue       *float64 `json:"cargo_value"`
	Observations     string   `json:"observations"`
	IsActive         bool     `json:"is_active" gorm:"default:true"`

	// --- monitoring state ---

	DeviationToleranceMeters int `json:"deviation_tolerance_meters" gorm:"default:200"`

	HasActiveDeviation      bool       `json:"has_active_deviation"`
	LastDeviationDetectedAt *time.Time `json:"last_deviation_detected_at"`
	TotalRouteDeviations    int        `json:"total_route_deviations"` // episodes, not samples

	IsCurrentlyStopped bool       `json:"is_currently_stopped"`
	StoppedSince       *time.Time `json:"stopped_since"`
	LastStopAlertAt    *time.Time `json:"last_stop_alert_at"`
	TotalStops         int        `json:"total_stops"` // episodes while live; samples after recalculation

	MaxSpeedRecorded *float64 `json:"max_speed_recorded"`

	// Derived by the statistics recalculator from position history
	TotalDistanceTraveledKm float64  `json:"total_distance_traveled_km"`
	AverageSpeedKmh         *float64 `json:"average_speed_kmh"`

	Alerts AlertLog `json:"alerts" gorm:"type:jsonb"`
}

func (t *Trip) IsInProgress() bool { return t.Status == TripInProgress }
func (t *Trip) IsCompleted() bool  { return t.Status == TripCompleted }

// EffectiveTolerance returns the configured deviation tolerance, falling
// back to 200m when the row predates the column default.
func (t *Trip) EffectiveTolerance() float64 {
	if t.DeviationToleranceMeters <= 0 {
		return 200
	}
	return float64(t.DeviationToleranceMeters)
}

// BeforeCreate generates the SM-<year>-<seq> identifier.
func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	if t.Identifier != "" {
		return nil
	}
	year := time.Now().Year()
	var count int64
	if err := tx.Model(&Trip{}).
		Where("identifier LIKE ?", fmt.Sprintf("SM-%d-%%", year)).
		Count(&count).Error; err != nil {
		return err
	}
	t.Identifier = fmt.Sprintf("SM-%d-%04d", year, count+1)
	return nil
}
