package monitoring

import (
	"time"

	"fleet_monitor/internal/models"
)

// Position is a read-only snapshot of where the vehicle is right now,
// as reported by the telemetry provider through the vehicle's device.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     *float64  `json:"speed"` // km/h, nil when the tracker omitted it
	Address   string    `json:"address,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SpeedOrZero coerces a missing speed to 0, matching how the stop
// detector treats trackers that omit the field.
func (p *Position) SpeedOrZero() float64 {
	if p.Speed == nil {
		return 0
	}
	return *p.Speed
}

// Snapshot converts the position into the form embedded in alerts.
func (p *Position) Snapshot() *models.AlertPosition {
	return &models.AlertPosition{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Speed:     p.Speed,
		Address:   p.Address,
	}
}
