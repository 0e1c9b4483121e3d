package monitoring

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fleet_monitor/internal/geo"
	"fleet_monitor/internal/models"
)

// Recalculator derives a trip's aggregate statistics by replaying its
// full position history. It is independent of the live analyzer and can
// be re-run at any time from stored history.
type Recalculator struct {
	db *gorm.DB
}

func NewRecalculator(db *gorm.DB) *Recalculator {
	return &Recalculator{db: db}
}

// Recalculate recomputes distance, average speed and stop count for the
// trip from its ordered history. No-op when fewer than two positions
// were recorded. Asking for a trip that does not exist is an error.
func (r *Recalculator) Recalculate(tripID uint) error {
	var trip models.Trip
	if err := r.db.First(&trip, tripID).Error; err != nil {
		return fmt.Errorf("recalculate stats: trip %d: %w", tripID, err)
	}

	var history []models.PositionHistory
	if err := r.db.
		Where("trip_id = ?", tripID).
		Order("device_timestamp asc").
		Find(&history).Error; err != nil {
		return fmt.Errorf("recalculate stats: load history for trip %d: %w", tripID, err)
	}

	if len(history) < 2 {
		return nil
	}

	summary := summarizeHistory(history)

	err := r.db.Model(&trip).
		Select("total_distance_traveled_km", "average_speed_kmh", "total_stops").
		Updates(map[string]interface{}{
			"total_distance_traveled_km": summary.TotalDistanceKm,
			"average_speed_kmh":          summary.AverageSpeedKmh,
			"total_stops":                summary.TotalStops,
		}).Error
	if err != nil {
		return fmt.Errorf("recalculate stats: persist trip %d: %w", tripID, err)
	}

	logrus.WithFields(logrus.Fields{
		"trip":        trip.Identifier,
		"positions":   len(history),
		"distance_km": fmt.Sprintf("%.2f", summary.TotalDistanceKm),
	}).Info("Trip statistics recalculated")
	return nil
}

type historySummary struct {
	TotalDistanceKm float64
	AverageSpeedKmh *float64
	// TotalStops here is the zero-speed sample count, not the analyzer's
	// episode count. See DESIGN.md.
	TotalStops int
}

func summarizeHistory(history []models.PositionHistory) historySummary {
	var summary historySummary

	var meters float64
	for i := 1; i < len(history); i++ {
		prev, curr := history[i-1], history[i]
		meters += geo.Distance(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
	}
	summary.TotalDistanceKm = meters / 1000.0

	var speedSum float64
	var speedCount int
	for _, record := range history {
		if record.Speed == nil {
			continue
		}
		speedSum += *record.Speed
		speedCount++
		if *record.Speed == 0 {
			summary.TotalStops++
		}
	}
	if speedCount > 0 {
		avg := speedSum / float64(speedCount)
		summary.AverageSpeedKmh = &avg
	}

	return summary
}
