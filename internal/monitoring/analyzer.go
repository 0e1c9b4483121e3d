package monitoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"fleet_monitor/internal/models"
)

// Alerting thresholds. All comparisons use wall-clock deltas, never tick
// counts: the analyzer tolerates irregular and missed ticks.
const (
	// A trip that stays deviated re-alerts at most this often.
	deviationRealertInterval = 2 * time.Minute
	// A stop must last this long before the first prolonged_stop alert.
	prolongedStopAfter = 5 * time.Minute
	// An ongoing stop re-alerts at most this often.
	stopRealertInterval = 5 * time.Minute
)

// PositionProvider resolves the latest known position for a trip's
// vehicle. A nil position with a nil error means "no known position" and
// is a non-fatal no-op for the analyzer.
type PositionProvider interface {
	CurrentPosition(trip *models.Trip) (*Position, error)
}

// TripStore persists the analyzer's mutations. SaveAnalysis must write
// the named columns (including the appended alert log) atomically: a
// failed save leaves the previously persisted state untouched.
type TripStore interface {
	SaveAnalysis(trip *models.Trip, columns []string) error
}

// StatsSnapshot is the per-tick summary handed to dashboards.
type StatsSnapshot struct {
	HasActiveDeviation      bool     `json:"has_active_deviation"`
	TotalRouteDeviations    int      `json:"total_route_deviations"`
	IsCurrentlyStopped      bool     `json:"is_currently_stopped"`
	TotalStops              int      `json:"total_stops"`
	MaxSpeedRecorded        *float64 `json:"max_speed_recorded"`
	TotalDistanceTraveledKm float64  `json:"total_distance_traveled_km"`
	AverageSpeedKmh         *float64 `json:"average_speed_kmh"`
}

// AnalysisResult is what one analysis cycle returns to its caller.
// Success=false with a Reason is an expected no-op (trip not in
// progress, no position), never an error.
type AnalysisResult struct {
	Success         bool            `json:"success"`
	Reason          string          `json:"reason,omitempty"`
	Position        *Position       `json:"position,omitempty"`
	Deviation       *DeviationCheck `json:"deviation_check,omitempty"`
	AlertsGenerated []models.Alert  `json:"alerts_generated"`
	Stats           *StatsSnapshot  `json:"stats,omitempty"`
}

// Analyzer runs one analysis cycle per trip per telemetry tick: it reads
// the current position, runs the deviation and stop sub-machines over
// the trip's monitoring state, and persists whatever changed in a single
// atomic update.
//
// The analyzer itself is tick-rate agnostic and assumes the caller
// serializes cycles for the same trip (see scheduler).
type Analyzer struct {
	positions PositionProvider
	store     TripStore
	now       func() time.Time
}

func NewAnalyzer(positions PositionProvider, store TripStore) *Analyzer {
	return &Analyzer{
		positions: positions,
		store:     store,
		now:       time.Now,
	}
}

// AnalyzeCurrentPosition performs one analysis cycle for the trip. The
// trip must exist and have its route preloaded; being asked to analyze a
// trip without a route is a configuration error, while a momentarily
// unknown position is an expected no-op.
func (a *Analyzer) AnalyzeCurrentPosition(trip *models.Trip) (*AnalysisResult, error) {
	if trip == nil || trip.ID == 0 {
		return nil, errors.New("analyzer: trip does not exist")
	}

	if !trip.IsInProgress() {
		return &AnalysisResult{Success: false, Reason: "trip is not in progress"}, nil
	}

	pos, err := a.positions.CurrentPosition(trip)
	if err != nil {
		return nil, fmt.Errorf("fetch current position for trip %s: %w", trip.Identifier, err)
	}
	if pos == nil {
		return &AnalysisResult{Success: false, Reason: "no current position available"}, nil
	}

	path, err := PathFromRoute(&trip.Route)
	if err != nil {
		return nil, fmt.Errorf("trip %s: %w", trip.Identifier, err)
	}

	now := a.now()
	check := CheckDeviation(path, pos.Latitude, pos.Longitude, trip.EffectiveTolerance())

	var alerts []models.Alert
	changed := map[string]bool{}

	a.runDeviationMachine(trip, pos, check, now, &alerts, changed)
	a.runStopMachine(trip, pos, now, &alerts, changed)
	a.updateMaxSpeed(trip, pos, changed)

	if len(alerts) > 0 {
		trip.Alerts = append(trip.Alerts, alerts...)
		changed["alerts"] = true
	}

	if len(changed) > 0 {
		columns := make([]string, 0, len(changed))
		for col := range changed {
			columns = append(columns, col)
		}
		if err := a.store.SaveAnalysis(trip, columns); err != nil {
			return nil, fmt.Errorf("persist analysis for trip %s: %w", trip.Identifier, err)
		}
	}

	if len(alerts) > 0 {
		logrus.WithFields(logrus.Fields{
			"trip":   trip.Identifier,
			"alerts": len(alerts),
		}).Info("Position analysis generated alerts")
	}

	if alerts == nil {
		alerts = []models.Alert{}
	}
	return &AnalysisResult{
		Success:         true,
		Position:        pos,
		Deviation:       &check,
		AlertsGenerated: alerts,
		Stats:           snapshotOf(trip),
	}, nil
}

// runDeviationMachine handles ON_ROUTE <-> DEVIATED transitions. A
// degraded check (route with no coordinates) skips the machine entirely
// rather than synthesizing a route_back transition from missing data.
func (a *Analyzer) runDeviationMachine(trip *models.Trip, pos *Position, check DeviationCheck, now time.Time, alerts *[]models.Alert, changed map[string]bool) {
	if check.Reason == ReasonNoCoordinates {
		return
	}

	switch {
	case check.Deviated && !trip.HasActiveDeviation:
		// ON_ROUTE -> DEVIATED: new episode
		trip.HasActiveDeviation = true
		trip.LastDeviationDetectedAt = &now
		trip.TotalRouteDeviations++
		changed["has_active_deviation"] = true
		changed["last_deviation_detected_at"] = true
		changed["total_route_deviations"] = true
		*alerts = append(*alerts, models.Alert{
			Timestamp: now,
			Type:      models.AlertRouteDeviation,
			Severity:  models.SeverityWarning,
			Message: fmt.Sprintf("Vehicle is %.0fm off the planned route (tolerance %.0fm)",
				check.MinDistanceMeters, trip.EffectiveTolerance()),
			Position: pos.Snapshot(),
		})

	case check.Deviated && trip.HasActiveDeviation:
		// still deviated: re-alert only after the rate-limit window
		if trip.LastDeviationDetectedAt != nil && now.Sub(*trip.LastDeviationDetectedAt) >= deviationRealertInterval {
			trip.LastDeviationDetectedAt = &now
			changed["last_deviation_detected_at"] = true
			*alerts = append(*alerts, models.Alert{
				Timestamp: now,
				Type:      models.AlertRouteDeviation,
				Severity:  models.SeverityWarning,
				Message: fmt.Sprintf("Vehicle remains off the planned route, %.0fm from the nearest route point",
					check.MinDistanceMeters),
				Position: pos.Snapshot(),
			})
		}

	case !check.Deviated && trip.HasActiveDeviation:
		// DEVIATED -> ON_ROUTE
		elapsed := time.Duration(0)
		if trip.LastDeviationDetectedAt != nil {
			elapsed = now.Sub(*trip.LastDeviationDetectedAt)
		}
		trip.HasActiveDeviation = false
		changed["has_active_deviation"] = true
		*alerts = append(*alerts, models.Alert{
			Timestamp: now,
			Type:      models.AlertRouteBack,
			Severity:  models.SeverityInfo,
			Message:   fmt.Sprintf("Vehicle returned to the planned route after %s off course", formatDuration(elapsed)),
			Position:  pos.Snapshot(),
		})
	}
}

// runStopMachine handles MOVING <-> STOPPED transitions. A sample counts
// as stopped only when speed is exactly 0; missing speed is coerced to 0.
func (a *Analyzer) runStopMachine(trip *models.Trip, pos *Position, now time.Time, alerts *[]models.Alert, changed map[string]bool) {
	speed := pos.SpeedOrZero()

	if speed == 0 {
		if !trip.IsCurrentlyStopped {
			// MOVING -> STOPPED: start the episode, no alert yet
			trip.IsCurrentlyStopped = true
			trip.StoppedSince = &now
			changed["is_currently_stopped"] = true
			changed["stopped_since"] = true
			return
		}

		if trip.StoppedSince == nil {
			return
		}
		if now.Sub(*trip.StoppedSince) < prolongedStopAfter {
			return
		}
		firstAlertOfEpisode := trip.LastStopAlertAt == nil
		if !firstAlertOfEpisode && now.Sub(*trip.LastStopAlertAt) < stopRealertInterval {
			return
		}

		if firstAlertOfEpisode {
			trip.TotalStops++
			changed["total_stops"] = true
		}
		trip.LastStopAlertAt = &now
		changed["last_stop_alert_at"] = true

		msg := fmt.Sprintf("Vehicle has been stopped for %s", formatDuration(now.Sub(*trip.StoppedSince)))
		if pos.Address != "" {
			msg += " at " + pos.Address
		}
		*alerts = append(*alerts, models.Alert{
			Timestamp: now,
			Type:      models.AlertProlongedStop,
			Severity:  models.SeverityWarning,
			Message:   msg,
			Position:  pos.Snapshot(),
		})
		return
	}

	if trip.IsCurrentlyStopped {
		// STOPPED -> MOVING
		stoppedFor := time.Duration(0)
		if trip.StoppedSince != nil {
			stoppedFor = now.Sub(*trip.StoppedSince)
		}
		trip.IsCurrentlyStopped = false
		trip.StoppedSince = nil
		trip.LastStopAlertAt = nil
		changed["is_currently_stopped"] = true
		changed["stopped_since"] = true
		changed["last_stop_alert_at"] = true
		*alerts = append(*alerts, models.Alert{
			Timestamp: now,
			Type:      models.AlertMovementResumed,
			Severity:  models.SeverityInfo,
			Message:   fmt.Sprintf("Vehicle resumed movement after %s stopped", formatDuration(stoppedFor)),
			Position:  pos.Snapshot(),
		})
	}
}

func (a *Analyzer) updateMaxSpeed(trip *models.Trip, pos *Position, changed map[string]bool) {
	speed := pos.SpeedOrZero()
	if speed <= 0 {
		return
	}
	if trip.MaxSpeedRecorded == nil || speed > *trip.MaxSpeedRecorded {
		trip.MaxSpeedRecorded = &speed
		changed["max_speed_recorded"] = true
	}
}

func snapshotOf(trip *models.Trip) *StatsSnapshot {
	return &StatsSnapshot{
		HasActiveDeviation:      trip.HasActiveDeviation,
		TotalRouteDeviations:    trip.TotalRouteDeviations,
		IsCurrentlyStopped:      trip.IsCurrentlyStopped,
		TotalStops:              trip.TotalStops,
		MaxSpeedRecorded:        trip.MaxSpeedRecorded,
		TotalDistanceTraveledKm: trip.TotalDistanceTraveledKm,
		AverageSpeedKmh:         trip.AverageSpeedKmh,
	}
}

// formatDuration renders a duration as whole minutes, or "Xh Ym" above
// an hour.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
