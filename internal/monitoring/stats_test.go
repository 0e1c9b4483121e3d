package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet_monitor/internal/models"
)

func speedPtr(v float64) *float64 { return &v }

func historyRecord(minute int, lat, lng float64, speed *float64) models.PositionHistory {
	return models.PositionHistory{
		Latitude:        lat,
		Longitude:       lng,
		Speed:           speed,
		DeviceTimestamp: testBase.Add(time.Duration(minute) * time.Minute),
	}
}

func TestSummarizeHistoryDistance(t *testing.T) {
	// Four points along the equator, 0.01° (~1112m) apart
	history := []models.PositionHistory{
		historyRecord(0, 0, 0.00, speedPtr(60)),
		historyRecord(1, 0, 0.01, speedPtr(60)),
		historyRecord(2, 0, 0.02, speedPtr(60)),
		historyRecord(3, 0, 0.03, speedPtr(60)),
	}

	summary := summarizeHistory(history)
	assert.InDelta(t, 3.336, summary.TotalDistanceKm, 0.05)
}

func TestSummarizeHistoryAverageSpeedIgnoresNulls(t *testing.T) {
	history := []models.PositionHistory{
		historyRecord(0, 0, 0.00, speedPtr(40)),
		historyRecord(1, 0, 0.01, nil),
		historyRecord(2, 0, 0.02, speedPtr(80)),
		historyRecord(3, 0, 0.03, nil),
	}

	summary := summarizeHistory(history)
	require.NotNil(t, summary.AverageSpeedKmh)
	assert.Equal(t, 60.0, *summary.AverageSpeedKmh)
}

func TestSummarizeHistoryNoSpeedsAtAll(t *testing.T) {
	history := []models.PositionHistory{
		historyRecord(0, 0, 0.00, nil),
		historyRecord(1, 0, 0.01, nil),
	}

	summary := summarizeHistory(history)
	assert.Nil(t, summary.AverageSpeedKmh)
	assert.Zero(t, summary.TotalStops)
}

func TestSummarizeHistoryCountsStopSamples(t *testing.T) {
	// Recalculation counts zero-speed SAMPLES, unlike the live
	// analyzer's episode counting. Three zero samples in a row are
	// three stops here.
	history := []models.PositionHistory{
		historyRecord(0, 0, 0.00, speedPtr(50)),
		historyRecord(1, 0, 0.01, speedPtr(0)),
		historyRecord(2, 0, 0.01, speedPtr(0)),
		historyRecord(3, 0, 0.01, speedPtr(0)),
		historyRecord(4, 0, 0.02, speedPtr(50)),
	}

	summary := summarizeHistory(history)
	assert.Equal(t, 3, summary.TotalStops)
}

func TestSummarizeHistoryStationaryVehicle(t *testing.T) {
	history := []models.PositionHistory{
		historyRecord(0, -23.5505, -46.6333, speedPtr(0)),
		historyRecord(1, -23.5505, -46.6333, speedPtr(0)),
	}

	summary := summarizeHistory(history)
	assert.Zero(t, summary.TotalDistanceKm)
	require.NotNil(t, summary.AverageSpeedKmh)
	assert.Zero(t, *summary.AverageSpeedKmh)
	assert.Equal(t, 2, summary.TotalStops)
}
