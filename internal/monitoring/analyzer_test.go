package monitoring

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"fleet_monitor/internal/models"
)

type stubPositions struct {
	pos *Position
	err error
}

func (s *stubPositions) CurrentPosition(*models.Trip) (*Position, error) {
	return s.pos, s.err
}

type recordingStore struct {
	saves [][]string
	err   error
}

func (r *recordingStore) SaveAnalysis(trip *models.Trip, columns []string) error {
	if r.err != nil {
		return r.err
	}
	r.saves = append(r.saves, columns)
	return nil
}

var testBase = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// testHarness drives the analyzer with a controllable clock and position.
type testHarness struct {
	analyzer  *Analyzer
	positions *stubPositions
	store     *recordingStore
	now       time.Time
}

func newHarness() *testHarness {
	h := &testHarness{
		positions: &stubPositions{},
		store:     &recordingStore{},
		now:       testBase,
	}
	h.analyzer = NewAnalyzer(h.positions, h.store)
	h.analyzer.now = func() time.Time { return h.now }
	return h
}

// feed advances the clock and analyzes one sample.
func (h *testHarness) feed(t *testing.T, trip *models.Trip, at time.Time, lat, lng float64, speed float64) *AnalysisResult {
	t.Helper()
	h.now = at
	h.positions.pos = &Position{Latitude: lat, Longitude: lng, Speed: &speed, Timestamp: at}
	result, err := h.analyzer.AnalyzeCurrentPosition(trip)
	require.NoError(t, err)
	require.True(t, result.Success)
	return result
}

// endpointTrip builds an in-progress trip whose route has only an
// origin (0,0) and destination (0,1), no polyline.
func endpointTrip() *models.Trip {
	trip := &models.Trip{
		Identifier:               "SM-2025-0001",
		Status:                   models.TripInProgress,
		RouteID:                  7,
		DeviationToleranceMeters: 200,
	}
	trip.ID = 42
	trip.Route = models.Route{
		OriginLatitude:       0,
		OriginLongitude:      0,
		DestinationLatitude:  0,
		DestinationLongitude: 1,
	}
	trip.Route.ID = 7
	// origin at exactly (0,0) would read as "no endpoints"; nudge it
	trip.Route.OriginLatitude = 0.00001
	return trip
}

func alertTypes(alerts []models.Alert) []models.AlertType {
	types := make([]models.AlertType, 0, len(alerts))
	for _, a := range alerts {
		types = append(types, a.Type)
	}
	return types
}

func TestAnalyzeTripNotInProgress(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()
	trip.Status = models.TripPlanned

	result, err := h.analyzer.AnalyzeCurrentPosition(trip)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "trip is not in progress", result.Reason)
	assert.Empty(t, h.store.saves)
}

func TestAnalyzeNoPositionIsIdempotentNoop(t *testing.T) {
	h := newHarness()
	h.positions.pos = nil
	trip := endpointTrip()
	before := *trip

	for i := 0; i < 3; i++ {
		result, err := h.analyzer.AnalyzeCurrentPosition(trip)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "no current position available", result.Reason)
	}

	assert.Equal(t, before, *trip, "trip state must be untouched")
	assert.Empty(t, h.store.saves, "no-op must not persist anything")
}

func TestAnalyzeMissingRouteIsError(t *testing.T) {
	h := newHarness()
	h.positions.pos = &Position{Latitude: 0, Longitude: 0, Timestamp: testBase}
	trip := endpointTrip()
	trip.Route = models.Route{}

	_, err := h.analyzer.AnalyzeCurrentPosition(trip)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRoute)
}

func TestAnalyzeNilTripIsError(t *testing.T) {
	h := newHarness()
	_, err := h.analyzer.AnalyzeCurrentPosition(nil)
	require.Error(t, err)
}

func TestAnalyzePositionFetchErrorPropagates(t *testing.T) {
	h := newHarness()
	h.positions.err = errors.New("provider timeout")

	_, err := h.analyzer.AnalyzeCurrentPosition(endpointTrip())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider timeout")
}

func TestAnalyzeStoreErrorPropagates(t *testing.T) {
	h := newHarness()
	h.store.err = errors.New("connection reset")
	h.positions.pos = &Position{Latitude: 0.1, Longitude: 0.5, Timestamp: testBase}
	h.analyzer.now = func() time.Time { return testBase }

	_, err := h.analyzer.AnalyzeCurrentPosition(endpointTrip())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestDeviationEpisodeCountedOnce(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	// Five samples ~500m from the origin, 30s apart: one episode, one
	// alert (the rest suppressed by the 2-minute window).
	for i := 0; i < 5; i++ {
		at := testBase.Add(time.Duration(i) * 30 * time.Second)
		result := h.feed(t, trip, at, 0.0045, 0, 60)
		require.NotNil(t, result.Deviation)
		assert.True(t, result.Deviation.Deviated)
		if i == 0 {
			require.Len(t, result.AlertsGenerated, 1)
			assert.Equal(t, models.AlertRouteDeviation, result.AlertsGenerated[0].Type)
			assert.Equal(t, models.SeverityWarning, result.AlertsGenerated[0].Severity)
		} else {
			assert.Empty(t, result.AlertsGenerated)
		}
	}

	assert.Equal(t, 1, trip.TotalRouteDeviations)
	assert.True(t, trip.HasActiveDeviation)
	assert.Len(t, trip.Alerts, 1)
}

func TestDeviationRealertAfterTwoMinutes(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	r1 := h.feed(t, trip, testBase, 0.0045, 0, 60)
	require.Len(t, r1.AlertsGenerated, 1)

	// 30 seconds later: still within the window, silent
	r2 := h.feed(t, trip, testBase.Add(30*time.Second), 0.0045, 0, 60)
	assert.Empty(t, r2.AlertsGenerated)

	// 3 minutes after the first alert: window elapsed, re-alert
	r3 := h.feed(t, trip, testBase.Add(3*time.Minute), 0.0045, 0, 60)
	require.Len(t, r3.AlertsGenerated, 1)
	assert.Equal(t, models.AlertRouteDeviation, r3.AlertsGenerated[0].Type)

	assert.Equal(t, 1, trip.TotalRouteDeviations, "re-alerts never increment the episode count")
}

func TestRouteBackTransition(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	h.feed(t, trip, testBase, 0.0045, 0, 60)
	require.True(t, trip.HasActiveDeviation)

	result := h.feed(t, trip, testBase.Add(10*time.Minute), 0.0001, 0, 60)
	require.Len(t, result.AlertsGenerated, 1)
	alert := result.AlertsGenerated[0]
	assert.Equal(t, models.AlertRouteBack, alert.Type)
	assert.Equal(t, models.SeverityInfo, alert.Severity)
	assert.Contains(t, alert.Message, "10 min")
	assert.False(t, trip.HasActiveDeviation)
	assert.Equal(t, 1, trip.TotalRouteDeviations)
}

func TestStopEpisodeTwentyMinutes(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	// speed=0 samples at 1-minute intervals for 20 minutes: one episode,
	// alerts at minutes 5, 10, 15, 20.
	var alertMinutes []int
	for minute := 0; minute <= 20; minute++ {
		at := testBase.Add(time.Duration(minute) * time.Minute)
		result := h.feed(t, trip, at, 0.0001, 0, 0)
		if len(result.AlertsGenerated) > 0 {
			require.Len(t, result.AlertsGenerated, 1)
			assert.Equal(t, models.AlertProlongedStop, result.AlertsGenerated[0].Type)
			alertMinutes = append(alertMinutes, minute)
		}
	}

	assert.Equal(t, []int{5, 10, 15, 20}, alertMinutes)
	assert.Equal(t, 1, trip.TotalStops, "one episode regardless of re-alerts")
	assert.True(t, trip.IsCurrentlyStopped)
}

func TestMovementResumedResetsStopState(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	h.feed(t, trip, testBase, 0.0001, 0, 0)
	h.feed(t, trip, testBase.Add(6*time.Minute), 0.0001, 0, 0)
	require.Equal(t, 1, trip.TotalStops)

	result := h.feed(t, trip, testBase.Add(8*time.Minute), 0.0001, 0, 45)
	require.Len(t, result.AlertsGenerated, 1)
	alert := result.AlertsGenerated[0]
	assert.Equal(t, models.AlertMovementResumed, alert.Type)
	assert.Contains(t, alert.Message, "8 min")

	assert.False(t, trip.IsCurrentlyStopped)
	assert.Nil(t, trip.StoppedSince)
	assert.Nil(t, trip.LastStopAlertAt)
	assert.Equal(t, 1, trip.TotalStops)
}

func TestShortStopNeverAlerts(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	r1 := h.feed(t, trip, testBase, 0.0001, 0, 0)
	assert.Empty(t, r1.AlertsGenerated)
	r2 := h.feed(t, trip, testBase.Add(2*time.Minute), 0.0001, 0, 0)
	assert.Empty(t, r2.AlertsGenerated)

	r3 := h.feed(t, trip, testBase.Add(3*time.Minute), 0.0001, 0, 30)
	require.Equal(t, []models.AlertType{models.AlertMovementResumed}, alertTypes(r3.AlertsGenerated))
	assert.Equal(t, 0, trip.TotalStops, "stops shorter than the threshold are not episodes")
}

func TestNilSpeedTreatedAsStopped(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	h.now = testBase
	h.positions.pos = &Position{Latitude: 0.0001, Longitude: 0, Speed: nil, Timestamp: testBase}
	result, err := h.analyzer.AnalyzeCurrentPosition(trip)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.True(t, trip.IsCurrentlyStopped)
}

func TestDeviatedAndStoppedAreIndependent(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	// 500m off route at zero speed: both sub-machines trigger
	result := h.feed(t, trip, testBase, 0.0045, 0, 0)
	require.Equal(t, []models.AlertType{models.AlertRouteDeviation}, alertTypes(result.AlertsGenerated))
	assert.True(t, trip.HasActiveDeviation)
	assert.True(t, trip.IsCurrentlyStopped)
}

func TestMaxSpeedTracksHighestSample(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	h.feed(t, trip, testBase, 0.0001, 0, 60)
	h.feed(t, trip, testBase.Add(time.Minute), 0.0001, 0, 95.5)
	h.feed(t, trip, testBase.Add(2*time.Minute), 0.0001, 0, 80)

	require.NotNil(t, trip.MaxSpeedRecorded)
	assert.Equal(t, 95.5, *trip.MaxSpeedRecorded)
}

func TestEndToEndStraightLineRoute(t *testing.T) {
	// Route: straight line from (0,0) to (0,1) with 100 intermediate
	// waypoints, stored as WKB the way route geometry is persisted.
	coords := make([]geom.Coord, 0, 101)
	for i := 0; i <= 100; i++ {
		lng := float64(i) / 100.0
		coords = append(coords, geom.Coord{lng, 0}) // [lng, lat]
	}
	line := geom.NewLineString(geom.XY)
	_, err := line.SetCoords(coords)
	require.NoError(t, err)
	wkbBytes, err := wkb.Marshal(line, binary.LittleEndian)
	require.NoError(t, err)

	trip := endpointTrip()
	trip.Route.Geometry = wkbBytes

	h := newHarness()

	// ~111m from the nearest waypoint: well within the 200m tolerance
	result := h.feed(t, trip, testBase, 0.001, 0.5, 70)
	assert.False(t, result.Deviation.Deviated)
	assert.Empty(t, result.AlertsGenerated)
	assert.Equal(t, 0, trip.TotalRouteDeviations)

	// ~111km off: deviation episode begins
	result = h.feed(t, trip, testBase.Add(30*time.Second), 1.0, 0.5, 70)
	assert.True(t, result.Deviation.Deviated)
	require.Len(t, result.AlertsGenerated, 1)
	assert.Equal(t, models.AlertRouteDeviation, result.AlertsGenerated[0].Type)
	assert.Equal(t, 1, trip.TotalRouteDeviations)
}

func TestAlertsArePersistedWithChangedColumns(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	h.feed(t, trip, testBase, 0.0045, 0, 60)
	require.Len(t, h.store.saves, 1)
	assert.ElementsMatch(t, []string{
		"has_active_deviation",
		"last_deviation_detected_at",
		"total_route_deviations",
		"max_speed_recorded",
		"alerts",
	}, h.store.saves[0])
}

func TestSteadyStateDoesNotPersist(t *testing.T) {
	h := newHarness()
	trip := endpointTrip()

	// On-route, moving, same speed twice: second tick changes nothing
	h.feed(t, trip, testBase, 0.0001, 0, 60)
	saves := len(h.store.saves)
	h.feed(t, trip, testBase.Add(30*time.Second), 0.0001, 0, 60)
	assert.Equal(t, saves, len(h.store.saves))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0 min", formatDuration(20*time.Second))
	assert.Equal(t, "12 min", formatDuration(12*time.Minute+30*time.Second))
	assert.Equal(t, "59 min", formatDuration(59*time.Minute))
	assert.Equal(t, "1h 0m", formatDuration(time.Hour))
	assert.Equal(t, "2h 35m", formatDuration(2*time.Hour+35*time.Minute))
}
