package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet_monitor/internal/geo"
)

func TestCheckDeviationPolyline(t *testing.T) {
	path := RoutePath{
		Waypoints: []geo.Point{
			{Latitude: 0, Longitude: 0},
			{Latitude: 0, Longitude: 0.5},
			{Latitude: 0, Longitude: 1},
		},
	}

	// ~111m north of the middle waypoint, inside a 200m tolerance
	check := CheckDeviation(path, 0.001, 0.5, 200)
	assert.False(t, check.Deviated)
	assert.InDelta(t, 111, check.MinDistanceMeters, 5)
	require.NotNil(t, check.NearestPoint)
	assert.Equal(t, 1, check.NearestPoint.Index)

	// ~1.1km north of the same waypoint
	check = CheckDeviation(path, 0.01, 0.5, 200)
	assert.True(t, check.Deviated)
	assert.InDelta(t, 1112, check.MinDistanceMeters, 20)
}

func TestCheckDeviationToleranceIsStrict(t *testing.T) {
	path := RoutePath{Waypoints: []geo.Point{{Latitude: 0, Longitude: 0}}}

	// Distance exactly equal to the tolerance is NOT a deviation.
	check := CheckDeviation(path, 0, 0, 0)
	assert.Equal(t, 0.0, check.MinDistanceMeters)
	assert.False(t, check.Deviated)
}

func TestCheckDeviationMonotonicity(t *testing.T) {
	path := RoutePath{Waypoints: []geo.Point{{Latitude: 0, Longitude: 0}}}

	// Walking away from the nearest waypoint never flips a deviation
	// back to false under a fixed tolerance.
	wasDeviated := false
	for _, lat := range []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.1, 1} {
		check := CheckDeviation(path, lat, 0, 200)
		if wasDeviated {
			assert.True(t, check.Deviated, "deviation must not flip back at lat %v", lat)
		}
		wasDeviated = check.Deviated
	}
	assert.True(t, wasDeviated)
}

func TestCheckDeviationEndpointFallback(t *testing.T) {
	path := RoutePath{
		Origin:      &geo.Point{Latitude: 0, Longitude: 0},
		Destination: &geo.Point{Latitude: 0, Longitude: 1},
	}

	// Near the destination: min over both endpoints
	check := CheckDeviation(path, 0.001, 1, 200)
	assert.False(t, check.Deviated)
	require.NotNil(t, check.NearestPoint)
	assert.Equal(t, -1, check.NearestPoint.Index)
	assert.Equal(t, 1.0, check.NearestPoint.Longitude)

	// Halfway between sparse endpoints the vertex-sampling approximation
	// reports ~55km even though the straight line passes through it.
	check = CheckDeviation(path, 0, 0.5, 200)
	assert.True(t, check.Deviated)
	assert.InDelta(t, 55600, check.MinDistanceMeters, 500)
}

func TestCheckDeviationNoCoordinates(t *testing.T) {
	check := CheckDeviation(RoutePath{}, 10, 10, 200)
	assert.False(t, check.Deviated)
	assert.Equal(t, ReasonNoCoordinates, check.Reason)
	assert.Nil(t, check.NearestPoint)
}
