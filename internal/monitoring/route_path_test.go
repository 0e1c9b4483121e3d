package monitoring

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"fleet_monitor/internal/models"
)

func TestPathFromRouteMissingRoute(t *testing.T) {
	_, err := PathFromRoute(nil)
	assert.ErrorIs(t, err, ErrMissingRoute)

	_, err = PathFromRoute(&models.Route{})
	assert.ErrorIs(t, err, ErrMissingRoute)
}

func TestPathFromRouteEndpointsOnly(t *testing.T) {
	route := &models.Route{
		OriginLatitude:       -23.5505,
		OriginLongitude:      -46.6333,
		DestinationLatitude:  -22.9068,
		DestinationLongitude: -43.1729,
	}
	route.ID = 1

	path, err := PathFromRoute(route)
	require.NoError(t, err)
	assert.Empty(t, path.Waypoints)
	require.NotNil(t, path.Origin)
	require.NotNil(t, path.Destination)
	assert.Equal(t, -23.5505, path.Origin.Latitude)
	assert.True(t, path.HasCoordinates())
}

func TestPathFromRouteDecodesLineString(t *testing.T) {
	line := geom.NewLineString(geom.XY)
	_, err := line.SetCoords([]geom.Coord{
		{-46.6333, -23.5505}, // [lng, lat]
		{-45.0000, -23.2000},
		{-43.1729, -22.9068},
	})
	require.NoError(t, err)
	raw, err := wkb.Marshal(line, binary.LittleEndian)
	require.NoError(t, err)

	route := &models.Route{
		OriginLatitude:       -23.5505,
		OriginLongitude:      -46.6333,
		DestinationLatitude:  -22.9068,
		DestinationLongitude: -43.1729,
		Geometry:             raw,
	}
	route.ID = 2

	path, err := PathFromRoute(route)
	require.NoError(t, err)
	require.Len(t, path.Waypoints, 3)
	assert.Equal(t, -23.5505, path.Waypoints[0].Latitude)
	assert.Equal(t, -46.6333, path.Waypoints[0].Longitude)
	assert.Equal(t, -22.9068, path.Waypoints[2].Latitude)
}

func TestPathFromRouteCorruptGeometry(t *testing.T) {
	route := &models.Route{Geometry: []byte{0x01, 0x02, 0x03}}
	route.ID = 3
	route.OriginLatitude = 1

	_, err := PathFromRoute(route)
	assert.Error(t, err)
}
