package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceZeroForIdenticalPoints(t *testing.T) {
	points := []Point{
		{0, 0},
		{-23.5505, -46.6333},
		{38.0675, -120.5436},
		{90, 180},
	}
	for _, p := range points {
		assert.Zero(t, Distance(p.Latitude, p.Longitude, p.Latitude, p.Longitude))
	}
}

func TestDistanceSymmetry(t *testing.T) {
	// São Paulo <-> Rio de Janeiro
	d1 := Distance(-23.5505, -46.6333, -22.9068, -43.1729)
	d2 := Distance(-22.9068, -43.1729, -23.5505, -46.6333)
	assert.Equal(t, d1, d2)
}

func TestDistanceKnownValues(t *testing.T) {
	// São Paulo to Rio de Janeiro is ~357km great-circle
	d := Distance(-23.5505, -46.6333, -22.9068, -43.1729)
	assert.InDelta(t, 357000, d, 5000)

	// One degree of latitude at the equator is ~111.2km
	d = Distance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 200)
}

func TestDistanceBetween(t *testing.T) {
	a := Point{Latitude: 0, Longitude: 0}
	b := Point{Latitude: 0, Longitude: 1}
	assert.InDelta(t, 111195, DistanceBetween(a, b), 200)
	assert.Equal(t, DistanceBetween(a, b), DistanceBetween(b, a))
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0, Bearing(0, 0, 1, 0), 0.01)    // due north
	assert.InDelta(t, 90, Bearing(0, 0, 0, 1), 0.01)   // due east
	assert.InDelta(t, 180, Bearing(1, 0, 0, 0), 0.01)  // due south
	assert.InDelta(t, 270, Bearing(0, 1, 0, 0), 0.01)  // due west
}
