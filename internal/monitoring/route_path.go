package monitoring

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"fleet_monitor/internal/geo"
	"fleet_monitor/internal/models"
)

// ErrMissingRoute means the trip has no route at all. This is a
// configuration error, distinct from a route that merely lacks geometry
// (which falls back to its endpoints) and from a route with no
// coordinates at all (a degraded no-op for the deviation check).
var ErrMissingRoute = errors.New("trip has no route configured")

// RoutePath is the reference geometry a position is checked against:
// the routed polyline when one was acquired, otherwise the raw
// origin/destination pair.
type RoutePath struct {
	Waypoints   []geo.Point
	Origin      *geo.Point
	Destination *geo.Point
}

// HasCoordinates reports whether there is anything to measure against.
func (p RoutePath) HasCoordinates() bool {
	return len(p.Waypoints) > 0 || p.Origin != nil || p.Destination != nil
}

// PathFromRoute extracts the reference path from a route row, decoding
// the stored WKB LINESTRING when present.
func PathFromRoute(route *models.Route) (RoutePath, error) {
	if route == nil || route.ID == 0 {
		return RoutePath{}, ErrMissingRoute
	}

	var path RoutePath

	if route.HasGeometry() {
		g, err := wkb.Unmarshal(route.Geometry)
		if err != nil {
			return RoutePath{}, fmt.Errorf("route %d: decode geometry: %w", route.ID, err)
		}
		path.Waypoints = lineStringPoints(g)
	}

	if route.HasEndpoints() {
		path.Origin = &geo.Point{Latitude: route.OriginLatitude, Longitude: route.OriginLongitude}
		path.Destination = &geo.Point{Latitude: route.DestinationLatitude, Longitude: route.DestinationLongitude}
	}

	return path, nil
}

// lineStringPoints flattens a decoded geometry into ordered waypoints.
// Coordinates are stored GeoJSON-style as [lng, lat].
func lineStringPoints(g geom.T) []geo.Point {
	var coords []geom.Coord
	switch t := g.(type) {
	case *geom.LineString:
		coords = t.Coords()
	case *geom.MultiLineString:
		for i := 0; i < t.NumLineStrings(); i++ {
			coords = append(coords, t.LineString(i).Coords()...)
		}
	default:
		return nil
	}

	points := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		points = append(points, geo.Point{Latitude: c[1], Longitude: c[0]})
	}
	return points
}
