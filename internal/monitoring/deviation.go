package monitoring

import "fleet_monitor/internal/geo"

// ReasonNoCoordinates marks a degraded deviation check: the route has
// neither waypoints nor endpoint coordinates, so there is nothing to
// measure against. Not an error.
const ReasonNoCoordinates = "route_has_no_coordinates"

// NearestPoint is the closest route waypoint found by the check.
type NearestPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Index     int     `json:"index"` // -1 for the origin/destination fallback
}

type DeviationCheck struct {
	Deviated          bool          `json:"is_deviated"`
	MinDistanceMeters float64       `json:"min_distance_meters"`
	NearestPoint      *NearestPoint `json:"nearest_point,omitempty"`
	Reason            string        `json:"reason,omitempty"`
}

// CheckDeviation computes the minimum distance from a position to the
// planned path and compares it against the tolerance. The comparison is
// strict: a distance exactly at the tolerance is on-route.
//
// Distance to the polyline is approximated by distance to its vertices,
// not to the segments between them. With sparse geometry a mid-segment
// position can read as off-route; see DESIGN.md.
func CheckDeviation(path RoutePath, lat, lng, toleranceMeters float64) DeviationCheck {
	if len(path.Waypoints) > 0 {
		minDist := -1.0
		nearest := NearestPoint{Index: -1}
		for i, wp := range path.Waypoints {
			d := geo.Distance(lat, lng, wp.Latitude, wp.Longitude)
			if minDist < 0 || d < minDist {
				minDist = d
				nearest = NearestPoint{Latitude: wp.Latitude, Longitude: wp.Longitude, Index: i}
			}
		}
		return DeviationCheck{
			Deviated:          minDist > toleranceMeters,
			MinDistanceMeters: minDist,
			NearestPoint:      &nearest,
		}
	}

	if path.Origin != nil || path.Destination != nil {
		minDist := -1.0
		var nearest *NearestPoint
		for _, p := range []*geo.Point{path.Origin, path.Destination} {
			if p == nil {
				continue
			}
			d := geo.Distance(lat, lng, p.Latitude, p.Longitude)
			if minDist < 0 || d < minDist {
				minDist = d
				nearest = &NearestPoint{Latitude: p.Latitude, Longitude: p.Longitude, Index: -1}
			}
		}
		return DeviationCheck{
			Deviated:          minDist > toleranceMeters,
			MinDistanceMeters: minDist,
			NearestPoint:      nearest,
		}
	}

	return DeviationCheck{Reason: ReasonNoCoordinates}
}
