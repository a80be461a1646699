package geo

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for every distance the
// engine computes.
const EarthRadiusMeters = 6371000.0

// HaversineDistance returns the great-circle distance between two points in
// meters.
//
// Go Learning Note — "github.com/golang/geo/s2":
// s2 is the Go port of Google's S2 geometry library. s2.LatLng.Distance
// computes the central angle between two points with the haversine formula
// and returns it as an s1.Angle; multiplying the angle in radians by the
// sphere radius gives the arc length.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
