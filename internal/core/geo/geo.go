// Package geo provides great-circle distance and travel-time estimation for
// dispatch routing.
//
// Travel time assumes a constant average urban driving speed rather than a
// road network or live traffic; this is an explicit approximation that keeps
// the optimizer deterministic and dependency-free.
package geo

import "math"

const (
	// EarthRadiusMiles is the mean radius of Earth in miles.
	EarthRadiusMiles = 3959.0

	// DefaultAverageSpeedMPH is the assumed average urban driving speed
	// used for travel-time estimates when no override is configured.
	DefaultAverageSpeedMPH = 30.0
)

// Miles returns the great-circle (haversine) distance between two points in
// miles. Symmetric, zero for identical points, and satisfies the triangle
// inequality, which the routing heuristics rely on.
func Miles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(radians(lat1))*math.Cos(radians(lat2))*sinLon*sinLon

	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(h))
}

// TravelMinutes returns the estimated driving time in whole minutes for the
// given distance at the given average speed. A non-positive speed falls back
// to DefaultAverageSpeedMPH.
func TravelMinutes(miles, mph float64) int {
	if mph <= 0 {
		mph = DefaultAverageSpeedMPH
	}
	return int(math.Round(miles / mph * 60))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
