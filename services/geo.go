package services

import "math"

const (
	earthRadiusKm   = 6371
	walkingSpeedKmh = 4.8
)

// DistanceKm returns the great-circle distance between two coordinates in
// degrees, using the haversine formula. Symmetric, and ~0 for equal points.
func DistanceKm(aLat, aLng, bLat, bLng float64) float64 {
	toRad := func(v float64) float64 { return v * math.Pi / 180 }

	dLat := toRad(bLat - aLat)
	dLng := toRad(bLng - aLng)
	lat1 := toRad(aLat)
	lat2 := toRad(bLat)

	x := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)

	c := 2 * math.Atan2(math.Sqrt(x), math.Sqrt(1-x))
	return earthRadiusKm * c
}

// EtaMinutes estimates the walking time for a distance. Always at least
// one minute, even for zero distance.
func EtaMinutes(km float64) int {
	mins := int(math.Round(km / walkingSpeedKmh * 60))
	if mins < 1 {
		return 1
	}
	return mins
}
