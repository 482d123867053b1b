// Package geo computes great-circle distances and matches positions to stops.
package geo

import "math"

const (
	// EarthRadius is the mean Earth radius in meters.
	EarthRadius = 6371 * 1000

	// SentinelDistance is returned by Distance when a coordinate is missing.
	// It is far beyond any stop threshold, so it never wins a match.
	SentinelDistance = 99999

	// NoStop is the stop id reported when a vehicle is not at any known stop.
	NoStop = 9999

	// DefaultThreshold is the maximum distance, in meters, at which a vehicle
	// is considered to be at a stop.
	DefaultThreshold = 50
)

// Point is a stop candidate for NearestStop.
type Point struct {
	ID        int
	Latitude  float64
	Longitude float64
}

// Distance returns the haversine distance in meters between two positions.
// Any nil coordinate yields SentinelDistance.
func Distance(lat1, lon1, lat2, lon2 *float64) float64 {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return SentinelDistance
	}
	return haversine(*lat1, *lon1, *lat2, *lon2)
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadius * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// NearestStop returns the id of the closest stop within threshold meters of
// (lat, lon), or NoStop. On equal distances the earliest stop wins.
func NearestStop(lat, lon *float64, stops []Point, threshold float64) int {
	closest := NoStop
	minDistance := float64(SentinelDistance)

	for i := range stops {
		d := Distance(&stops[i].Latitude, &stops[i].Longitude, lat, lon)
		if d < minDistance {
			minDistance = d
			closest = stops[i].ID
		}
	}

	if minDistance <= threshold {
		return closest
	}
	return NoStop
}
