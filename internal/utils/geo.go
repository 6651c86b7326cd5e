package utils

import "math"

const earthRadiusMeters = 6371000.0

// CoordinateBounds is a lat/lon bounding box.
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance returns the haversine distance in meters between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// CalculateBounds returns a box that contains every point within radius meters of (lat, lon).
func CalculateBounds(lat, lon, radius float64) CoordinateBounds {
	latDelta := radius / earthRadiusMeters * (180 / math.Pi)
	cosLat := math.Cos(toRadians(lat))
	lonDelta := 180.0
	if cosLat > 1e-9 {
		lonDelta = math.Min(180, latDelta/cosLat)
	}

	return CoordinateBounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
