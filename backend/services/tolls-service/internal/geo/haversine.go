// Package geo holds the great-circle distance used to price segments.
package geo

import "math"

const (
	earthRadiusKm = 6371.0
	precision     = 1e4
)

// Point is a position in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Distance returns the haversine distance between a and b in kilometres, rounded to four
// decimals so repeated computations price identically.
func Distance(a, b Point) float64 {
	latFrom := degreesToRadians(a.Lat)
	latTo := degreesToRadians(b.Lat)
	dLat := latTo - latFrom
	dLng := degreesToRadians(b.Lng) - degreesToRadians(a.Lng)

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(latFrom)*math.Cos(latTo)*math.Pow(math.Sin(dLng/2), 2)
	angle := 2 * math.Asin(math.Sqrt(h))

	return round(angle * earthRadiusKm)
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func round(v float64) float64 {
	return math.Round(v*precision) / precision
}
