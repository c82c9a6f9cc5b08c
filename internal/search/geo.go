// internal/search/geo.go
package search

import "math"

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PointFromLatLng reads a listing's [lat, lng] pair. Fewer than two elements,
// or non-finite values, mean the listing cannot be located.
func PointFromLatLng(latlng []float64) (Point, bool) {
	if len(latlng) < 2 {
		return Point{}, false
	}
	lat, lng := latlng[0], latlng[1]
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return Point{}, false
	}
	return Point{Lat: lat, Lng: lng}, true
}

// Haversine returns the great-circle distance between a and b in kilometres on
// a sphere of the given radius.
func Haversine(a, b Point, radiusKm float64) float64 {
	const rad = math.Pi / 180

	dLat := (b.Lat - a.Lat) * rad
	dLng := (b.Lng - a.Lng) * rad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)

	h = math.Min(1, math.Max(0, h))

	return radiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
