package geo

import (
	"github.com/golang/geo/s2"
	"github.com/twpayne/go-polyline"
)

// GreatCircleDistance returns the distance in meter between two coordinates on the s2 sphere.
func GreatCircleDistance(a, b Coordinate) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lon)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return la.Distance(lb).Radians() * earthRadiusKM * 1000
}

// PolylineFromCoords encodes coordinates with the google polyline algorithm.
func PolylineFromCoords(path []Coordinate) string {
	coords := make([][]float64, 0, len(path))
	for _, c := range path {
		coords = append(coords, []float64{c.Lat, c.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}
