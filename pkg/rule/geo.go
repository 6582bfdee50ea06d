package rule

import (
	"math"

	"github.com/ecosense/alertkit/pkg/alert"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points using the
// haversine formula. Accurate to well under a kilometer at the radii this
// package deals with.
func DistanceKm(a, b alert.Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Intersects reports whether the rule's circle overlaps a circle of the
// given radius around loc.
func (a Area) Intersects(loc alert.Location, radiusKm float64) bool {
	return DistanceKm(a.Center(), loc) <= a.RadiusKm+radiusKm
}
