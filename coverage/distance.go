package coverage

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// kmPerDeg is the great-circle span of one degree on the 6371 km sphere,
// matching the haversine metric exactly. Used to convert a search radius
// into a bounding box in degrees.
const kmPerDeg = math.Pi * EarthRadiusKm / 180

// boundPad widens the pre-filter box. The box must never exclude a point
// the exact distance check would accept: the widest longitude offset of a
// distance circle sits slightly poleward of due east, so an unpadded box
// clips sites just inside the radius.
const boundPad = 1.01

// Haversine returns the great-circle distance between two points in
// kilometers on a spherical Earth. It is symmetric, returns exactly zero for
// coincident points, and is finite for every valid coordinate pair including
// antipodal and polar ones.
func Haversine(a, b GeoPoint) float64 {
	if a == b {
		return 0
	}

	lat1 := degToRad(a.Lat)
	lat2 := degToRad(b.Lat)
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	// Clamp guards against h marginally exceeding 1 from rounding on
	// near-antipodal pairs, which would make Sqrt(1-h) NaN.
	if h > 1 {
		h = 1
	}

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// radiusBound returns a bounding box in degrees that encloses every point
// within radiusKm of p. The box over-covers near the poles, which is fine:
// it is only a pre-filter, exact distances are checked afterwards.
func radiusBound(p GeoPoint, radiusKm float64) orb.Bound {
	dLat := radiusKm * boundPad / kmPerDeg

	cosLat := math.Cos(degToRad(p.Lat))
	dLon := 180.0
	if cosLat > 1e-9 {
		dLon = radiusKm * boundPad / (kmPerDeg * cosLat)
		if dLon > 180 {
			dLon = 180
		}
	}

	return orb.Bound{
		Min: orb.Point{clamp(p.Lon-dLon, -180, 180), clamp(p.Lat-dLat, -90, 90)},
		Max: orb.Point{clamp(p.Lon+dLon, -180, 180), clamp(p.Lat+dLat, -90, 90)},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
