package coverage

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// bufferSegments is the number of vertices used to approximate a coverage
// buffer circle.
const bufferSegments = 64

// ResultFeatureCollection converts a coverage result into a GeoJSON
// FeatureCollection for downstream GIS tools: one Point feature for the
// query, one per nearest site with distance properties, and (in radius
// mode) a Polygon approximating the coverage buffer.
func ResultFeatureCollection(res CoverageResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	query := geojson.NewFeature(orb.Point{res.Query.Lon, res.Query.Lat})
	query.Properties = geojson.Properties{
		"role":       "query",
		"covered":    res.Covered,
		"confidence": string(res.Confidence),
		"region":     res.Region,
	}
	fc.Append(query)

	if res.RadiusKm > 0 {
		buffer := geojson.NewFeature(circlePolygon(res.Query, res.RadiusKm))
		buffer.Properties = geojson.Properties{
			"role":     "buffer",
			"radiusKm": res.RadiusKm,
		}
		fc.Append(buffer)
	}

	for i, sd := range res.Nearest {
		f := geojson.NewFeature(orb.Point{sd.Site.Lon, sd.Site.Lat})
		f.Properties = geojson.Properties{
			"role":       "site",
			"rank":       i + 1,
			"operator":   CanonicalOperator(sd.Site.Operator),
			"technology": sd.Site.Technology,
			"distanceKm": sd.Km,
		}
		if sd.Site.Region != "" {
			f.Properties["region"] = sd.Site.Region
		}
		fc.Append(f)
	}

	return fc
}

// DensityFeatureCollection attaches per-region site counts to the region
// polygons.
func DensityFeatureCollection(report DensityReport, regions *RegionSet) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := 0; i < regions.Len(); i++ {
		r := regions.Region(i)
		f := geojson.NewFeature(r.Geometry)
		f.Properties = geojson.Properties{
			"name":      r.Name,
			"siteCount": report.Counts[r.Name],
		}
		fc.Append(f)
	}
	return fc
}

// CandidateFeature converts a recommended site into a GeoJSON feature.
func CandidateFeature(c CandidateSite) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
	f.Properties = geojson.Properties{
		"role":   "candidate",
		"reason": string(c.Reason),
	}
	return f
}

// circlePolygon approximates a circle of radiusKm around center as a closed
// ring in degrees. Longitude steps are widened by 1/cos(lat) so the ring
// stays roughly circular on the ground away from the equator.
func circlePolygon(center GeoPoint, radiusKm float64) orb.Polygon {
	dLat := radiusKm / kmPerDeg
	cosLat := math.Cos(degToRad(center.Lat))
	if cosLat < 1e-9 {
		cosLat = 1e-9
	}
	dLon := radiusKm / (kmPerDeg * cosLat)

	ring := make(orb.Ring, 0, bufferSegments+1)
	for i := 0; i <= bufferSegments; i++ {
		theta := 2 * math.Pi * float64(i) / bufferSegments
		ring = append(ring, orb.Point{
			clamp(center.Lon+dLon*math.Cos(theta), -180, 180),
			clamp(center.Lat+dLat*math.Sin(theta), -90, 90),
		})
	}
	return orb.Polygon{ring}
}
