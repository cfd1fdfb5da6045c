package coverage

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// boundaryToleranceDeg admits points sitting exactly on a region boundary or
// displaced by coordinate rounding: roughly 5 meters of longitude at the
// equator.
const boundaryToleranceDeg = 5.0 / 111320.0

// Region is a named administrative boundary polygon.
type Region struct {
	Name     string
	Geometry orb.Geometry // Polygon or MultiPolygon
	bound    orb.Bound
}

// RegionSet resolves points to administrative regions. Regions keep the
// order they appear in the source FeatureCollection; when a point matches
// more than one region (a data defect, the polygons are assumed disjoint)
// the first match in that order wins. Immutable after construction, shared
// read-only by all queries.
type RegionSet struct {
	regions []Region
	byName  map[string]int // lowercased name -> index
}

// NewRegionSet builds a resolver from a GeoJSON FeatureCollection. Each
// feature must carry a Polygon or MultiPolygon geometry and a string
// property (nameProperty, default "name") holding the region name.
func NewRegionSet(fc *geojson.FeatureCollection, nameProperty string) (*RegionSet, error) {
	if nameProperty == "" {
		nameProperty = "name"
	}

	rs := &RegionSet{byName: make(map[string]int)}
	for i, f := range fc.Features {
		name, _ := f.Properties[nameProperty].(string)
		if name == "" {
			return nil, &ValidationError{
				Field:  "region name",
				Reason: fmt.Sprintf("feature %d has no string property %q", i, nameProperty),
			}
		}

		switch g := f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
			rs.regions = append(rs.regions, Region{
				Name:     name,
				Geometry: g,
				bound:    g.Bound(),
			})
		default:
			return nil, &ValidationError{
				Field:  "region geometry",
				Reason: fmt.Sprintf("feature %q is %T, want Polygon or MultiPolygon", name, f.Geometry),
			}
		}

		key := strings.ToLower(name)
		if _, dup := rs.byName[key]; !dup {
			rs.byName[key] = len(rs.regions) - 1
		}
	}

	return rs, nil
}

// Len returns the number of regions.
func (rs *RegionSet) Len() int { return len(rs.regions) }

// Names returns region names in source order.
func (rs *RegionSet) Names() []string {
	names := make([]string, len(rs.regions))
	for i, r := range rs.regions {
		names[i] = r.Name
	}
	return names
}

// CanonicalName maps a raw region label to the set's spelling of that name.
// Matching is case-insensitive.
func (rs *RegionSet) CanonicalName(raw string) (string, bool) {
	i, ok := rs.byName[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", false
	}
	return rs.regions[i].Name, true
}

// Region returns the region at position i in source order.
func (rs *RegionSet) Region(i int) Region { return rs.regions[i] }

// Resolve returns the name of the region containing p, or ok=false when the
// point falls outside every region. Each region's bounding box is checked
// before the exact containment test so most regions are skipped per query.
func (rs *RegionSet) Resolve(p GeoPoint) (string, bool) {
	pt := orb.Point{p.Lon, p.Lat}

	for i := range rs.regions {
		r := &rs.regions[i]
		if !boundContainsPadded(r.bound, pt, boundaryToleranceDeg) {
			continue
		}
		if regionContains(r.Geometry, pt) {
			return r.Name, true
		}
	}

	// Second pass with the boundary tolerance: points exactly on a border
	// often fail the ray cast in every adjacent polygon.
	for i := range rs.regions {
		r := &rs.regions[i]
		if !boundContainsPadded(r.bound, pt, boundaryToleranceDeg) {
			continue
		}
		if planar.DistanceFrom(r.Geometry, pt) <= boundaryToleranceDeg {
			return r.Name, true
		}
	}

	return "", false
}

func regionContains(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, pt)
	}
	return false
}

func boundContainsPadded(b orb.Bound, pt orb.Point, pad float64) bool {
	return pt[0] >= b.Min[0]-pad && pt[0] <= b.Max[0]+pad &&
		pt[1] >= b.Min[1]-pad && pt[1] <= b.Max[1]+pad
}
