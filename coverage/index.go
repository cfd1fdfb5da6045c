package coverage

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

// siteEntry is the quadtree payload: a site plus its insertion position,
// which is the distance tie-breaker.
type siteEntry struct {
	site Site
	idx  int
	pt   orb.Point
}

// Point implements orb.Pointer.
func (e *siteEntry) Point() orb.Point { return e.pt }

// SiteIndex answers nearest-neighbor and radius queries over an immutable
// site collection. The quadtree operates on raw lon/lat coordinates, so its
// internal metric is planar; every query re-ranks candidates by exact
// haversine distance before returning. Build once; rebuild from scratch if
// the underlying collection changes.
//
// A SiteIndex is safe for concurrent use: nothing is mutated after
// NewSiteIndex returns.
type SiteIndex struct {
	tree    *quadtree.Quadtree
	entries []*siteEntry
}

// NewSiteIndex builds an index over the given sites. Sites must already be
// validated; the loader excludes out-of-range rows. An empty or nil slice
// yields a usable index whose queries return empty results.
func NewSiteIndex(sites []Site) *SiteIndex {
	idx := &SiteIndex{}
	if len(sites) == 0 {
		return idx
	}

	entries := make([]*siteEntry, len(sites))
	bound := orb.Bound{
		Min: orb.Point{sites[0].Lon, sites[0].Lat},
		Max: orb.Point{sites[0].Lon, sites[0].Lat},
	}
	for i, s := range sites {
		pt := orb.Point{s.Lon, s.Lat}
		entries[i] = &siteEntry{site: s, idx: i, pt: pt}
		bound = bound.Extend(pt)
	}

	// Pad so boundary points are strictly inside the tree's root cell.
	bound.Min = orb.Point{bound.Min[0] - 0.001, bound.Min[1] - 0.001}
	bound.Max = orb.Point{bound.Max[0] + 0.001, bound.Max[1] + 0.001}

	tree := quadtree.New(bound)
	for _, e := range entries {
		// Add only fails for points outside the root bound, which the
		// extent computation above rules out.
		_ = tree.Add(e)
	}

	idx.tree = tree
	idx.entries = entries
	return idx
}

// Len returns the number of indexed sites.
func (x *SiteIndex) Len() int { return len(x.entries) }

// NearestK returns the k sites closest to p in ascending haversine order.
// Ties are broken by original insertion order. Fewer than k results are
// returned when the collection is smaller than k; an empty collection
// returns an empty slice, never an error.
func (x *SiteIndex) NearestK(p GeoPoint, k int) []SiteDistance {
	n := len(x.entries)
	if n == 0 || k <= 0 {
		return []SiteDistance{}
	}
	if k > n {
		k = n
	}

	// The quadtree ranks by planar lon/lat distance, which compresses
	// longitude away from the equator. Its k nearest are therefore only
	// candidates: the largest haversine distance among them bounds the true
	// k-th nearest from above, so a radius sweep at that bound is a
	// superset of the exact answer.
	pt := orb.Point{p.Lon, p.Lat}
	candidates := x.tree.KNearest(nil, pt, k)

	boundKm := 0.0
	for _, c := range candidates {
		e := c.(*siteEntry)
		if d := Haversine(p, e.site.Location()); d > boundKm {
			boundKm = d
		}
	}

	swept := x.WithinRadius(p, boundKm)
	if len(swept) > k {
		swept = swept[:k]
	}
	return swept
}

// WithinRadius returns every site within radiusKm of p, sorted ascending by
// distance with insertion-order ties. Equivalent to filtering NearestK over
// the whole collection, but runs off a bounding-box tree query instead of a
// full scan.
func (x *SiteIndex) WithinRadius(p GeoPoint, radiusKm float64) []SiteDistance {
	if len(x.entries) == 0 || radiusKm < 0 {
		return []SiteDistance{}
	}

	candidates := x.tree.InBound(nil, radiusBound(p, radiusKm))

	type ranked struct {
		e  *siteEntry
		km float64
	}
	hits := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		e := c.(*siteEntry)
		km := Haversine(p, e.site.Location())
		if km <= radiusKm {
			hits = append(hits, ranked{e: e, km: km})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].km != hits[j].km {
			return hits[i].km < hits[j].km
		}
		return hits[i].e.idx < hits[j].e.idx
	})

	out := make([]SiteDistance, len(hits))
	for i, h := range hits {
		out[i] = SiteDistance{Site: h.e.site, Km: h.km}
	}
	return out
}
