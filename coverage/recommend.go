package coverage

import "fmt"

// RecommendOffsetDeg is the fixed angular displacement applied to a query
// point when no uncovered cluster is available to anchor a candidate.
const RecommendOffsetDeg = 0.02

// coincidentKm treats a candidate within ~10 m of an existing site as
// coincident with it.
const coincidentKm = 0.01

// recommend proposes a new site location for a coverage gap. It is only
// meaningful when the result is uncovered or covered with Low confidence;
// adequate coverage is rejected with an error. The heuristic is
// deterministic: the centroid of the supplied uncovered points when there
// are any, otherwise a fixed offset from the query point. The candidate is
// nudged by further offset steps until it no longer coincides with an
// existing site.
func recommend(idx *SiteIndex, res CoverageResult, uncovered []GeoPoint) (CandidateSite, error) {
	reason := ReasonNoCoverage
	if res.Covered {
		if res.Confidence != ConfidenceLow {
			return CandidateSite{}, fmt.Errorf("coverage at (%g, %g) is %s: %w",
				res.Query.Lat, res.Query.Lon, res.Confidence, ErrCoverageAdequate)
		}
		reason = ReasonWeakCoverage
	}

	var cand GeoPoint
	if len(uncovered) > 0 {
		cand = centroid(uncovered)
	} else {
		cand = GeoPoint{Lat: res.Query.Lat + RecommendOffsetDeg, Lon: res.Query.Lon + RecommendOffsetDeg}
	}
	cand = clampPoint(cand)

	// Never propose a point on top of an existing site.
	for i := 0; i < 8; i++ {
		nearest := idx.NearestK(cand, 1)
		if len(nearest) == 0 || nearest[0].Km > coincidentKm {
			break
		}
		cand = clampPoint(GeoPoint{Lat: cand.Lat + RecommendOffsetDeg, Lon: cand.Lon + RecommendOffsetDeg})
	}

	return CandidateSite{Lat: cand.Lat, Lon: cand.Lon, Reason: reason}, nil
}

func centroid(points []GeoPoint) GeoPoint {
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return GeoPoint{Lat: lat / n, Lon: lon / n}
}

func clampPoint(p GeoPoint) GeoPoint {
	return GeoPoint{
		Lat: clamp(p.Lat, -90, 90),
		Lon: clamp(p.Lon, -180, 180),
	}
}
