package coverage

import (
	"errors"
	"reflect"
	"testing"
)

func uncoveredResult(q GeoPoint) CoverageResult {
	return CoverageResult{
		Query:      q,
		RadiusKm:   5,
		Covered:    false,
		Confidence: ConfidenceLow,
	}
}

func TestRecommend_NoCoverage(t *testing.T) {
	idx := NewSiteIndex(lagosSites())
	q := GeoPoint{Lat: 8.5, Lon: 4.5}

	cand, err := recommend(idx, uncoveredResult(q), nil)
	if err != nil {
		t.Fatalf("recommend() error: %v", err)
	}

	if cand.Reason != ReasonNoCoverage {
		t.Errorf("Reason = %s, want %s", cand.Reason, ReasonNoCoverage)
	}
	if cand.Lat != q.Lat+RecommendOffsetDeg || cand.Lon != q.Lon+RecommendOffsetDeg {
		t.Errorf("candidate = (%v, %v), want query plus the fixed offset", cand.Lat, cand.Lon)
	}
}

func TestRecommend_WeakCoverage(t *testing.T) {
	idx := NewSiteIndex(lagosSites())
	res := CoverageResult{
		Query:      GeoPoint{Lat: 8.5, Lon: 4.5},
		Covered:    true,
		Confidence: ConfidenceLow,
	}

	cand, err := recommend(idx, res, nil)
	if err != nil {
		t.Fatalf("recommend() error: %v", err)
	}
	if cand.Reason != ReasonWeakCoverage {
		t.Errorf("Reason = %s, want %s", cand.Reason, ReasonWeakCoverage)
	}
}

func TestRecommend_AdequateCoverageRejected(t *testing.T) {
	idx := NewSiteIndex(lagosSites())

	for _, conf := range []Confidence{ConfidenceHigh, ConfidenceMedium} {
		res := CoverageResult{Query: lagosCenter, Covered: true, Confidence: conf}
		_, err := recommend(idx, res, nil)
		if err == nil {
			t.Errorf("recommend() with %s coverage should be rejected", conf)
			continue
		}
		if !errors.Is(err, ErrCoverageAdequate) {
			t.Errorf("error = %v, want ErrCoverageAdequate", err)
		}
	}
}

func TestRecommend_UncoveredCentroid(t *testing.T) {
	idx := NewSiteIndex(lagosSites())
	uncovered := []GeoPoint{
		{Lat: 8.0, Lon: 4.0},
		{Lat: 8.2, Lon: 4.4},
		{Lat: 8.4, Lon: 4.2},
	}

	cand, err := recommend(idx, uncoveredResult(GeoPoint{Lat: 8.5, Lon: 4.5}), uncovered)
	if err != nil {
		t.Fatalf("recommend() error: %v", err)
	}

	if !inDelta(cand.Lat, 8.2, 1e-9) || !inDelta(cand.Lon, 4.2, 1e-9) {
		t.Errorf("candidate = (%v, %v), want the cluster centroid (8.2, 4.2)", cand.Lat, cand.Lon)
	}
}

func TestRecommend_NudgesOffExistingSite(t *testing.T) {
	q := GeoPoint{Lat: 8.5, Lon: 4.5}
	// A site sits exactly where the default offset would land.
	idx := NewSiteIndex([]Site{
		{Lat: q.Lat + RecommendOffsetDeg, Lon: q.Lon + RecommendOffsetDeg, Operator: "MTN"},
	})

	cand, err := recommend(idx, uncoveredResult(q), nil)
	if err != nil {
		t.Fatalf("recommend() error: %v", err)
	}

	if cand.Lat == q.Lat+RecommendOffsetDeg && cand.Lon == q.Lon+RecommendOffsetDeg {
		t.Error("candidate coincides with an existing site, should have been nudged")
	}
	if !inDelta(cand.Lat, q.Lat+2*RecommendOffsetDeg, 1e-9) {
		t.Errorf("candidate lat = %v, want one further offset step", cand.Lat)
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	idx := NewSiteIndex(lagosSites())
	res := uncoveredResult(GeoPoint{Lat: 8.5, Lon: 4.5})

	first, err := recommend(idx, res, nil)
	if err != nil {
		t.Fatalf("recommend() error: %v", err)
	}
	second, err := recommend(idx, res, nil)
	if err != nil {
		t.Fatalf("recommend() error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("recommend not deterministic: %+v vs %+v", first, second)
	}
}

func TestRecommend_ClampsAtWorldEdge(t *testing.T) {
	idx := NewSiteIndex(nil)
	res := uncoveredResult(GeoPoint{Lat: 89.99, Lon: 179.99})

	cand, err := recommend(idx, res, nil)
	if err != nil {
		t.Fatalf("recommend() error: %v", err)
	}
	if cand.Lat > 90 || cand.Lon > 180 {
		t.Errorf("candidate (%v, %v) outside WGS84 range", cand.Lat, cand.Lon)
	}
}
