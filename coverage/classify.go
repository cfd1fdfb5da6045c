package coverage

// tierFor maps a minimum site distance to a confidence tier.
func tierFor(minKm float64, t Thresholds) Confidence {
	if t.HighKm <= 0 || t.MediumKm <= 0 {
		t = DefaultThresholds()
	}
	switch {
	case minKm <= t.HighKm:
		return ConfidenceHigh
	case minKm <= t.MediumKm:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// classify decides coverage for one query point against a built index and
// region set. Pure function of its inputs: calling it twice with the same
// arguments and unchanged collections yields identical results.
//
// A RadiusKm of zero or less means unlimited mode: every site is "nearby"
// and the point is covered whenever the dataset holds any site at all.
// Otherwise the point is covered iff at least one site lies within the
// radius. Confidence derives from the minimum distance among nearby sites;
// an uncovered point is always Low and an empty dataset is NoData.
func classify(idx *SiteIndex, regions *RegionSet, q QueryPoint) (CoverageResult, error) {
	if err := validatePoint(q.GeoPoint); err != nil {
		return CoverageResult{}, err
	}

	k := q.K
	if k <= 0 {
		k = 5
	}

	res := CoverageResult{
		Query:    q.GeoPoint,
		RadiusKm: q.RadiusKm,
		Nearest:  idx.NearestK(q.GeoPoint, k),
		Region:   RegionUnknown,
	}

	if name, ok := regions.Resolve(q.GeoPoint); ok {
		res.Region = name
	}

	if idx.Len() == 0 {
		res.Covered = false
		res.Confidence = ConfidenceNoData
		return res, nil
	}

	unlimited := q.RadiusKm <= 0
	if unlimited {
		res.Covered = true
	} else {
		res.Covered = len(idx.WithinRadius(q.GeoPoint, q.RadiusKm)) > 0
	}

	if !res.Covered {
		res.Confidence = ConfidenceLow
		return res, nil
	}

	// Covered: the closest site overall is also the closest nearby site.
	minKm, _ := res.MinDistanceKm()
	res.Confidence = tierFor(minKm, q.Thresholds)
	return res, nil
}
