package coverage

// Aggregate joins every site against the region polygons and counts sites
// per region. A source-supplied region label wins over geometric resolution
// when it names a known region; everything else goes through the resolver's
// bounding-box pre-filter, so the join is one pass over the sites rather
// than sites×regions containment tests. Regions with zero sites stay in the
// report with count 0 so coverage deserts remain visible.
func Aggregate(sites []Site, regions *RegionSet) DensityReport {
	report := DensityReport{
		Counts: make(map[string]int, regions.Len()),
		Total:  len(sites),
	}
	for _, name := range regions.Names() {
		report.Counts[name] = 0
	}

	for _, s := range sites {
		if s.Region != "" {
			if name, ok := regions.CanonicalName(s.Region); ok {
				report.Counts[name]++
				continue
			}
		}
		if name, ok := regions.Resolve(s.Location()); ok {
			report.Counts[name]++
			continue
		}
		report.Unknown++
	}

	return report
}
