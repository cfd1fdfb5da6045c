package coverage

import "sync"

// Dataset is the process-wide repository of loaded sites and regions.
// Everything inside is immutable after construction, so any number of
// callers may run queries concurrently without locking; only the density
// report is computed lazily, guarded by a sync.Once. Construct one Dataset
// at startup and pass it by reference to every query component.
type Dataset struct {
	sites   []Site
	index   *SiteIndex
	regions *RegionSet
	skipped int

	densityOnce sync.Once
	density     DensityReport
}

// NewDataset builds a dataset from already-loaded collections and indexes
// the sites. Either argument may be nil; queries that depend on a nil
// collection return a DataUnavailableError rather than degrading.
func NewDataset(sites []Site, regions *RegionSet) *Dataset {
	return &Dataset{
		sites:   sites,
		index:   NewSiteIndex(sites),
		regions: regions,
	}
}

// OpenDataset loads both input files described by cfg and builds the
// dataset. Loading happens exactly once, at startup; the load fails hard if
// either collection is unreadable.
func OpenDataset(cfg DataConfig) (*Dataset, error) {
	sites, skipped, err := LoadSites(cfg.SitesCSV, cfg.Columns)
	if err != nil {
		return nil, err
	}

	regions, err := LoadRegions(cfg.RegionsGeoJSON, cfg.RegionNameProperty)
	if err != nil {
		return nil, err
	}

	d := NewDataset(sites, regions)
	d.skipped = skipped
	return d, nil
}

// SiteCount returns the number of loaded sites.
func (d *Dataset) SiteCount() int { return len(d.sites) }

// SkippedRows returns how many source rows were excluded at load time for
// invalid coordinates.
func (d *Dataset) SkippedRows() int { return d.skipped }

// Sites returns the loaded site collection. Callers must treat it as
// read-only.
func (d *Dataset) Sites() []Site { return d.sites }

// Regions returns the region set, or nil if none was loaded.
func (d *Dataset) Regions() *RegionSet { return d.regions }

// Index returns the site spatial index.
func (d *Dataset) Index() *SiteIndex { return d.index }

// An empty site collection is a valid state: queries over it return empty
// results, which is distinct from the collections failing to load. Only a
// missing region set makes region-dependent queries refuse to run.
func (d *Dataset) requireRegions() error {
	if d.regions == nil {
		return &DataUnavailableError{Resource: "regions"}
	}
	return nil
}

// NearestK returns the k sites nearest to the given point.
func (d *Dataset) NearestK(p GeoPoint, k int) ([]SiteDistance, error) {
	if err := validatePoint(p); err != nil {
		return nil, err
	}
	return d.index.NearestK(p, k), nil
}

// WithinRadius returns every site within radiusKm of the given point.
func (d *Dataset) WithinRadius(p GeoPoint, radiusKm float64) ([]SiteDistance, error) {
	if err := validatePoint(p); err != nil {
		return nil, err
	}
	return d.index.WithinRadius(p, radiusKm), nil
}

// Resolve returns the administrative region containing the point, or
// RegionUnknown when the point is outside every boundary.
func (d *Dataset) Resolve(p GeoPoint) (string, error) {
	if err := validatePoint(p); err != nil {
		return "", err
	}
	if err := d.requireRegions(); err != nil {
		return "", err
	}
	if name, ok := d.regions.Resolve(p); ok {
		return name, nil
	}
	return RegionUnknown, nil
}

// Classify runs the full coverage decision for one query point.
func (d *Dataset) Classify(q QueryPoint) (CoverageResult, error) {
	if err := d.requireRegions(); err != nil {
		return CoverageResult{}, err
	}
	return classify(d.index, d.regions, q)
}

// Density returns the per-region site counts. The join runs once per
// process lifetime; subsequent calls return the memoized report.
func (d *Dataset) Density() (DensityReport, error) {
	if err := d.requireRegions(); err != nil {
		return DensityReport{}, err
	}
	d.densityOnce.Do(func() {
		d.density = Aggregate(d.sites, d.regions)
	})
	return d.density, nil
}

// Recommend proposes a new site location for an uncovered (or weakly
// covered) query result. uncovered may carry other gap points from the same
// analysis pass; their centroid anchors the candidate when present.
func (d *Dataset) Recommend(res CoverageResult, uncovered []GeoPoint) (CandidateSite, error) {
	return recommend(d.index, res, uncovered)
}
