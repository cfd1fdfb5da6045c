package coverage

import "strings"

// GeoPoint is a WGS84 coordinate pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether the coordinates are inside the WGS84 range.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Site is a single network transmission point. Sites are immutable once
// loaded; the whole collection is shared read-only across queries.
type Site struct {
	Lat        float64 `json:"latitude"`
	Lon        float64 `json:"longitude"`
	Operator   string  `json:"operator"`
	Technology string  `json:"technology"`
	Region     string  `json:"region,omitempty"` // state name from the source file, may be empty
}

// Location returns the site coordinates as a GeoPoint.
func (s Site) Location() GeoPoint {
	return GeoPoint{Lat: s.Lat, Lon: s.Lon}
}

// Known operator identifiers after canonicalization.
const (
	OperatorMTN     = "mtn"
	OperatorAirtel  = "airtel"
	OperatorGlo     = "glo"
	Operator9Mobile = "9mobile"
	OperatorOther   = "other"
)

// CanonicalOperator maps a raw operator label to one of the known operator
// identifiers. Matching is case-insensitive; anything unrecognized becomes
// OperatorOther.
func CanonicalOperator(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case OperatorMTN:
		return OperatorMTN
	case OperatorAirtel:
		return OperatorAirtel
	case OperatorGlo:
		return OperatorGlo
	case Operator9Mobile, "etisalat": // 9mobile was rebranded from Etisalat
		return Operator9Mobile
	default:
		return OperatorOther
	}
}

// Confidence is the coarse reliability tier of a coverage determination.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNoData Confidence = "no-data" // dataset contains no sites at all
)

// Thresholds holds the distance boundaries (km) between confidence tiers.
// The medium/low boundary is configurable; see DefaultThresholds.
type Thresholds struct {
	HighKm   float64 `yaml:"highKm" json:"highKm"`
	MediumKm float64 `yaml:"mediumKm" json:"mediumKm"`
}

// DefaultThresholds returns the standard tier boundaries: high within 5 km,
// medium within 15 km.
func DefaultThresholds() Thresholds {
	return Thresholds{HighKm: 5, MediumKm: 15}
}

// QueryPoint is a single location under analysis together with its analysis
// configuration. A RadiusKm of zero or less means unlimited: every site
// counts as nearby.
type QueryPoint struct {
	GeoPoint
	RadiusKm   float64    `json:"radiusKm"`
	K          int        `json:"k"`
	Thresholds Thresholds `json:"-"`
}

// SiteDistance pairs a site with its great-circle distance from a query
// point.
type SiteDistance struct {
	Site Site    `json:"site"`
	Km   float64 `json:"distanceKm"`
}

// RegionUnknown is the region label attached to points that fall outside
// every boundary polygon.
const RegionUnknown = "unknown"

// CoverageResult is the outcome of classifying one query point. It is
// recomputed on every query and owned solely by the request that produced it.
type CoverageResult struct {
	Query      GeoPoint       `json:"query"`
	RadiusKm   float64        `json:"radiusKm"`
	Nearest    []SiteDistance `json:"nearestSites"`
	Covered    bool           `json:"covered"`
	Confidence Confidence     `json:"confidence"`
	Region     string         `json:"region"`
}

// Breakdown counts the nearest sites per operator and per technology, the
// summary shown alongside a classification.
type Breakdown struct {
	ByOperator   map[string]int `json:"byOperator"`
	ByTechnology map[string]int `json:"byTechnology"`
}

// Breakdown aggregates the result's nearest sites by canonical operator and
// by technology label.
func (r CoverageResult) Breakdown() Breakdown {
	b := Breakdown{
		ByOperator:   make(map[string]int),
		ByTechnology: make(map[string]int),
	}
	for _, sd := range r.Nearest {
		b.ByOperator[CanonicalOperator(sd.Site.Operator)]++
		b.ByTechnology[strings.ToUpper(strings.TrimSpace(sd.Site.Technology))]++
	}
	return b
}

// MinDistanceKm returns the smallest distance among the nearest sites, or
// false when the result holds no sites.
func (r CoverageResult) MinDistanceKm() (float64, bool) {
	if len(r.Nearest) == 0 {
		return 0, false
	}
	return r.Nearest[0].Km, true
}

// CandidateReason explains why a site placement was recommended.
type CandidateReason string

const (
	ReasonNoCoverage   CandidateReason = "no-coverage"
	ReasonWeakCoverage CandidateReason = "weak-coverage"
)

// CandidateSite is a proposed location for a new network site.
type CandidateSite struct {
	Lat    float64         `json:"latitude"`
	Lon    float64         `json:"longitude"`
	Reason CandidateReason `json:"reason"`
}

// DensityReport maps region names to site counts. Regions with zero sites
// are present with count 0; sites outside every region are tallied under
// Unknown. Counts plus Unknown always sum to Total.
type DensityReport struct {
	Counts  map[string]int `json:"counts"`
	Unknown int            `json:"unknown"`
	Total   int            `json:"total"`
}

// ColumnMapping names the raw CSV headers that carry each canonical site
// field. Header matching is exact after whitespace trimming, case-insensitive.
// The core never guesses column names; callers supply this mapping.
type ColumnMapping struct {
	Latitude   string `yaml:"latitude" json:"latitude"`
	Longitude  string `yaml:"longitude" json:"longitude"`
	Operator   string `yaml:"operator" json:"operator"`
	Technology string `yaml:"technology" json:"technology"`
	Region     string `yaml:"region,omitempty" json:"region,omitempty"` // optional
}

// WithDefaults fills unset mappings with the canonical field names.
func (m ColumnMapping) WithDefaults() ColumnMapping {
	if m.Latitude == "" {
		m.Latitude = "latitude"
	}
	if m.Longitude == "" {
		m.Longitude = "longitude"
	}
	if m.Operator == "" {
		m.Operator = "operator"
	}
	if m.Technology == "" {
		m.Technology = "technology"
	}
	return m
}

// DataConfig locates the input files and their column layout.
type DataConfig struct {
	SitesCSV       string        `yaml:"sitesCsv" json:"sitesCsv"`
	RegionsGeoJSON string        `yaml:"regionsGeojson" json:"regionsGeojson"`
	Columns        ColumnMapping `yaml:"columns" json:"columns"`
	// RegionNameProperty is the GeoJSON feature property holding the state
	// name (default "name").
	RegionNameProperty string `yaml:"regionNameProperty,omitempty" json:"regionNameProperty,omitempty"`
}

// AnalysisConfig holds the default query parameters applied when a caller
// does not supply its own. A RadiusKm of zero is treated as unset and
// replaced with the 5 km default on load; a negative RadiusKm selects
// unlimited mode, matching QueryPoint semantics.
type AnalysisConfig struct {
	RadiusKm   float64    `yaml:"radiusKm" json:"radiusKm"`
	K          int        `yaml:"k" json:"k"`
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
}

// MQTTConfig holds MQTT connection settings for the live query service.
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	QueryTopic    string `yaml:"queryTopic,omitempty" json:"queryTopic,omitempty"`
	PublishPrefix string `yaml:"publishPrefix,omitempty" json:"publishPrefix,omitempty"`
	ClientID      string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file.
type Config struct {
	Data     DataConfig     `yaml:"data" json:"data"`
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`
	MQTT     MQTTConfig     `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
	HTTPPort int            `yaml:"httpPort,omitempty" json:"httpPort,omitempty"`
}

// Query builds a QueryPoint for the given coordinates using the configured
// analysis defaults.
func (c *Config) Query(lat, lon float64) QueryPoint {
	return QueryPoint{
		GeoPoint:   GeoPoint{Lat: lat, Lon: lon},
		RadiusKm:   c.Analysis.RadiusKm,
		K:          c.Analysis.K,
		Thresholds: c.Analysis.Thresholds,
	}
}
