package coverage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// LoadSites reads the site dataset from a CSV file. The caller supplies the
// column mapping; the loader does no fuzzy header detection. Rows whose
// coordinates fail to parse or fall outside the WGS84 range are excluded and
// counted in skipped; they are never coerced into the collection.
func LoadSites(path string, cols ColumnMapping) (sites []Site, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &DataUnavailableError{Resource: "sites", Err: err}
	}
	defer f.Close()

	sites, skipped, err = ReadSites(f, cols)
	if err != nil {
		return nil, 0, fmt.Errorf("reading sites from %s: %w", path, err)
	}
	return sites, skipped, nil
}

// ReadSites parses CSV site records from r using the supplied column
// mapping. The first record must be a header row naming, at minimum, the
// mapped latitude, longitude, operator and technology columns.
func ReadSites(r io.Reader, cols ColumnMapping) ([]Site, int, error) {
	cols = cols.WithDefaults()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are handled per-row below

	header, err := cr.Read()
	if err != nil {
		return nil, 0, &DataUnavailableError{Resource: "sites", Err: fmt.Errorf("reading header: %w", err)}
	}

	colIndex := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	latIdx := colIndex(cols.Latitude)
	lonIdx := colIndex(cols.Longitude)
	opIdx := colIndex(cols.Operator)
	techIdx := colIndex(cols.Technology)
	for _, missing := range []struct {
		idx  int
		name string
	}{
		{latIdx, cols.Latitude},
		{lonIdx, cols.Longitude},
		{opIdx, cols.Operator},
		{techIdx, cols.Technology},
	} {
		if missing.idx == -1 {
			return nil, 0, &ValidationError{
				Field:  "columns",
				Reason: fmt.Sprintf("header has no column %q", missing.name),
			}
		}
	}

	regionIdx := -1
	if cols.Region != "" {
		regionIdx = colIndex(cols.Region)
	}

	var sites []Site
	skipped := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, &DataUnavailableError{Resource: "sites", Err: err}
		}

		site, ok := parseSiteRow(record, latIdx, lonIdx, opIdx, techIdx, regionIdx)
		if !ok {
			skipped++
			continue
		}
		sites = append(sites, site)
	}

	return sites, skipped, nil
}

func parseSiteRow(record []string, latIdx, lonIdx, opIdx, techIdx, regionIdx int) (Site, bool) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	lat, err := strconv.ParseFloat(field(latIdx), 64)
	if err != nil {
		return Site{}, false
	}
	lon, err := strconv.ParseFloat(field(lonIdx), 64)
	if err != nil {
		return Site{}, false
	}
	if !(GeoPoint{Lat: lat, Lon: lon}).Valid() {
		return Site{}, false
	}

	return Site{
		Lat:        lat,
		Lon:        lon,
		Operator:   field(opIdx),
		Technology: field(techIdx),
		Region:     field(regionIdx),
	}, true
}

// LoadRegions reads the administrative boundary polygons from a GeoJSON
// FeatureCollection file.
func LoadRegions(path, nameProperty string) (*RegionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataUnavailableError{Resource: "regions", Err: err}
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &DataUnavailableError{Resource: "regions", Err: fmt.Errorf("parsing %s: %w", path, err)}
	}

	rs, err := NewRegionSet(fc, nameProperty)
	if err != nil {
		return nil, fmt.Errorf("building region set from %s: %w", path, err)
	}
	return rs, nil
}
