package coverage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
data:
  sitesCsv: sites.csv
  regionsGeojson: regions.geojson
  columns:
    latitude: Site_Lat
    longitude: Site_Lon
analysis:
  radiusKm: 10
  k: 3
  thresholds:
    highKm: 4
    mediumKm: 12
httpPort: 9090
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if config.Data.SitesCSV != "sites.csv" {
		t.Errorf("SitesCSV = %s, want sites.csv", config.Data.SitesCSV)
	}
	if config.Analysis.RadiusKm != 10 {
		t.Errorf("RadiusKm = %g, want 10", config.Analysis.RadiusKm)
	}
	if config.Analysis.K != 3 {
		t.Errorf("K = %d, want 3", config.Analysis.K)
	}
	if config.Analysis.Thresholds.HighKm != 4 || config.Analysis.Thresholds.MediumKm != 12 {
		t.Errorf("Thresholds = %+v, want {4 12}", config.Analysis.Thresholds)
	}
	if config.HTTPPort != 9090 {
		t.Errorf("HTTPPort = %d, want 9090", config.HTTPPort)
	}
	if config.Data.Columns.Latitude != "Site_Lat" {
		t.Errorf("Columns.Latitude = %s, want Site_Lat", config.Data.Columns.Latitude)
	}
	// Unmapped columns fall back to canonical names.
	if config.Data.Columns.Operator != "operator" {
		t.Errorf("Columns.Operator = %s, want operator", config.Data.Columns.Operator)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
data:
  sitesCsv: sites.csv
  regionsGeojson: regions.geojson
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if config.Analysis.K != 5 {
		t.Errorf("default K = %d, want 5", config.Analysis.K)
	}
	if config.Analysis.RadiusKm != 5 {
		t.Errorf("default RadiusKm = %g, want 5", config.Analysis.RadiusKm)
	}
	if config.Analysis.Thresholds != DefaultThresholds() {
		t.Errorf("default Thresholds = %+v, want %+v", config.Analysis.Thresholds, DefaultThresholds())
	}
	if config.HTTPPort != 8080 {
		t.Errorf("default HTTPPort = %d, want 8080", config.HTTPPort)
	}
	// MQTT defaults only apply when a broker is configured.
	if config.MQTT.QueryTopic != "" {
		t.Errorf("QueryTopic = %s, want empty without a broker", config.MQTT.QueryTopic)
	}
}

func TestLoadConfig_MQTTDefaults(t *testing.T) {
	path := writeConfig(t, `
data:
  sitesCsv: sites.csv
  regionsGeojson: regions.geojson
mqtt:
  broker: mqtt://localhost:1883
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if config.MQTT.PublishPrefix != "netcover" {
		t.Errorf("PublishPrefix = %s, want netcover", config.MQTT.PublishPrefix)
	}
	if config.MQTT.QueryTopic != "netcover/query/+" {
		t.Errorf("QueryTopic = %s, want netcover/query/+", config.MQTT.QueryTopic)
	}
	if config.MQTT.ClientID != "netcover" {
		t.Errorf("ClientID = %s, want netcover", config.MQTT.ClientID)
	}
}

func TestLoadConfig_UnlimitedRadius(t *testing.T) {
	path := writeConfig(t, `
data:
  sitesCsv: sites.csv
  regionsGeojson: regions.geojson
analysis:
  radiusKm: -1
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	// Negative survives defaulting: only zero is rewritten to 5.
	if config.Analysis.RadiusKm != -1 {
		t.Errorf("RadiusKm = %g, want -1", config.Analysis.RadiusKm)
	}
	if q := config.Query(6.5244, 3.3792); q.RadiusKm >= 0 {
		t.Errorf("query RadiusKm = %g, want negative for unlimited", q.RadiusKm)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing sitesCsv",
			yaml: "data:\n  regionsGeojson: regions.geojson\n",
		},
		{
			name: "missing regionsGeojson",
			yaml: "data:\n  sitesCsv: sites.csv\n",
		},
		{
			name: "inverted thresholds",
			yaml: "data:\n  sitesCsv: s.csv\n  regionsGeojson: r.geojson\nanalysis:\n  thresholds:\n    highKm: 15\n    mediumKm: 5\n",
		},
		{
			name: "not yaml",
			yaml: "{{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.yaml)); err == nil {
				t.Error("LoadConfig() should have failed")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("LoadConfig() should fail for a missing file")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	config := &Config{
		Data: DataConfig{
			SitesCSV:       "sites.csv",
			RegionsGeoJSON: "regions.geojson",
			Columns:        ColumnMapping{Latitude: "Site_Lat"}.WithDefaults(),
		},
		Analysis: AnalysisConfig{
			RadiusKm:   7,
			K:          9,
			Thresholds: Thresholds{HighKm: 3, MediumKm: 20},
		},
		HTTPPort: 8085,
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := SaveConfig(path, config); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if loaded.Analysis != config.Analysis {
		t.Errorf("Analysis = %+v, want %+v", loaded.Analysis, config.Analysis)
	}
	if loaded.Data.Columns.Latitude != "Site_Lat" {
		t.Errorf("Columns.Latitude = %s, want Site_Lat", loaded.Data.Columns.Latitude)
	}
	if loaded.HTTPPort != 8085 {
		t.Errorf("HTTPPort = %d, want 8085", loaded.HTTPPort)
	}
}

func TestConfig_Query(t *testing.T) {
	config := &Config{
		Analysis: AnalysisConfig{RadiusKm: 10, K: 7, Thresholds: Thresholds{HighKm: 3, MediumKm: 20}},
	}

	q := config.Query(6.5244, 3.3792)
	if q.Lat != 6.5244 || q.Lon != 3.3792 {
		t.Errorf("query point = (%v, %v), want (6.5244, 3.3792)", q.Lat, q.Lon)
	}
	if q.RadiusKm != 10 || q.K != 7 {
		t.Errorf("query defaults = radius %g k %d, want 10 and 7", q.RadiusKm, q.K)
	}
	if q.Thresholds != config.Analysis.Thresholds {
		t.Errorf("Thresholds = %+v, want %+v", q.Thresholds, config.Analysis.Thresholds)
	}
}
