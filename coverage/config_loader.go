package coverage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the unified configuration from a YAML file and applies
// analysis defaults to unset fields. An unset or zero radiusKm defaults to
// 5 km; a negative radiusKm is kept as-is and means unlimited.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	// Validate required fields
	if config.Data.SitesCSV == "" {
		return nil, fmt.Errorf("data.sitesCsv is required")
	}
	if config.Data.RegionsGeoJSON == "" {
		return nil, fmt.Errorf("data.regionsGeojson is required")
	}
	if config.Analysis.Thresholds.MediumKm != 0 &&
		config.Analysis.Thresholds.MediumKm < config.Analysis.Thresholds.HighKm {
		return nil, fmt.Errorf("analysis.thresholds.mediumKm must be >= highKm")
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Analysis.K <= 0 {
		config.Analysis.K = 5
	}
	// Zero means unset; a negative radius is the unlimited sentinel and
	// must survive defaulting.
	if config.Analysis.RadiusKm == 0 {
		config.Analysis.RadiusKm = 5
	}
	if config.Analysis.Thresholds.HighKm <= 0 {
		config.Analysis.Thresholds.HighKm = DefaultThresholds().HighKm
	}
	if config.Analysis.Thresholds.MediumKm <= 0 {
		config.Analysis.Thresholds.MediumKm = DefaultThresholds().MediumKm
	}
	if config.HTTPPort <= 0 {
		config.HTTPPort = 8080
	}
	if config.MQTT.Broker != "" {
		if config.MQTT.PublishPrefix == "" {
			config.MQTT.PublishPrefix = "netcover"
		}
		if config.MQTT.QueryTopic == "" {
			config.MQTT.QueryTopic = config.MQTT.PublishPrefix + "/query/+"
		}
		if config.MQTT.ClientID == "" {
			config.MQTT.ClientID = "netcover"
		}
	}
	config.Data.Columns = config.Data.Columns.WithDefaults()
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
