package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/chargeguard/core/audit"
	"github.com/kilianp07/chargeguard/core/metrics"
	"github.com/kilianp07/chargeguard/core/model"
	"github.com/kilianp07/chargeguard/core/monitoring"
	"github.com/kilianp07/chargeguard/infra/mqtt"
)

type Config struct {
	Stations []model.StationConfig `json:"stations"`
	Log      LogConfig             `json:"log"`
	Audit    audit.Config          `json:"audit"`
	Metrics  metrics.Config        `json:"metrics"`
	API      APIConfig             `json:"api"`
	Sentry   monitoring.Config     `json:"sentry"`
	MQTT     mqtt.Config           `json:"mqtt"`
}

// APIConfig configures the read-only HTTP endpoints served next to /metrics.
type APIConfig struct {
	// AuditToken protects /api/audit with a bearer token when set.
	AuditToken string `json:"audit_token"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Log.SetDefaults()
	c.Audit.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if len(c.Stations) == 0 {
		return fmt.Errorf("stations: at least one station is required")
	}
	for i, s := range c.Stations {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("stations[%d]: id is required", i)
		}
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Audit.Validate(); err != nil {
		return err
	}
	return c.MQTT.Validate()
}
