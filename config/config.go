// Package config loads datapipe options files.
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

	"github.com/Noofbiz/datapipe/dataloader"
	"github.com/Noofbiz/datapipe/dist"
	"github.com/Noofbiz/datapipe/metrics"
)

// EnvPrefix marks environment overrides. DATAPIPE_DATASETS__TRAIN__NAME
// overrides datasets.train.name.
const EnvPrefix = "DATAPIPE_"

type Config struct {
	Name string `json:"name"`
	// NumGPU is the local device count; 0 runs on cpu.
	NumGPU int `json:"num_gpu"`
	// Dist selects distributed sizing of the train loader.
	Dist bool `json:"dist"`
	// ManualSeed seeds shuffling and loader workers when set.
	ManualSeed *int64 `json:"manual_seed"`

	Logging LoggingConfig  `json:"logging"`
	Metrics metrics.Config `json:"metrics"`

	// Datasets maps a section key such as train, val or val_2 to the
	// dataset and loader options of that section.
	Datasets map[string]map[string]any `json:"datasets"`
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
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
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

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()
	c.Metrics.SetDefaults()
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.NumGPU < 0 {
		return fmt.Errorf("num_gpu must be >= 0, got %d", c.NumGPU)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	for key, ds := range c.Datasets {
		for _, field := range []string{"type", "name"} {
			if s, _ := ds[field].(string); s == "" {
				return fmt.Errorf("datasets.%s: %s is required", key, field)
			}
		}
	}
	return nil
}

// Runtime returns the loader runtime for this configuration.
func (c Config) Runtime(info dist.Info) dataloader.Runtime {
	return dataloader.Runtime{
		NumDevices:  c.NumGPU,
		Distributed: c.Dist,
		Seed:        c.ManualSeed,
		Dist:        info,
	}
}
