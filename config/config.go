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

	"github.com/kilianp07/conformance/core/factory"
	"github.com/kilianp07/conformance/core/metrics"
	"github.com/kilianp07/conformance/infra/dataset"
)

type Config struct {
	Dataset    dataset.Options        `json:"dataset"`
	Alignment  AlignmentConfig        `json:"alignment"`
	Output     OutputConfig           `json:"output"`
	Visualizer VisualizerConfig       `json:"visualizer"`
	Stores     []factory.ModuleConfig `json:"stores"`
	Metrics    metrics.Config         `json:"metrics"`
	Sentry     SentryConfig           `json:"sentry"`
	Logging    LoggingConfig          `json:"logging"`
	Server     ServerConfig           `json:"server"`
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
	// K_SECTION__FIELD overrides section.field.
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

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	setDatasetDefaults(&c.Dataset)
	c.Alignment.SetDefaults()
	c.Output.SetDefaults()
	c.Logging.SetDefaults()
	c.Server.SetDefaults()
	if len(c.Stores) == 0 {
		c.Stores = []factory.ModuleConfig{{Type: "json"}}
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := validateDataset(c.Dataset); err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	if err := c.Alignment.Validate(); err != nil {
		return fmt.Errorf("alignment: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	for i, s := range c.Stores {
		if s.Type == "" {
			return fmt.Errorf("stores[%d]: type is required", i)
		}
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
