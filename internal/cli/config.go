package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds defaults read from a YAML config file, so a project can pin
// its format, verbosity, and cache location once instead of repeating flags
// on every invocation.
type Config struct {
	Format  string `yaml:"format,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
	Cache   string `yaml:"cache,omitempty"`
}

// LoadConfig reads a YAML config file. A missing path is not an error — it
// just means no defaults are set.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cli: reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cli: parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyDefaults fills in opts' zero-valued fields from cfg without
// overriding anything the user set on the command line.
func (cfg *Config) applyDefaults(opts *RootOptions, formatChanged, verboseChanged bool) {
	if cfg.Format != "" && !formatChanged {
		opts.Format = cfg.Format
	}
	if cfg.Verbose && !verboseChanged {
		opts.Verbose = true
	}
}
