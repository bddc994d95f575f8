// Package config loads the optional YAML file that tunes colors, map framing
// and ingest concurrency.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/benatfroemming/mapping-tool/internal/ingest"
	"github.com/benatfroemming/mapping-tool/internal/mapsync"
	"github.com/benatfroemming/mapping-tool/internal/style"
)

// Config is the file-level configuration. Zero fields keep their defaults.
type Config struct {
	Palette     style.Palette      `yaml:"palette"`
	Fit         mapsync.FitOptions `yaml:"fit"`
	IngestLimit int                `yaml:"ingest_limit"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Palette:     style.DefaultPalette(),
		Fit:         mapsync.DefaultFitOptions(),
		IngestLimit: ingest.DefaultLimit,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate rejects values the map or the ingester cannot use.
func (c Config) Validate() error {
	if n := len(c.Palette.Categorical); n != style.CategoricalSize {
		return errors.Errorf("palette.categorical needs exactly %d colors, got %d", style.CategoricalSize, n)
	}
	for i, col := range c.Palette.Categorical {
		if col == "" {
			return errors.Errorf("palette.categorical[%d] is empty", i)
		}
	}
	if c.Fit.Padding < 0 {
		return errors.New("fit.padding must not be negative")
	}
	if c.Fit.MaxZoom <= 0 {
		return errors.New("fit.maxZoom must be positive")
	}
	if c.IngestLimit < 0 {
		return errors.New("ingest_limit must not be negative")
	}
	return nil
}
