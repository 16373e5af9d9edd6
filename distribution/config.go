package distribution

import (
	"bytes"
	"io"
	"math"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ConfigVersion is the only Config version this package understands
const ConfigVersion = 1

// Config holds the options of every distribution variant. Variants
// ignore the options that do not concern them.
type Config struct {
	Version int `yaml:"version" json:"version" mapstructure:"version"`

	// Bounds applied to the log standard deviation of Gaussian
	// variants. The clamp passes gradients through.
	MinLogStd float64 `yaml:"min_log_std" json:"min_log_std" mapstructure:"min_log_std"`
	MaxLogStd float64 `yaml:"max_log_std" json:"max_log_std" mapstructure:"max_log_std"`

	// MonteCarloSamples is the number of draws used by estimators that
	// stand in for missing closed forms
	MonteCarloSamples int `yaml:"monte_carlo_samples" json:"monte_carlo_samples" mapstructure:"monte_carlo_samples"`

	// Seed seeds the noise of Monte-Carlo estimators
	Seed uint64 `yaml:"seed" json:"seed" mapstructure:"seed"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Version:           ConfigVersion,
		MinLogStd:         -20,
		MaxLogStd:         2,
		MonteCarloSamples: 64,
	}
}

// Validate returns an error wrapping ErrInvalidConfig if c is not
// usable
func (c Config) Validate() error {
	if c.Version != ConfigVersion {
		return errors.Wrapf(ErrInvalidConfig, "version %d not supported, "+
			"expected %d", c.Version, ConfigVersion)
	}

	if math.IsNaN(c.MinLogStd) || math.IsNaN(c.MaxLogStd) ||
		math.IsInf(c.MinLogStd, 0) || math.IsInf(c.MaxLogStd, 0) {
		return errors.Wrapf(ErrInvalidConfig, "log std bounds must be "+
			"finite, got [%v, %v]", c.MinLogStd, c.MaxLogStd)
	}
	if c.MinLogStd >= c.MaxLogStd {
		return errors.Wrapf(ErrInvalidConfig, "min log std %v >= max log "+
			"std %v", c.MinLogStd, c.MaxLogStd)
	}

	if c.MonteCarloSamples <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "monte carlo samples must "+
			"be positive, got %d", c.MonteCarloSamples)
	}

	return nil
}

// ParseConfig reads a Config from YAML or JSON. Missing fields take
// their default values and unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrapf(ErrInvalidConfig, "parseConfig: %v",
			err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
