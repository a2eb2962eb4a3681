package crosssec

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"cn-alpha/internal/model"
)

// FactorWeight is one (factor, weight) term of the composite score.
type FactorWeight struct {
	Factor string  `yaml:"factor"`
	Weight float64 `yaml:"weight"`
}

// Config is the immutable normalization configuration. Build one, validate
// it, pass it in; the normalizer never mutates shared defaults between runs.
type Config struct {
	// Winsorize lists factors clipped to [q01, q99] of their date cohort
	// before standardization.
	Winsorize []string `yaml:"winsorize"`
	// Weights defines the standardized factors and their score weights.
	Weights []FactorWeight `yaml:"weights"`
	// Epsilon pads the cohort std so zero-dispersion cohorts (size 1, or a
	// constant cross-section) divide cleanly. z = (x-mean)/(std+eps).
	Epsilon float64 `yaml:"epsilon"`
}

// DefaultConfig is the reference configuration: equal weights on the volume
// ratio and turnover factors, no winsorization, eps 1e-6.
func DefaultConfig() Config {
	return Config{
		Weights: []FactorWeight{
			{Factor: model.FactorVolRatio, Weight: 0.5},
			{Factor: model.FactorTurnover, Weight: 0.5},
		},
		Epsilon: 1e-6,
	}
}

// LoadConfig reads a YAML weights file. Omitted epsilon falls back to the
// default.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read weights file: %w", err)
	}
	cfg := Config{Epsilon: 1e-6}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse weights file %s: %w", path, err)
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-6
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("weights file %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.Weights) == 0 {
		return fmt.Errorf("no score weights configured")
	}
	for _, w := range c.Weights {
		if !model.KnownFactor(w.Factor) {
			return fmt.Errorf("unknown factor %q in weights", w.Factor)
		}
		if math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
			return fmt.Errorf("invalid weight for %q", w.Factor)
		}
	}
	for _, f := range c.Winsorize {
		if !model.KnownFactor(f) {
			return fmt.Errorf("unknown factor %q in winsorize list", f)
		}
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	return nil
}
