package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"quant-systemv1/internal/factor"
	"quant-systemv1/internal/scoring"
)

//go:embed strategies.yaml
var defaultStrategies []byte

// StrategyFile is the YAML layout of a preset file.
type StrategyFile struct {
	Defaults   StrategyDefaults        `yaml:"defaults"`
	Strategies map[string]StrategySpec `yaml:"strategies"`
}

// StrategyDefaults apply to every strategy that leaves the field unset.
type StrategyDefaults struct {
	TopN   int             `yaml:"top_n"`
	Filter *scoring.Filter `yaml:"filter"`
}

// StrategySpec is one named preset.
type StrategySpec struct {
	Description string                 `yaml:"description"`
	Factors     []scoring.FactorWeight `yaml:"factors"`
	TopN        *int                   `yaml:"top_n,omitempty"`
	Filter      *scoring.Filter        `yaml:"filter,omitempty"`
	Thresholds  []scoring.Threshold    `yaml:"thresholds,omitempty"`
}

// Strategies maps preset names to validated scoring configs.
type Strategies map[string]scoring.Config

// Names returns the preset names in ascending order.
func (s Strategies) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Get returns the named preset.
func (s Strategies) Get(name string) (scoring.Config, error) {
	cfg, ok := s[name]
	if !ok {
		return scoring.Config{}, fmt.Errorf("unknown strategy %q (have %v)", name, s.Names())
	}
	return cfg, nil
}

// LoadStrategies reads presets from path, or the embedded defaults when
// path is empty.
func LoadStrategies(path string) (Strategies, error) {
	if path == "" {
		return ParseStrategies(defaultStrategies)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file: %w", err)
	}
	return ParseStrategies(data)
}

// ParseStrategies decodes a preset file, applies defaults and validates
// every strategy. Factors must exist in the factor catalog.
func ParseStrategies(data []byte) (Strategies, error) {
	var f StrategyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse strategy file: %w", err)
	}
	if len(f.Strategies) == 0 {
		return nil, fmt.Errorf("%w: no strategies defined", scoring.ErrInvalidConfig)
	}

	out := make(Strategies, len(f.Strategies))
	for name, spec := range f.Strategies {
		cfg := scoring.Config{
			Factors:    spec.Factors,
			TopN:       f.Defaults.TopN,
			Filter:     scoring.DefaultFilter(),
			Thresholds: spec.Thresholds,
		}
		if f.Defaults.Filter != nil {
			cfg.Filter = *f.Defaults.Filter
		}
		if spec.TopN != nil {
			cfg.TopN = *spec.TopN
		}
		if spec.Filter != nil {
			cfg.Filter = *spec.Filter
		}

		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("strategy %s: %w", name, err)
		}
		for _, fw := range cfg.Factors {
			if _, ok := factor.Lookup(fw.Name); !ok {
				return nil, fmt.Errorf("strategy %s: %w: unknown factor %s", name, scoring.ErrInvalidConfig, fw.Name)
			}
		}
		out[name] = cfg
	}
	return out, nil
}

// FactorNames returns every factor a panel must hold to score cfg: the
// weighted factors, those read by thresholds and the profit filter, and
// SIZE when MIDCAP is derived from it. The result is sorted.
func FactorNames(cfg scoring.Config) []string {
	seen := make(map[string]bool)
	for _, fw := range cfg.Factors {
		seen[fw.Name] = true
	}
	for _, t := range cfg.Thresholds {
		seen[t.Factor] = true
	}
	if cfg.Filter.RequireProfit {
		seen["PE"] = true
	}
	if seen[factor.MidCap] {
		seen["SIZE"] = true
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
