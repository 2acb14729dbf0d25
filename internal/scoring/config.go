package scoring

import (
	"errors"
	"fmt"
	"math"

	"quant-systemv1/internal/model"
)

// FactorWeight is one term of the composite score.
type FactorWeight struct {
	Name      string              `yaml:"name" json:"name"`
	Weight    float64             `yaml:"weight" json:"weight"`
	Direction model.RankDirection `yaml:"direction" json:"direction"`
}

// Filter is the eligibility rule set applied before ranking.
type Filter struct {
	ExcludeSpecialTreatment bool    `yaml:"exclude_special_treatment" json:"exclude_special_treatment"`
	MinListedDays           int     `yaml:"min_listed_days" json:"min_listed_days"`
	LimitMovePct            float64 `yaml:"limit_move_pct" json:"limit_move_pct"` // |pct change| ≥ this is a limit move; 0 disables
	ExcludeSuspended        bool    `yaml:"exclude_suspended" json:"exclude_suspended"`
	RequireProfit           bool    `yaml:"require_profit" json:"require_profit"` // PE must be defined
}

// DefaultFilter is the standard A-share universe filter.
func DefaultFilter() Filter {
	return Filter{
		ExcludeSpecialTreatment: true,
		MinListedDays:           60,
		LimitMovePct:            9.9,
		ExcludeSuspended:        true,
	}
}

// Threshold keeps only instruments whose factor value lies strictly
// between Min and Max. A nil bound is open.
type Threshold struct {
	Factor string   `yaml:"factor" json:"factor"`
	Min    *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

func (t Threshold) admits(v float64, ok bool) bool {
	if !ok {
		return false
	}
	if t.Min != nil && !(v > *t.Min) {
		return false
	}
	if t.Max != nil && !(v < *t.Max) {
		return false
	}
	return true
}

// Config is the full scoring recipe. It is always passed explicitly.
type Config struct {
	Factors    []FactorWeight `yaml:"factors" json:"factors"`
	TopN       int            `yaml:"top_n" json:"top_n"` // 0 keeps every eligible instrument
	Filter     Filter         `yaml:"filter" json:"filter"`
	Thresholds []Threshold    `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
}

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("invalid scoring config")

// Validate checks the recipe for obvious mistakes.
func (c Config) Validate() error {
	if len(c.Factors) == 0 {
		return fmt.Errorf("%w: no factors", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Factors))
	for _, f := range c.Factors {
		switch {
		case f.Name == "":
			return fmt.Errorf("%w: factor without name", ErrInvalidConfig)
		case seen[f.Name]:
			return fmt.Errorf("%w: duplicate factor %s", ErrInvalidConfig, f.Name)
		case math.IsNaN(f.Weight) || math.IsInf(f.Weight, 0):
			return fmt.Errorf("%w: factor %s has non-finite weight", ErrInvalidConfig, f.Name)
		case !f.Direction.Valid():
			return fmt.Errorf("%w: factor %s has direction %q", ErrInvalidConfig, f.Name, f.Direction)
		}
		seen[f.Name] = true
	}
	if c.TopN < 0 {
		return fmt.Errorf("%w: top_n %d", ErrInvalidConfig, c.TopN)
	}
	if c.Filter.MinListedDays < 0 || c.Filter.LimitMovePct < 0 {
		return fmt.Errorf("%w: negative filter bound", ErrInvalidConfig)
	}
	for _, t := range c.Thresholds {
		if t.Factor == "" {
			return fmt.Errorf("%w: threshold without factor", ErrInvalidConfig)
		}
		if t.Min != nil && t.Max != nil && *t.Min >= *t.Max {
			return fmt.Errorf("%w: threshold %s min ≥ max", ErrInvalidConfig, t.Factor)
		}
	}
	return nil
}
