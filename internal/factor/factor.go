// Package factor computes per-instrument, per-date factor values from
// price, volume and fundamental history.
//
// Every factor is a pure function of data dated on or before the evaluated
// bar. Degenerate inputs (non-positive market cap or equity, zero volume
// where required, too little history) yield NaN instead of an error.
package factor

import (
	"fmt"
	"sort"

	"quant-systemv1/internal/model"
)

// Category groups factors for reporting.
type Category string

const (
	CategoryValue      Category = "value"
	CategoryMomentum   Category = "momentum"
	CategoryQuality    Category = "quality"
	CategorySize       Category = "size"
	CategoryVolatility Category = "volatility"
	CategoryTechnical  Category = "technical"
	CategoryGrowth     Category = "growth"
)

// Params are the lookback windows of the windowed factors.
type Params struct {
	Momentum   int // MOM
	Reversal   int // REV
	VolShort   int // VOL_MOM numerator
	VolLong    int // VOL_MOM denominator
	RSRS       int // RSRS regression window
	Volatility int // VOL
	IVOL       int // IVOL regression window
	Skew       int // SKEW
	Turn       int // TURN
	Illiq      int // ILLIQ
	Corr       int // CORR
	VolRatio   int // VOL_RATIO baseline
	GrowthLag  int // reports back for REVG/EPG
}

// DefaultParams returns the standard windows.
func DefaultParams() Params {
	return Params{
		Momentum:   20,
		Reversal:   5,
		VolShort:   5,
		VolLong:    20,
		RSRS:       18,
		Volatility: 20,
		IVOL:       60,
		Skew:       20,
		Turn:       20,
		Illiq:      20,
		Corr:       20,
		VolRatio:   5,
		GrowthLag:  4,
	}
}

// Spec describes one catalogued factor.
type Spec struct {
	Name      string
	Category  Category
	Direction model.RankDirection // preferred end when ranking
	compute   func(f *frame, t int, p Params) float64
}

// Inputs is everything one instrument's factors may read.
type Inputs struct {
	Instrument   model.Instrument
	Series       model.Series
	Market       model.Series         // benchmark index, matched to Series by date
	Fundamentals []model.Fundamentals // any order; sorted on use
}

var catalog = map[string]Spec{}

func register(name string, cat Category, dir model.RankDirection, fn func(f *frame, t int, p Params) float64) {
	catalog[name] = Spec{Name: name, Category: cat, Direction: dir, compute: fn}
}

// Lookup returns the catalogued spec for name.
func Lookup(name string) (Spec, bool) {
	s, ok := catalog[name]
	return s, ok
}

// Names returns every catalogued factor name in ascending order.
func Names() []string {
	out := make([]string, 0, len(catalog))
	for n := range catalog {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ComputeAt evaluates names at bar t of in.Series.
// Undefined values are returned as NaN; the error is reserved for invalid
// input, an unknown factor or an out-of-range t.
func ComputeAt(in Inputs, t int, names []string, p Params) (map[string]float64, error) {
	specs, err := resolve(in.Instrument.Code, names)
	if err != nil {
		return nil, err
	}
	f, err := newFrame(in)
	if err != nil {
		return nil, err
	}
	if t < 0 || t >= f.n {
		return nil, &model.InvalidInputError{Instrument: in.Instrument.Code, Index: t, Reason: "index outside series"}
	}
	out := make(map[string]float64, len(specs))
	for _, s := range specs {
		out[s.Name] = s.compute(f, t, p)
	}
	return out, nil
}

// Series returns the full causal history of one factor, aligned with
// in.Series.
func Series(in Inputs, name string, p Params) ([]float64, error) {
	specs, err := resolve(in.Instrument.Code, []string{name})
	if err != nil {
		return nil, err
	}
	f, err := newFrame(in)
	if err != nil {
		return nil, err
	}
	out := make([]float64, f.n)
	for t := range out {
		out[t] = specs[0].compute(f, t, p)
	}
	return out, nil
}

func resolve(instrument string, names []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(names))
	for _, n := range names {
		s, ok := catalog[n]
		if !ok {
			return nil, &model.InvalidInputError{Instrument: instrument, Index: -1, Reason: fmt.Sprintf("unknown factor %q", n)}
		}
		specs = append(specs, s)
	}
	return specs, nil
}
