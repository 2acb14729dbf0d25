package factor

import (
	"context"
	"math"
	"sort"
	"time"

	"quant-systemv1/internal/batch"
	"quant-systemv1/internal/model"
)

// MidCap is the derived cross-sectional factor written by MidCapPreference.
const MidCap = "MIDCAP"

// BuildPanel computes names for every instrument in universe on date.
//
// Instruments are processed independently by opts.Workers goroutines; the
// call returns only after all of them finish. An instrument without a bar
// on date, or whose inputs are invalid, is reported as a failure and left
// out of the panel. Undefined factor values are simply absent.
func BuildPanel(ctx context.Context, date time.Time, universe []Inputs, names []string, p Params, opts batch.Options) (*model.FactorPanel, []model.Failure) {
	if opts.Stage == "" {
		opts.Stage = "factor"
	}
	rows, errs := batch.Map(ctx, universe, opts, func(_ context.Context, in Inputs) (map[string]float64, error) {
		t := in.Series.IndexOf(date)
		if t < 0 {
			return nil, &model.InsufficientDataError{Instrument: code(in), What: "bar on " + date.Format("2006-01-02"), Need: 1}
		}
		return ComputeAt(in, t, names, p)
	})

	panel := model.NewFactorPanel(date)
	var failures []model.Failure
	for i, in := range universe {
		if errs[i] != nil {
			failures = append(failures, model.NewFailure(code(in), date, opts.Stage, errs[i]))
			continue
		}
		panel.AddInstrument(code(in))
		for name, v := range rows[i] {
			panel.Set(code(in), name, v)
		}
	}
	return panel, failures
}

func code(in Inputs) string {
	if in.Instrument.Code != "" {
		return in.Instrument.Code
	}
	return in.Series.Instrument
}

// MidCapPreference adds MIDCAP = -|ln(mcap) - median ln(mcap)| for every
// instrument with a defined SIZE (SIZE = -ln mcap). Instruments closest to
// the cross-sectional median size score highest.
func MidCapPreference(panel *model.FactorPanel) {
	sizes := panel.Column("SIZE")
	if len(sizes) == 0 {
		return
	}
	logs := make([]float64, 0, len(sizes))
	for _, s := range sizes {
		logs = append(logs, -s)
	}
	med := median(logs)
	for inst, s := range sizes {
		panel.Set(inst, MidCap, -math.Abs(-s-med))
	}
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func init() {
	catalog[MidCap] = Spec{
		Name:      MidCap,
		Category:  CategorySize,
		Direction: model.Descending,
		// cross-sectional: filled in by MidCapPreference, not per instrument
		compute: func(*frame, int, Params) float64 { return math.NaN() },
	}
}
