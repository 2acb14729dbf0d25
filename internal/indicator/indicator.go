// Package indicator provides technical indicator calculations over daily bars.
//
// Primitives (SMA, EMA, EWMA, RSI, Std, Min, Max) implement the
// Indicator interface and are fed one value at a time. Series-level
// functions (MACD, KDJ, BOLL, ...) run those primitives over a whole
// column and return slices aligned with the input, NaN during warm-up.
package indicator

import (
	"fmt"

	"quant-systemv1/internal/model"
)

// Indicator is the interface for all incremental indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "EMA").
	Name() string

	// Update feeds the next value and recalculates.
	Update(v float64)

	// Value returns the current calculated value. Only meaningful once Ready.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Reset clears all accumulated state.
	Reset()
}

// Values runs ind over xs and returns the output aligned with xs.
// Entries before the indicator is ready are NaN. A NaN input yields NaN and
// restarts the indicator, so every defined output is computed from an
// unbroken run of defined inputs.
func Values(ind Indicator, xs []float64) []float64 {
	out := model.UndefinedSlice(len(xs))
	for i, x := range xs {
		if model.IsUndefined(x) {
			ind.Reset()
			continue
		}
		ind.Update(x)
		if ind.Ready() {
			out[i] = ind.Value()
		}
	}
	return out
}

// positive rejects a non-positive lookback before any warm-up loop uses it.
func positive(what string, lookbacks ...int) error {
	for _, n := range lookbacks {
		if n < 1 {
			return &model.InvalidInputError{Index: -1, Reason: fmt.Sprintf("%s lookback must be at least 1, got %d", what, n)}
		}
	}
	return nil
}

func lookback(what string, period, have int) error {
	if err := positive(what, period); err != nil {
		return err
	}
	return insufficient(what, period, have)
}

func insufficient(what string, need, have int) error {
	if have >= need {
		return nil
	}
	return &model.InsufficientDataError{What: what, Need: need, Have: have}
}
