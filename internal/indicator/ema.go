package indicator

// EMA calculates Exponential Moving Average with α = 2/(span+1).
// The first value seeds the average (no SMA warm-up), matching a
// non-adjusted exponentially weighted mean. Ready reports once span values
// have been seen; Value is defined from the first update.
// O(1) per update, no window storage.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given span.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(v float64) {
	e.count++
	if e.count == 1 {
		e.current = v
		return
	}
	// EMA = (v * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (v * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
}

// EMAValues returns the EMA of xs over span, NaN for the first span-1 entries.
func EMAValues(xs []float64, span int) []float64 {
	return Values(NewEMA(span), xs)
}

// ema runs the recursion without warm-up masking; callers mask the
// combined output themselves.
func ema(xs []float64, span int) []float64 {
	e := NewEMA(span)
	out := make([]float64, len(xs))
	for i, x := range xs {
		e.Update(x)
		out[i] = e.Value()
	}
	return out
}
