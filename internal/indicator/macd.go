package indicator

import "quant-systemv1/internal/model"

// MACDResult holds the three MACD lines aligned with the input closes.
type MACDResult struct {
	DIF  []float64
	DEA  []float64
	Hist []float64 // 2*(DIF-DEA)
}

// MACD computes DIF = EMA(fast) - EMA(slow), DEA = EMA(DIF, signal) and
// the histogram. All three lines are undefined for t < slow-1.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, error) {
	if err := positive("MACD", fast, slow, signal); err != nil {
		return MACDResult{}, err
	}
	if err := insufficient("MACD", slow, len(closes)); err != nil {
		return MACDResult{}, err
	}
	ef := ema(closes, fast)
	es := ema(closes, slow)
	dif := make([]float64, len(closes))
	for i := range closes {
		dif[i] = ef[i] - es[i]
	}
	dea := ema(dif, signal)

	res := MACDResult{
		DIF:  model.UndefinedSlice(len(closes)),
		DEA:  model.UndefinedSlice(len(closes)),
		Hist: model.UndefinedSlice(len(closes)),
	}
	for i := slow - 1; i < len(closes); i++ {
		res.DIF[i] = dif[i]
		res.DEA[i] = dea[i]
		res.Hist[i] = 2 * (dif[i] - dea[i])
	}
	return res, nil
}

// Cross marks a line crossing another at one index.
type Cross int

const (
	NoCross     Cross = 0
	GoldenCross Cross = 1  // a crosses above b
	DeathCross  Cross = -1 // a crosses below b
)

// Crosses classifies every index t ≥ 1:
// golden iff a[t-1] ≤ b[t-1] && a[t] > b[t],
// death iff a[t-1] ≥ b[t-1] && a[t] < b[t].
// Any undefined operand yields NoCross.
func Crosses(a, b []float64) []Cross {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]Cross, n)
	for t := 1; t < n; t++ {
		out[t] = CrossAt(a, b, t)
	}
	return out
}

// CrossAt classifies index t alone.
func CrossAt(a, b []float64, t int) Cross {
	if t < 1 || t >= len(a) || t >= len(b) {
		return NoCross
	}
	p0, q0, p1, q1 := a[t-1], b[t-1], a[t], b[t]
	if model.IsUndefined(p0) || model.IsUndefined(q0) || model.IsUndefined(p1) || model.IsUndefined(q1) {
		return NoCross
	}
	switch {
	case p0 <= q0 && p1 > q1:
		return GoldenCross
	case p0 >= q0 && p1 < q1:
		return DeathCross
	}
	return NoCross
}
