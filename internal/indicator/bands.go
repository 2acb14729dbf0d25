package indicator

import (
	"math"

	"quant-systemv1/internal/model"
)

// WR computes Williams %R: -100*(HH-close)/(HH-LL) over period bars.
// A flat range yields 0.
func WR(high, low, close []float64, period int) ([]float64, error) {
	if err := positive("WR", period); err != nil {
		return nil, err
	}
	if err := insufficient("WR", period, len(close)); err != nil {
		return nil, err
	}
	hh := RollingMax(high, period)
	ll := RollingMin(low, period)
	out := model.UndefinedSlice(len(close))
	for t := period - 1; t < len(close); t++ {
		rng := hh[t] - ll[t]
		if rng <= 0 {
			out[t] = 0
			continue
		}
		out[t] = -100 * (hh[t] - close[t]) / rng
	}
	return out, nil
}

// BOLLResult holds Bollinger bands. Upper ≥ Mid ≥ Lower wherever defined.
type BOLLResult struct {
	Upper []float64
	Mid   []float64
	Lower []float64
}

// BOLL computes mid = SMA(period) and mid ± k·(sample std).
func BOLL(closes []float64, period int, k float64) (BOLLResult, error) {
	if err := positive("BOLL", period); err != nil {
		return BOLLResult{}, err
	}
	if err := insufficient("BOLL", period, len(closes)); err != nil {
		return BOLLResult{}, err
	}
	mid := SMAValues(closes, period)
	std := RollingStd(closes, period)
	res := BOLLResult{
		Upper: model.UndefinedSlice(len(closes)),
		Mid:   mid,
		Lower: model.UndefinedSlice(len(closes)),
	}
	for t := range closes {
		if model.IsUndefined(mid[t]) {
			continue
		}
		s := std[t]
		if model.IsUndefined(s) {
			s = 0 // period 1
		}
		res.Upper[t] = mid[t] + k*s
		res.Lower[t] = mid[t] - k*s
	}
	return res, nil
}

// TrueRange returns max(H-L, |H-prevC|, |L-prevC|); TR[0] = H-L.
func TrueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(close))
	for t := range close {
		tr := high[t] - low[t]
		if t > 0 {
			tr = math.Max(tr, math.Max(math.Abs(high[t]-close[t-1]), math.Abs(low[t]-close[t-1])))
		}
		out[t] = tr
	}
	return out
}

// ATR is the rolling mean of true range over period.
func ATR(high, low, close []float64, period int) ([]float64, error) {
	if err := positive("ATR", period); err != nil {
		return nil, err
	}
	if err := insufficient("ATR", period, len(close)); err != nil {
		return nil, err
	}
	return SMAValues(TrueRange(high, low, close), period), nil
}

// OBV accumulates volume signed by the daily close change. OBV[0] = 0.
func OBV(close, volume []float64) []float64 {
	out := make([]float64, len(close))
	for t := 1; t < len(close); t++ {
		switch {
		case close[t] > close[t-1]:
			out[t] = out[t-1] + volume[t]
		case close[t] < close[t-1]:
			out[t] = out[t-1] - volume[t]
		default:
			out[t] = out[t-1]
		}
	}
	return out
}
