package factor

import (
	"math"

	"quant-systemv1/internal/indicator"
	"quant-systemv1/internal/model"
)

func init() {
	register("MOM", CategoryMomentum, model.Descending, func(f *frame, t int, p Params) float64 {
		return change(f.close, t, p.Momentum)
	})
	register("REV", CategoryMomentum, model.Descending, func(f *frame, t int, p Params) float64 {
		return -change(f.close, t, p.Reversal)
	})
	register("VOL_MOM", CategoryMomentum, model.Descending, volumeMomentum)
	register("RSRS", CategoryMomentum, model.Descending, rsrs)
	register("PCT_CHG", CategoryMomentum, model.Descending, func(f *frame, t int, _ Params) float64 {
		return change(f.close, t, 1) * 100
	})
	register("VOL_RATIO", CategoryMomentum, model.Descending, volumeRatio)
	register("AMPLITUDE", CategoryVolatility, model.Ascending, amplitude)
}

// change is xs[t]/xs[t-lag] - 1.
func change(xs []float64, t, lag int) float64 {
	if lag < 1 || t-lag < 0 {
		return math.NaN()
	}
	return ratio(xs[t], xs[t-lag]) - 1
}

// volumeMomentum is mean volume over VolShort bars / mean over VolLong bars.
func volumeMomentum(f *frame, t int, p Params) float64 {
	short := window(f.volume, t, p.VolShort)
	long := window(f.volume, t, p.VolLong)
	if short == nil || long == nil {
		return math.NaN()
	}
	return ratio(indicator.Mean(short), indicator.Mean(long))
}

// rsrs is the OLS slope of high on low over the trailing RSRS window.
func rsrs(f *frame, t int, p Params) float64 {
	lows := window(f.low, t, p.RSRS)
	highs := window(f.high, t, p.RSRS)
	if lows == nil || highs == nil {
		return math.NaN()
	}
	fit, ok := indicator.OLS(lows, highs)
	if !ok {
		return math.NaN()
	}
	return fit.Slope
}

// volumeRatio is today's volume over the mean of the previous VolRatio bars.
func volumeRatio(f *frame, t int, p Params) float64 {
	prev := window(f.volume, t-1, p.VolRatio)
	if prev == nil {
		return math.NaN()
	}
	return ratio(f.volume[t], indicator.Mean(prev))
}

// amplitude is the day's range over the previous close, in percent.
func amplitude(f *frame, t int, _ Params) float64 {
	if t < 1 {
		return math.NaN()
	}
	return ratio(f.high[t]-f.low[t], f.close[t-1]) * 100
}
