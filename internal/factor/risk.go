package factor

import (
	"math"

	"quant-systemv1/internal/indicator"
	"quant-systemv1/internal/model"
)

func init() {
	register("VOL", CategoryVolatility, model.Ascending, func(f *frame, t int, p Params) float64 {
		w := window(f.ret, t, p.Volatility)
		if w == nil {
			return math.NaN()
		}
		return indicator.SampleStd(w)
	})
	register("IVOL", CategoryVolatility, model.Ascending, idiosyncraticVol)
	register("SKEW", CategoryVolatility, model.Ascending, func(f *frame, t int, p Params) float64 {
		return Skewness(window(f.ret, t, p.Skew))
	})

	register("TURN", CategoryTechnical, model.Ascending, func(f *frame, t int, p Params) float64 {
		w := window(f.volume, t, p.Turn)
		if w == nil {
			return math.NaN()
		}
		return ratio(indicator.Mean(w), f.inst.FloatShares)
	})
	register("ILLIQ", CategoryTechnical, model.Descending, illiquidity)
	register("CORR", CategoryTechnical, model.Ascending, func(f *frame, t int, p Params) float64 {
		r := window(f.ret, t, p.Corr)
		m := window(f.mret, t, p.Corr)
		if r == nil || m == nil {
			return math.NaN()
		}
		return Correlation(r, m)
	})
	register("TURNOVER", CategoryTechnical, model.Ascending, func(f *frame, t int, _ Params) float64 {
		return ratio(f.volume[t], f.inst.FloatShares) * 100
	})
}

// idiosyncraticVol is the residual std of the instrument's returns
// regressed on market returns over the IVOL window.
func idiosyncraticVol(f *frame, t int, p Params) float64 {
	r := window(f.ret, t, p.IVOL)
	m := window(f.mret, t, p.IVOL)
	if r == nil || m == nil {
		return math.NaN()
	}
	fit, ok := indicator.OLS(m, r)
	if !ok {
		return math.NaN()
	}
	return fit.ResidStd
}

// illiquidity is the Amihud ratio mean(|r|/volume); any zero-volume bar in
// the window leaves it undefined.
func illiquidity(f *frame, t int, p Params) float64 {
	r := window(f.ret, t, p.Illiq)
	v := window(f.volume, t, p.Illiq)
	if r == nil || v == nil {
		return math.NaN()
	}
	var sum float64
	for i := range r {
		if v[i] <= 0 {
			return math.NaN()
		}
		sum += math.Abs(r[i]) / v[i]
	}
	return sum / float64(len(r))
}

// Skewness is the adjusted Fisher-Pearson sample skewness. It needs at
// least three values and a non-zero spread.
func Skewness(xs []float64) float64 {
	n := float64(len(xs))
	if len(xs) < 3 {
		return math.NaN()
	}
	m := indicator.Mean(xs)
	var m2, m3 float64
	for _, x := range xs {
		d := x - m
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return math.NaN()
	}
	return math.Sqrt(n*(n-1)) / (n - 2) * m3 / math.Pow(m2, 1.5)
}

// Correlation is the Pearson correlation of equal-length samples.
func Correlation(a, b []float64) float64 {
	if len(a) < 2 || len(a) != len(b) {
		return math.NaN()
	}
	ma, mb := indicator.Mean(a), indicator.Mean(b)
	var sab, saa, sbb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		sab += da * db
		saa += da * da
		sbb += db * db
	}
	if saa == 0 || sbb == 0 {
		return math.NaN()
	}
	return sab / math.Sqrt(saa*sbb)
}
