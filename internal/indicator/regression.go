package indicator

import "math"

// Fit is a closed-form ordinary least squares fit of y = Intercept + Slope·x.
type Fit struct {
	Slope     float64
	Intercept float64
	ResidStd  float64 // sqrt(SSR/(n-2)); NaN for n ≤ 2
	N         int
}

// OLS regresses y on x. It returns ok=false when fewer than two points are
// given, any value is NaN, or x has zero variance.
func OLS(x, y []float64) (Fit, bool) {
	n := len(x)
	if n < 2 || len(y) != n {
		return Fit{}, false
	}
	var sx, sy float64
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			return Fit{}, false
		}
		sx += x[i]
		sy += y[i]
	}
	mx, my := sx/float64(n), sy/float64(n)
	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		sxx += dx * dx
		sxy += dx * (y[i] - my)
	}
	if sxx == 0 {
		return Fit{}, false
	}
	f := Fit{Slope: sxy / sxx, N: n}
	f.Intercept = my - f.Slope*mx
	f.ResidStd = math.NaN()
	if n > 2 {
		var ssr float64
		for i := 0; i < n; i++ {
			r := y[i] - f.Intercept - f.Slope*x[i]
			ssr += r * r
		}
		f.ResidStd = math.Sqrt(ssr / float64(n-2))
	}
	return f, true
}

// TrendSlope regresses ys on their index 0..n-1.
func TrendSlope(ys []float64) (float64, bool) {
	x := make([]float64, len(ys))
	for i := range x {
		x[i] = float64(i)
	}
	f, ok := OLS(x, ys)
	return f.Slope, ok
}
