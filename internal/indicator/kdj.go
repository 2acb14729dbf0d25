package indicator

import "quant-systemv1/internal/model"

// KDJResult holds the stochastic K, D and J lines.
type KDJResult struct {
	K []float64
	D []float64
	J []float64 // 3K-2D, unbounded
}

// KDJ zone thresholds on K.
const (
	KDJOverbought = 80.0
	KDJOversold   = 20.0
)

// KDJ computes RSV over n bars, K = EWMA(RSV, com=m1-1) and
// D = EWMA(K, com=m2-1), both smoothers seeded at 50. A flat n-bar range
// gives RSV = 50. Lines are undefined for t < n-1.
func KDJ(high, low, close []float64, n, m1, m2 int) (KDJResult, error) {
	if err := positive("KDJ", n, m1, m2); err != nil {
		return KDJResult{}, err
	}
	if err := insufficient("KDJ", n, len(close)); err != nil {
		return KDJResult{}, err
	}
	hh := RollingMax(high, n)
	ll := RollingMin(low, n)
	k := NewEWMA(float64(m1-1), 50)
	d := NewEWMA(float64(m2-1), 50)

	res := KDJResult{
		K: model.UndefinedSlice(len(close)),
		D: model.UndefinedSlice(len(close)),
		J: model.UndefinedSlice(len(close)),
	}
	for t := n - 1; t < len(close); t++ {
		rsv := 50.0
		if rng := hh[t] - ll[t]; rng > 0 {
			rsv = (close[t] - ll[t]) / rng * 100
		}
		k.Update(rsv)
		d.Update(k.Value())
		res.K[t] = k.Value()
		res.D[t] = d.Value()
		res.J[t] = 3*res.K[t] - 2*res.D[t]
	}
	return res, nil
}

// Zone classifies a K value.
type Zone string

const (
	ZoneOverbought Zone = "overbought"
	ZoneOversold   Zone = "oversold"
	ZoneNeutral    Zone = "neutral"
)

// KDJZone returns overbought for K>80, oversold for K<20.
func KDJZone(k float64) Zone {
	switch {
	case k > KDJOverbought:
		return ZoneOverbought
	case k < KDJOversold:
		return ZoneOversold
	}
	return ZoneNeutral
}
