package indicator

import (
	"strconv"

	"quant-systemv1/internal/model"
)

// DefaultMAPeriods are the moving-average periods charted per instrument.
var DefaultMAPeriods = []int{5, 10, 20, 60, 120}

// DefaultVolumeMAPeriods are the volume moving-average periods.
var DefaultVolumeMAPeriods = []int{5, 10, 20}

// MA returns one SMA line per period, named "MA<p>". Periods longer than
// the series produce an all-undefined line rather than an error.
func MA(closes []float64, periods ...int) []model.Line {
	return maLines("MA", closes, periods)
}

// VolumeMA returns one SMA line of volume per period, named "VOL_MA<p>".
func VolumeMA(volume []float64, periods ...int) []model.Line {
	return maLines("VOL_MA", volume, periods)
}

func maLines(prefix string, xs []float64, periods []int) []model.Line {
	lines := make([]model.Line, 0, len(periods))
	for _, p := range periods {
		lines = append(lines, model.Line{Name: prefix + strconv.Itoa(p), Values: SMAValues(xs, p)})
	}
	return lines
}

// TrendState classifies the moving-average regime at one bar.
type TrendState string

const (
	TrendUnknown TrendState = "unknown"
	TrendUp      TrendState = "up"
	TrendDown    TrendState = "down"
	TrendRanging TrendState = "ranging"
)

// Trend classifies each bar: up iff MA(short) > MA(long) and close > MA(short),
// down for the mirror, ranging otherwise. Bars before MA(long) is defined
// are TrendUnknown.
func Trend(closes []float64, short, long int) []TrendState {
	ms := SMAValues(closes, short)
	ml := SMAValues(closes, long)
	out := make([]TrendState, len(closes))
	for t, c := range closes {
		switch {
		case model.IsUndefined(ms[t]) || model.IsUndefined(ml[t]):
			out[t] = TrendUnknown
		case ms[t] > ml[t] && c > ms[t]:
			out[t] = TrendUp
		case ms[t] < ml[t] && c < ms[t]:
			out[t] = TrendDown
		default:
			out[t] = TrendRanging
		}
	}
	return out
}

// Levels holds rolling support/resistance and the latest pivot.
type Levels struct {
	Support    []float64 // rolling min of low
	Resistance []float64 // rolling max of high
	Pivot      float64   // (H+L+C)/3 of the last bar
}

// SupportResistance computes rolling support and resistance over window.
func SupportResistance(high, low, close []float64, window int) (Levels, error) {
	if err := positive("SR", window); err != nil {
		return Levels{}, err
	}
	if err := insufficient("SR", window, len(close)); err != nil {
		return Levels{}, err
	}
	last := len(close) - 1
	return Levels{
		Support:    RollingMin(low, window),
		Resistance: RollingMax(high, window),
		Pivot:      (high[last] + low[last] + close[last]) / 3,
	}, nil
}
