package pattern

import "quant-systemv1/internal/model"

// Gap is a price gap between bar Index-1 and bar Index.
type Gap struct {
	Index     int             `json:"index"`
	Direction model.Direction `json:"direction"` // Bullish for up, Bearish for down
	Size      float64         `json:"size"`      // absolute distance between the bars
}

// Gaps scans adjacent bar pairs. An up gap requires low[t] > high[t-1];
// a down gap requires high[t] < low[t-1]. Touching bars are not gaps.
func Gaps(s model.Series) []Gap {
	var out []Gap
	for t := 1; t < len(s.Bars); t++ {
		if g, ok := gapAt(s.Bars[t-1], s.Bars[t], t); ok {
			out = append(out, g)
		}
	}
	return out
}

func gapAt(prev, cur model.Bar, t int) (Gap, bool) {
	switch {
	case cur.Low > prev.High:
		return Gap{Index: t, Direction: model.Bullish, Size: cur.Low - prev.High}, true
	case cur.High < prev.Low:
		return Gap{Index: t, Direction: model.Bearish, Size: prev.Low - cur.High}, true
	}
	return Gap{}, false
}
