package factor

import (
	"math"

	"quant-systemv1/internal/model"
)

// frame is the column view of one instrument's Inputs, built once per call
// so that evaluating many factors or many dates stays linear.
type frame struct {
	n       int
	inst    model.Instrument
	bars    []model.Bar
	close   []float64
	high    []float64
	low     []float64
	volume  []float64
	ret     []float64 // close-to-close simple return, NaN at 0
	mret    []float64 // market return over the same pair of dates
	reports []model.Fundamentals
}

func newFrame(in Inputs) (*frame, error) {
	if err := in.Series.Validate(); err != nil {
		return nil, err
	}
	s := in.Series
	f := &frame{
		n:      s.Len(),
		inst:   in.Instrument,
		bars:   s.Bars,
		close:  s.Closes(),
		high:   s.Highs(),
		low:    s.Lows(),
		volume: s.Volumes(),
	}
	if f.inst.Code == "" {
		f.inst.Code = s.Instrument
	}
	f.ret = returns(f.close)
	f.mret = alignedMarketReturns(s, in.Market)

	if len(in.Fundamentals) > 0 {
		f.reports = append([]model.Fundamentals(nil), in.Fundamentals...)
		model.SortFundamentals(f.reports)
	}
	return f, nil
}

func returns(close []float64) []float64 {
	out := model.UndefinedSlice(len(close))
	for t := 1; t < len(close); t++ {
		if close[t-1] > 0 {
			out[t] = close[t]/close[t-1] - 1
		}
	}
	return out
}

// alignedMarketReturns returns, for each t ≥ 1, the market return between
// the dates of bars t-1 and t. Dates the market lacks are NaN.
func alignedMarketReturns(s, market model.Series) []float64 {
	out := model.UndefinedSlice(s.Len())
	if market.Len() == 0 {
		return out
	}
	prev := math.NaN()
	for t, b := range s.Bars {
		cur := math.NaN()
		if j := market.IndexOf(b.Date); j >= 0 {
			cur = market.Bars[j].Close
		}
		if t > 0 && prev > 0 && !math.IsNaN(cur) {
			out[t] = cur/prev - 1
		}
		prev = cur
	}
	return out
}

// report returns the latest fundamentals published on or before bar t.
func (f *frame) report(t int) (model.Fundamentals, bool) {
	i := model.AsOf(f.reports, f.bars[t].Date)
	if i < 0 {
		return model.Fundamentals{}, false
	}
	return f.reports[i], true
}

// reportLag returns the report lag positions before the as-of report.
func (f *frame) reportLag(t, lag int) (now, prev model.Fundamentals, ok bool) {
	i := model.AsOf(f.reports, f.bars[t].Date)
	if i < 0 || i-lag < 0 {
		return now, prev, false
	}
	return f.reports[i], f.reports[i-lag], true
}

// marketCap is close × total shares as of bar t, NaN when not positive.
func (f *frame) marketCap(t int) float64 {
	r, ok := f.report(t)
	if !ok {
		return math.NaN()
	}
	mc := f.close[t] * r.TotalShares
	if mc <= 0 {
		return math.NaN()
	}
	return mc
}

// window returns xs[t-w+1 : t+1], or nil when it does not fit or holds NaN.
func window(xs []float64, t, w int) []float64 {
	if w < 1 || t-w+1 < 0 || t >= len(xs) {
		return nil
	}
	win := xs[t-w+1 : t+1]
	for _, x := range win {
		if math.IsNaN(x) {
			return nil
		}
	}
	return win
}

// ratio returns num/den, NaN unless den > 0.
func ratio(num, den float64) float64 {
	if !(den > 0) || math.IsNaN(num) {
		return math.NaN()
	}
	return num / den
}
