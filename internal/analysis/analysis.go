// Package analysis produces the single-instrument technical report: latest
// price move, trend, support/resistance, classified MACD/KDJ/RSI/BOLL
// signals, ATR and the additive technical score.
package analysis

import (
	"time"

	"quant-systemv1/internal/indicator"
	"quant-systemv1/internal/model"
)

// Lookbacks used by the report.
const (
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
	KDJN             = 9
	KDJM1            = 3
	KDJM2            = 3
	RSIPeriod        = 14
	BOLLPeriod       = 20
	BOLLK            = 2.0
	ATRPeriod        = 14
	TrendShort       = 20
	TrendLong        = 60
	SRWindow         = 20
)

// MinBars is the shortest series Analyze accepts.
const MinBars = MACDSlowPeriod

// Report is the technical snapshot of one instrument at one bar.
type Report struct {
	Instrument string               `json:"instrument"`
	Date       time.Time            `json:"date"`
	Price      float64              `json:"price"`
	ChangePct  float64              `json:"change_pct"`
	Trend      indicator.TrendState `json:"trend"`
	Support    float64              `json:"support"`
	Resistance float64              `json:"resistance"`
	Pivot      float64              `json:"pivot"`
	DIF        float64              `json:"dif"`
	DEA        float64              `json:"dea"`
	K          float64              `json:"k"`
	D          float64              `json:"d"`
	J          float64              `json:"j"`
	RSI        float64              `json:"rsi"`
	Upper      float64              `json:"boll_upper"`
	Mid        float64              `json:"boll_mid"`
	Lower      float64              `json:"boll_lower"`
	ATR        float64              `json:"atr"`
	Signals    Signals              `json:"signals"`
	Score      Score                `json:"score"`
}

// Frame holds every indicator line of one series so reports can be taken
// at any bar without recomputation. Each line is causal, so At(t) only
// depends on bars 0..t.
type Frame struct {
	series model.Series
	close  []float64
	high   []float64
	low    []float64
	macd   indicator.MACDResult
	kdj    indicator.KDJResult
	rsi    []float64
	boll   indicator.BOLLResult
	atr    []float64
	trend  []indicator.TrendState
	sup    []float64
	res    []float64
}

// NewFrame computes all lines for s.
func NewFrame(s model.Series) (*Frame, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Len() < MinBars {
		return nil, &model.InsufficientDataError{Instrument: s.Instrument, What: "analysis", Need: MinBars, Have: s.Len()}
	}
	f := &Frame{series: s, close: s.Closes(), high: s.Highs(), low: s.Lows()}

	var err error
	if f.macd, err = indicator.MACD(f.close, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod); err != nil {
		return nil, err
	}
	if f.kdj, err = indicator.KDJ(f.high, f.low, f.close, KDJN, KDJM1, KDJM2); err != nil {
		return nil, err
	}
	if f.rsi, err = indicator.RSIValues(f.close, RSIPeriod); err != nil {
		return nil, err
	}
	if f.boll, err = indicator.BOLL(f.close, BOLLPeriod, BOLLK); err != nil {
		return nil, err
	}
	if f.atr, err = indicator.ATR(f.high, f.low, f.close, ATRPeriod); err != nil {
		return nil, err
	}
	f.trend = indicator.Trend(f.close, TrendShort, TrendLong)
	f.sup = indicator.RollingMin(f.low, SRWindow)
	f.res = indicator.RollingMax(f.high, SRWindow)
	return f, nil
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int { return len(f.close) }

// At returns the report for bar t. Values still in warm-up are NaN and
// their signals are "unavailable", which scores zero.
func (f *Frame) At(t int) Report {
	r := Report{
		Instrument: f.series.Instrument,
		Date:       f.series.Bars[t].Date,
		Price:      f.close[t],
		ChangePct:  model.Undefined(),
		Trend:      f.trend[t],
		Support:    f.sup[t],
		Resistance: f.res[t],
		Pivot:      (f.high[t] + f.low[t] + f.close[t]) / 3,
		DIF:        f.macd.DIF[t],
		DEA:        f.macd.DEA[t],
		K:          f.kdj.K[t],
		D:          f.kdj.D[t],
		J:          f.kdj.J[t],
		RSI:        f.rsi[t],
		Upper:      f.boll.Upper[t],
		Mid:        f.boll.Mid[t],
		Lower:      f.boll.Lower[t],
		ATR:        f.atr[t],
	}
	if t > 0 && f.close[t-1] > 0 {
		r.ChangePct = (f.close[t]/f.close[t-1] - 1) * 100
	}
	r.Signals = Signals{
		MACD:  ClassifyMACD(f.macd.DIF, f.macd.DEA, t),
		KDJ:   ClassifyKDJ(f.kdj.K, f.kdj.D, t),
		RSI:   ClassifyRSI(f.rsi[t]),
		BOLL:  ClassifyBOLL(f.close[t], r.Upper, r.Mid, r.Lower),
		Trend: f.trend[t],
	}
	r.Score = TechnicalScore(r.Signals)
	return r
}

// Analyze reports on the last bar of s.
func Analyze(s model.Series) (*Report, error) {
	f, err := NewFrame(s)
	if err != nil {
		return nil, err
	}
	r := f.At(f.Len() - 1)
	return &r, nil
}
