// Package pattern recognises candlestick and chart patterns in daily bars.
//
// Every predicate only reads bars at or before the index it evaluates.
// Predicates are independent: one bar may fire several kinds.
package pattern

import (
	"quant-systemv1/internal/indicator"
	"quant-systemv1/internal/model"
)

// Config holds the geometric thresholds of the catalogue.
type Config struct {
	ShadowRatio       float64 // long shadow ≥ ratio × body
	OppositeShadow    float64 // short shadow ≤ ratio × body
	StarBody          float64 // star body < ratio × first bar range
	LargeBody         float64 // first bar body ≥ ratio × its range
	DojiBody          float64 // doji body ≤ ratio × range
	TrendLookback     int     // bars used to judge a prior decline/advance
	TriangleWindow    int     // bars in the triangle window
	TriangleTolerance float64 // flat side (max-min)/max bound
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		ShadowRatio:       2,
		OppositeShadow:    0.3,
		StarBody:          0.3,
		LargeBody:         0.5,
		DojiBody:          0.1,
		TrendLookback:     5,
		TriangleWindow:    20,
		TriangleTolerance: 0.02,
	}
}

// Detector evaluates the pattern catalogue. It is stateless and safe for
// concurrent use.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs DetectAt over every index of s, in index order.
func (d *Detector) Detect(s model.Series) []model.PatternEvent {
	var out []model.PatternEvent
	for i := range s.Bars {
		out = append(out, d.DetectAt(s, i)...)
	}
	return out
}

// DetectAt returns every pattern that completes at bar i, in catalogue
// order. Out-of-range indices and windows that do not fit yield nothing.
func (d *Detector) DetectAt(s model.Series, i int) []model.PatternEvent {
	if i < 0 || i >= len(s.Bars) {
		return nil
	}
	var out []model.PatternEvent
	emit := func(kind model.PatternKind, dir model.Direction) {
		out = append(out, model.PatternEvent{
			Instrument: s.Instrument,
			Index:      i,
			Date:       s.Bars[i].Date,
			Kind:       kind,
			Direction:  dir,
		})
	}

	b := s.Bars[i]
	if d.Hammer(b) && d.priorDecline(s, i) {
		emit(model.PatternHammer, model.Bullish)
	}
	if d.ShootingStar(b) && d.priorAdvance(s, i) {
		emit(model.PatternShootingStar, model.Bearish)
	}
	if d.Doji(b) {
		emit(model.PatternDoji, model.Neutral)
	}

	if i >= 2 {
		b1, b2, b3 := s.Bars[i-2], s.Bars[i-1], s.Bars[i]
		if d.morningStar(b1, b2, b3) {
			emit(model.PatternMorningStar, model.Bullish)
		}
		if d.eveningStar(b1, b2, b3) {
			emit(model.PatternEveningStar, model.Bearish)
		}
		if threeWhiteSoldiers(b1, b2, b3) {
			emit(model.PatternThreeWhiteSoldiers, model.Bullish)
		}
		if threeBlackCrows(b1, b2, b3) {
			emit(model.PatternThreeBlackCrows, model.Bearish)
		}
	}

	if w := d.cfg.TriangleWindow; w >= 2 && i >= w-1 {
		win := s.Bars[i-w+1 : i+1]
		if d.ascendingTriangle(win) {
			emit(model.PatternAscendingTriangle, model.Bullish)
		}
		if d.descendingTriangle(win) {
			emit(model.PatternDescendingTriangle, model.Bearish)
		}
	}

	if i >= 1 {
		if g, ok := gapAt(s.Bars[i-1], b, i); ok {
			if g.Direction == model.Bullish {
				emit(model.PatternGapUp, model.Bullish)
			} else {
				emit(model.PatternGapDown, model.Bearish)
			}
		}
	}
	return out
}

// Hammer reports hammer geometry: lower shadow ≥ 2×body and upper shadow
// ≤ 0.3×body. With a zero body the tests reduce to the shadows alone.
func (d *Detector) Hammer(b model.Bar) bool {
	body := b.Body()
	return b.LowerShadow() >= d.cfg.ShadowRatio*body && b.UpperShadow() <= d.cfg.OppositeShadow*body
}

// ShootingStar reports the mirror geometry of Hammer.
func (d *Detector) ShootingStar(b model.Bar) bool {
	body := b.Body()
	return b.UpperShadow() >= d.cfg.ShadowRatio*body && b.LowerShadow() <= d.cfg.OppositeShadow*body
}

// Doji reports a body no larger than DojiBody × range. A zero-range bar is a doji.
func (d *Detector) Doji(b model.Bar) bool {
	return b.Body() <= d.cfg.DojiBody*b.Range()
}

// priorDecline compares close[i-1] with close[i-1-L].
func (d *Detector) priorDecline(s model.Series, i int) bool {
	j := i - 1 - d.cfg.TrendLookback
	return j >= 0 && s.Bars[i-1].Close < s.Bars[j].Close
}

func (d *Detector) priorAdvance(s model.Series, i int) bool {
	j := i - 1 - d.cfg.TrendLookback
	return j >= 0 && s.Bars[i-1].Close > s.Bars[j].Close
}

func (d *Detector) largeBody(b model.Bar) bool {
	r := b.Range()
	return r > 0 && b.Body() >= d.cfg.LargeBody*r
}

func (d *Detector) morningStar(b1, b2, b3 model.Bar) bool {
	mid := (b1.Open + b1.Close) / 2
	return b1.Bearish() && d.largeBody(b1) &&
		b2.Body() < d.cfg.StarBody*b1.Range() &&
		b3.Bullish() && b3.Close > mid
}

func (d *Detector) eveningStar(b1, b2, b3 model.Bar) bool {
	mid := (b1.Open + b1.Close) / 2
	return b1.Bullish() && d.largeBody(b1) &&
		b2.Body() < d.cfg.StarBody*b1.Range() &&
		b3.Bearish() && b3.Close < mid
}

func threeWhiteSoldiers(b1, b2, b3 model.Bar) bool {
	return b1.Bullish() && b2.Bullish() && b3.Bullish() &&
		b2.Close > b1.Close && b3.Close > b2.Close
}

func threeBlackCrows(b1, b2, b3 model.Bar) bool {
	return b1.Bearish() && b2.Bearish() && b3.Bearish() &&
		b2.Close < b1.Close && b3.Close < b2.Close
}

// flat reports (max-min)/max < tol over xs.
func flat(xs []float64, tol float64) bool {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return hi > 0 && (hi-lo)/hi < tol
}

func (d *Detector) ascendingTriangle(win []model.Bar) bool {
	highs, lows := columns(win)
	if !flat(highs, d.cfg.TriangleTolerance) {
		return false
	}
	slope, ok := indicator.TrendSlope(lows)
	return ok && slope > 0
}

func (d *Detector) descendingTriangle(win []model.Bar) bool {
	highs, lows := columns(win)
	if !flat(lows, d.cfg.TriangleTolerance) {
		return false
	}
	slope, ok := indicator.TrendSlope(highs)
	return ok && slope < 0
}

func columns(win []model.Bar) (highs, lows []float64) {
	highs = make([]float64, len(win))
	lows = make([]float64, len(win))
	for i, b := range win {
		highs[i] = b.High
		lows[i] = b.Low
	}
	return highs, lows
}
