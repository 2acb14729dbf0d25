package model

import (
	"math"
	"time"
)

// Bar is one trading day of OHLCV data for a single instrument.
// Prices are in yuan, volume in shares.
type Bar struct {
	Date   time.Time `json:"date" db:"date"`
	Open   float64   `json:"open" db:"open"`
	High   float64   `json:"high" db:"high"`
	Low    float64   `json:"low" db:"low"`
	Close  float64   `json:"close" db:"close"`
	Volume float64   `json:"volume" db:"volume"`
}

// Body returns the absolute candle body |close-open|.
func (b Bar) Body() float64 { return math.Abs(b.Close - b.Open) }

// Range returns high-low.
func (b Bar) Range() float64 { return b.High - b.Low }

// UpperShadow returns the distance from the body top to the high.
func (b Bar) UpperShadow() float64 { return b.High - math.Max(b.Open, b.Close) }

// LowerShadow returns the distance from the body bottom to the low.
func (b Bar) LowerShadow() float64 { return math.Min(b.Open, b.Close) - b.Low }

// Bullish reports close > open.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// Bearish reports close < open.
func (b Bar) Bearish() bool { return b.Close < b.Open }

// Series is the ordered daily history of one instrument.
// Dates are strictly increasing; no gap filling is implied.
type Series struct {
	Instrument string `json:"instrument"`
	Bars       []Bar  `json:"bars"`
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Validate checks ordering and value sanity. A clean series returns nil.
func (s Series) Validate() error {
	for i, b := range s.Bars {
		switch {
		case isBad(b.Open) || isBad(b.High) || isBad(b.Low) || isBad(b.Close):
			return &InvalidInputError{Instrument: s.Instrument, Index: i, Reason: "negative or NaN price"}
		case isBad(b.Volume):
			return &InvalidInputError{Instrument: s.Instrument, Index: i, Reason: "negative or NaN volume"}
		case b.High < b.Low:
			return &InvalidInputError{Instrument: s.Instrument, Index: i, Reason: "high below low"}
		}
		if i > 0 && !b.Date.After(s.Bars[i-1].Date) {
			return &InvalidInputError{Instrument: s.Instrument, Index: i, Reason: "dates not strictly increasing"}
		}
	}
	return nil
}

func isBad(v float64) bool { return math.IsNaN(v) || v < 0 }

// IndexOf returns the index of the bar dated on the same calendar day as d, or -1.
func (s Series) IndexOf(d time.Time) int {
	y, m, day := d.Date()
	lo, hi := 0, len(s.Bars)-1
	target := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	for lo <= hi {
		mid := (lo + hi) / 2
		by, bm, bd := s.Bars[mid].Date.Date()
		cur := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
		switch {
		case cur.Equal(target):
			return mid
		case cur.Before(target):
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}

// Dates returns the bar dates.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

func (s Series) column(f func(Bar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = f(b)
	}
	return out
}

func (s Series) Opens() []float64   { return s.column(func(b Bar) float64 { return b.Open }) }
func (s Series) Highs() []float64   { return s.column(func(b Bar) float64 { return b.High }) }
func (s Series) Lows() []float64    { return s.column(func(b Bar) float64 { return b.Low }) }
func (s Series) Closes() []float64  { return s.column(func(b Bar) float64 { return b.Close }) }
func (s Series) Volumes() []float64 { return s.column(func(b Bar) float64 { return b.Volume }) }

// Upto returns the prefix ending at index t (inclusive). The backing array is shared.
func (s Series) Upto(t int) Series {
	return Series{Instrument: s.Instrument, Bars: s.Bars[:t+1]}
}

// Undefined returns the sentinel for values that cannot be computed.
func Undefined() float64 { return math.NaN() }

// IsUndefined reports whether v is the undefined sentinel.
func IsUndefined(v float64) bool { return math.IsNaN(v) }

// UndefinedSlice returns n undefined values.
func UndefinedSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
