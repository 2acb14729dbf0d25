package model

import "time"

// Line is one named output of an indicator, aligned with its Series.
type Line struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// IndicatorResult holds every line an indicator produced for one series.
// Warm-up entries are undefined (NaN), never zero.
type IndicatorResult struct {
	Name       string      `json:"name"` // e.g. "MACD_12_26_9", "RSI_14"
	Instrument string      `json:"instrument"`
	Dates      []time.Time `json:"dates"`
	Lines      []Line      `json:"lines"`
}

// Line returns the named line, or nil.
func (r *IndicatorResult) Line(name string) []float64 {
	for _, l := range r.Lines {
		if l.Name == name {
			return l.Values
		}
	}
	return nil
}

// Last returns the final value of the named line.
func (r *IndicatorResult) Last(name string) float64 {
	v := r.Line(name)
	if len(v) == 0 {
		return Undefined()
	}
	return v[len(v)-1]
}

// Direction is the market bias of a pattern.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// PatternKind names a recognised price pattern.
type PatternKind string

const (
	PatternHammer             PatternKind = "hammer"
	PatternShootingStar       PatternKind = "shooting_star"
	PatternDoji               PatternKind = "doji"
	PatternMorningStar        PatternKind = "morning_star"
	PatternEveningStar        PatternKind = "evening_star"
	PatternThreeWhiteSoldiers PatternKind = "three_white_soldiers"
	PatternThreeBlackCrows    PatternKind = "three_black_crows"
	PatternAscendingTriangle  PatternKind = "ascending_triangle"
	PatternDescendingTriangle PatternKind = "descending_triangle"
	PatternGapUp              PatternKind = "gap_up"
	PatternGapDown            PatternKind = "gap_down"
)

// PatternEvent is one pattern firing at one bar.
type PatternEvent struct {
	Instrument string      `json:"instrument"`
	Index      int         `json:"index"`
	Date       time.Time   `json:"date"`
	Kind       PatternKind `json:"kind"`
	Direction  Direction   `json:"direction"`
}
