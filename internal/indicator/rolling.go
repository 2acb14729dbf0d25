package indicator

import (
	"math"

	"quant-systemv1/internal/ringbuf"
)

// Std is the rolling sample standard deviation (ddof=1) over period values.
type Std struct {
	period int
	win    *ringbuf.Window
}

func NewStd(period int) *Std {
	return &Std{period: period, win: ringbuf.New(period)}
}

func (s *Std) Name() string     { return "STD" }
func (s *Std) Update(v float64) { s.win.Push(v) }
func (s *Std) Ready() bool      { return s.win.Full() && s.period > 1 }
func (s *Std) Reset()           { s.win.Reset() }

func (s *Std) Value() float64 { return SampleStd(s.win.Values()) }

// rollingExtreme tracks the rolling min or max of the last period values.
type rollingExtreme struct {
	name string
	win  *ringbuf.Window
	max  bool
}

// NewMin returns a rolling minimum over period values.
func NewMin(period int) Indicator { return &rollingExtreme{name: "MIN", win: ringbuf.New(period)} }

// NewMax returns a rolling maximum over period values.
func NewMax(period int) Indicator {
	return &rollingExtreme{name: "MAX", win: ringbuf.New(period), max: true}
}

func (r *rollingExtreme) Name() string     { return r.name }
func (r *rollingExtreme) Update(v float64) { r.win.Push(v) }
func (r *rollingExtreme) Ready() bool      { return r.win.Full() }
func (r *rollingExtreme) Reset()           { r.win.Reset() }

func (r *rollingExtreme) Value() float64 {
	if r.max {
		return r.win.Max()
	}
	return r.win.Min()
}

// RollingStd returns the rolling sample standard deviation of xs.
func RollingStd(xs []float64, period int) []float64 { return Values(NewStd(period), xs) }

// RollingMin returns the rolling minimum of xs.
func RollingMin(xs []float64, period int) []float64 { return Values(NewMin(period), xs) }

// RollingMax returns the rolling maximum of xs.
func RollingMax(xs []float64, period int) []float64 { return Values(NewMax(period), xs) }

// Mean returns the arithmetic mean, NaN for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStd returns the standard deviation with ddof=1, NaN below two values.
func SampleStd(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return math.NaN()
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
