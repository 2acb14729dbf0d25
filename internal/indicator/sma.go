package indicator

import "quant-systemv1/internal/ringbuf"

// SMA calculates Simple Moving Average over a rolling window.
type SMA struct {
	period int
	win    *ringbuf.Window
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{period: period, win: ringbuf.New(period)}
}

func (s *SMA) Name() string { return "SMA" }

func (s *SMA) Update(v float64) { s.win.Push(v) }

func (s *SMA) Value() float64 { return s.win.Mean() }
func (s *SMA) Ready() bool    { return s.win.Full() }

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() { s.win.Reset() }

// SMAValues returns the rolling mean of xs over period.
func SMAValues(xs []float64, period int) []float64 {
	return Values(NewSMA(period), xs)
}
