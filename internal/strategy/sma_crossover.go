package strategy

import (
	"fmt"

	"quant-systemv1/internal/indicator"
	"quant-systemv1/internal/model"
)

// SMACrossover implements a simple SMA crossover strategy.
//
// Buy signal: fast SMA crosses above slow SMA (golden cross)
// Sell signal: fast SMA crosses below slow SMA (death cross)
//
// Optional RSI filter prevents buying when overbought (>70)
// or selling when oversold (<30).
type SMACrossover struct {
	fastPeriod int
	slowPeriod int

	// RSI filter (optional)
	rsiEnabled bool
	rsiPeriod  int
}

// NewSMACrossover creates a new SMA crossover strategy.
// fastPeriod < slowPeriod (e.g., 5 and 20).
func NewSMACrossover(fastPeriod, slowPeriod int, enableRSI bool, rsiPeriod int) *SMACrossover {
	return &SMACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		rsiEnabled: enableRSI,
		rsiPeriod:  rsiPeriod,
	}
}

func (s *SMACrossover) Name() string { return "sma_crossover" }

func (s *SMACrossover) Generate(series model.Series) ([]model.Signal, error) {
	closes := series.Closes()
	if series.Len() < s.slowPeriod+1 {
		return nil, &model.InsufficientDataError{Instrument: series.Instrument, What: "SMA crossover", Need: s.slowPeriod + 1, Have: series.Len()}
	}
	fast := indicator.SMAValues(closes, s.fastPeriod)
	slow := indicator.SMAValues(closes, s.slowPeriod)

	var rsi []float64
	if s.rsiEnabled {
		rsi = indicator.Values(indicator.NewRSI(s.rsiPeriod), closes)
	}

	out := hold(series)
	for t, c := range indicator.Crosses(fast, slow) {
		switch c {
		case indicator.GoldenCross:
			if rsi != nil && rsi[t] > 70 {
				out[t].Reason = fmt.Sprintf("golden cross filtered by RSI %.1f > 70", rsi[t])
				continue
			}
			out[t].Action = model.ActionBuy
			out[t].Reason = "SMA golden cross (fast > slow)"
		case indicator.DeathCross:
			if rsi != nil && rsi[t] < 30 {
				out[t].Reason = fmt.Sprintf("death cross filtered by RSI %.1f < 30", rsi[t])
				continue
			}
			out[t].Action = model.ActionSell
			out[t].Reason = "SMA death cross (fast < slow)"
		}
	}
	return out, nil
}
