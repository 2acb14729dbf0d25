// Package backtest evaluates a signal series against forward returns.
//
// The evaluation is return based: a signal on bar t-1 is applied to the
// forward return starting at bar t, so a bar's own signal never sees its
// own forward return. No orders, fills or costs are modelled.
package backtest

import (
	"context"
	"math"

	"quant-systemv1/internal/batch"
	"quant-systemv1/internal/indicator"
	"quant-systemv1/internal/model"
)

// TradingDaysPerYear annualises the Sharpe ratio.
const TradingDaysPerYear = 252

// Run evaluates signals over s with holding horizon h. Signals must be
// aligned with s bar for bar.
func Run(s model.Series, signals []model.Signal, h int) (*model.BacktestResult, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(signals) != s.Len() {
		return nil, &model.InvalidInputError{Instrument: s.Instrument, Index: -1, Reason: "signal count does not match bars"}
	}
	actions := make([]model.Action, len(signals))
	for i, sig := range signals {
		if !sig.Date.Equal(s.Bars[i].Date) {
			return nil, &model.InvalidInputError{Instrument: s.Instrument, Index: i, Reason: "signal date does not match bar"}
		}
		actions[i] = sig.Action
	}
	res, err := RunValues(s.Closes(), actions, h)
	if err != nil {
		if ins, ok := err.(*model.InsufficientDataError); ok {
			ins.Instrument = s.Instrument
		}
		if inv, ok := err.(*model.InvalidInputError); ok {
			inv.Instrument = s.Instrument
		}
		return nil, err
	}
	res.Instrument = s.Instrument
	return res, nil
}

// RunValues is the core computation over plain columns.
func RunValues(closes []float64, actions []model.Action, h int) (*model.BacktestResult, error) {
	switch {
	case h < 1:
		return nil, &model.InvalidInputError{Index: -1, Reason: "holding horizon must be at least 1"}
	case len(actions) != len(closes):
		return nil, &model.InvalidInputError{Index: -1, Reason: "signal count does not match closes"}
	case len(closes) <= h:
		return nil, &model.InsufficientDataError{What: "backtest", Need: h + 1, Have: len(closes)}
	}

	n := len(closes)
	fwd := model.UndefinedSlice(n)
	for t := 0; t+h < n; t++ {
		if closes[t] > 0 {
			fwd[t] = closes[t+h]/closes[t] - 1
		}
	}

	strat := model.UndefinedSlice(n)
	for t := 1; t < n; t++ {
		if !math.IsNaN(fwd[t]) {
			strat[t] = float64(actions[t-1]) * fwd[t]
		}
	}

	res := &model.BacktestResult{
		Horizon:         h,
		ForwardReturns:  fwd,
		StrategyReturns: strat,
		Cumulative:      make([]float64, n),
		Trades:          trades(actions),
	}

	var defined []float64
	growth := 1.0
	for t, r := range strat {
		if !math.IsNaN(r) {
			defined = append(defined, r)
			growth *= 1 + r
		}
		res.Cumulative[t] = growth - 1
	}
	res.Observations = len(defined)
	res.TotalReturn = growth - 1
	res.Sharpe = sharpe(defined, h)
	res.MaxDrawdown = maxDrawdown(defined)
	res.WinRate = winRate(defined)
	return res, nil
}

func sharpe(rets []float64, h int) float64 {
	sd := indicator.SampleStd(rets)
	if math.IsNaN(sd) || sd == 0 {
		return math.NaN()
	}
	return indicator.Mean(rets) / sd * math.Sqrt(float64(TradingDaysPerYear)/float64(h))
}

// maxDrawdown is min(cum - runningMax(cum)) over the compounded curve of
// the defined returns. It is ≤ 0; 0 means no drawdown.
func maxDrawdown(rets []float64) float64 {
	if len(rets) == 0 {
		return math.NaN()
	}
	growth, peak, worst := 1.0, math.Inf(-1), 0.0
	for _, r := range rets {
		growth *= 1 + r
		cum := growth - 1
		if cum > peak {
			peak = cum
		}
		if dd := cum - peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

func winRate(rets []float64) float64 {
	if len(rets) == 0 {
		return math.NaN()
	}
	wins := 0
	for _, r := range rets {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(rets))
}

// trades counts position changes, starting from flat.
func trades(actions []model.Action) int {
	prev, n := model.ActionHold, 0
	for _, a := range actions {
		if a != prev {
			n++
		}
		prev = a
	}
	return n
}

// Job is one instrument's backtest input.
type Job struct {
	Series   model.Series
	Signals  []model.Signal
	Strategy string
}

// RunBatch evaluates every job with horizon h, isolating failures per
// instrument. Results keep job order; failed jobs are left out and reported.
func RunBatch(ctx context.Context, jobs []Job, h int, opts batch.Options) ([]*model.BacktestResult, []model.Failure) {
	if opts.Stage == "" {
		opts.Stage = "backtest"
	}
	out, errs := batch.Map(ctx, jobs, opts, func(_ context.Context, j Job) (*model.BacktestResult, error) {
		res, err := Run(j.Series, j.Signals, h)
		if err != nil {
			return nil, err
		}
		res.Strategy = j.Strategy
		return res, nil
	})

	results := make([]*model.BacktestResult, 0, len(jobs))
	var failures []model.Failure
	for i, j := range jobs {
		if errs[i] != nil {
			var last model.Bar
			if n := j.Series.Len(); n > 0 {
				last = j.Series.Bars[n-1]
			}
			failures = append(failures, model.NewFailure(j.Series.Instrument, last.Date, opts.Stage, errs[i]))
			continue
		}
		results = append(results, out[i])
	}
	return results, failures
}
